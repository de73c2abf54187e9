package cpu

import (
	"fmt"
	"strings"
)

// backing storage is allocated in chunks of this size on first write
const ChunkSize = 0x1000

// Page is a single backing region. Its contents are only reachable through ReadAt/WriteAt.
type Page struct {
	Addr uint64
	Size uint64
	Prot int
	Desc string

	// keyed by chunk offset from Addr
	chunks map[uint64][]byte
}

func NewPage(addr, size uint64, prot int) *Page {
	return &Page{Addr: addr, Size: size, Prot: prot, chunks: make(map[uint64][]byte)}
}

func (p *Page) String() string {
	prots := []int{PROT_READ, PROT_WRITE, PROT_EXEC}
	chars := []string{"r", "w", "x"}
	prot := ""
	for i := range prots {
		if p.Prot&prots[i] != 0 {
			prot += chars[i]
		} else {
			prot += "-"
		}
	}
	desc := fmt.Sprintf("0x%x-0x%x %s", p.Addr, p.Addr+p.Size, prot)
	if p.Desc != "" {
		desc += fmt.Sprintf(" [%s]", p.Desc)
	}
	return desc
}

func (p *Page) Contains(addr uint64) bool {
	return addr >= p.Addr && addr-p.Addr < p.Size
}

// ContainsRange reports whether [addr, addr+size) lies entirely inside the page.
// A zero-length range is contained if addr is inside the page.
func (p *Page) ContainsRange(addr, size uint64) bool {
	if !p.Contains(addr) {
		return false
	}
	return size <= p.Size-(addr-p.Addr)
}

// start = max(s1, s2), end = min(e1, e2), ok = end > start
func (p *Page) Intersect(addr, size uint64) (uint64, uint64, bool) {
	start := p.Addr
	end := p.Addr + p.Size
	e2 := addr + size
	if end > e2 {
		end = e2
	}
	if start < addr {
		start = addr
	}
	return start, end - start, end > start
}

func (p *Page) Overlaps(addr, size uint64) bool {
	_, _, ok := p.Intersect(addr, size)
	return ok
}

// ReadAt fills buf from offset off. Chunks that were never written read as zero.
func (p *Page) ReadAt(buf []byte, off uint64) {
	for len(buf) > 0 {
		base := AlignDown(off, ChunkSize)
		co := off - base
		n := min(uint64(len(buf)), ChunkSize-co)
		if chunk, ok := p.chunks[base]; ok {
			copy(buf[:n], chunk[co:])
		} else {
			clear(buf[:n])
		}
		buf, off = buf[n:], off+n
	}
}

// WriteAt copies buf into the page at offset off, one chunk at a time.
func (p *Page) WriteAt(buf []byte, off uint64) {
	for len(buf) > 0 {
		base := AlignDown(off, ChunkSize)
		co := off - base
		n := min(uint64(len(buf)), ChunkSize-co)
		chunk, ok := p.chunks[base]
		if !ok {
			chunk = make([]byte, ChunkSize)
			p.chunks[base] = chunk
		}
		copy(chunk[co:], buf[:n])
		buf, off = buf[n:], off+n
	}
}

// Resident returns the number of bytes currently backed by allocated chunks.
func (p *Page) Resident() uint64 {
	return uint64(len(p.chunks)) * ChunkSize
}

type Pages []*Page

func (p Pages) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// binary search to find index of the region containing addr, if any, else -1
func (p Pages) bsearch(addr uint64) int {
	l := 0
	r := len(p) - 1
	for l <= r {
		mid := (l + r) / 2
		e := p[mid]
		if addr >= e.Addr {
			if e.Contains(addr) {
				return mid
			}
			l = mid + 1
		} else {
			r = mid - 1
		}
	}
	return -1
}

func (p Pages) Find(addr uint64) *Page {
	i := p.bsearch(addr)
	if i >= 0 {
		return p[i]
	}
	return nil
}
