// Package loader turns program images into memory segments for the reference model.
package loader

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

var UnknownMagic = errors.New("could not identify file magic")

// Segment is a run of initialized memory. Data is zero-extended to the segment's in-memory size.
type Segment struct {
	Addr uint64
	Data []byte
}

func (s Segment) End() uint64 {
	return s.Addr + uint64(len(s.Data))
}

type Symbol struct {
	Name  string
	Start uint64
	Size  uint64
}

// Image is a loaded program.
type Image struct {
	Entry    uint64
	Segments []Segment
	Symbols  []Symbol
}

// Target receives image data. *difftest.Ref satisfies it.
type Target interface {
	LoadImage(addr uint64, p []byte) error
}

// LoadInto copies every segment into dst.
func (i *Image) LoadInto(dst Target) error {
	for _, s := range i.Segments {
		if err := dst.LoadImage(s.Addr, s.Data); err != nil {
			return errors.Wrapf(err, "loading segment at %#x", s.Addr)
		}
	}
	return nil
}

// Layout returns one page-aligned region covering every segment, for callers that were not given a memory map.
func (i *Image) Layout() difftest.Layout {
	if len(i.Segments) == 0 {
		return nil
	}
	lo, hi := i.Segments[0].Addr, i.Segments[0].End()
	for _, s := range i.Segments[1:] {
		lo, hi = min(lo, s.Addr), max(hi, s.End())
	}
	lo = cpu.AlignDown(lo, cpu.ChunkSize)
	hi = cpu.Align(hi, cpu.ChunkSize)
	return difftest.Layout{{Base: lo, Size: hi - lo}}
}

// Symbolicate names the symbol containing addr as "name+0xoff".
func (i *Image) Symbolicate(addr uint64) string {
	idx := sort.Search(len(i.Symbols), func(n int) bool { return i.Symbols[n].Start > addr }) - 1
	for ; idx >= 0; idx-- {
		sym := i.Symbols[idx]
		if addr < sym.Start+max(sym.Size, 1) {
			if addr == sym.Start {
				return sym.Name
			}
			return sym.Name + "+" + hex(addr-sym.Start)
		}
	}
	return ""
}

func getMagic(r io.ReaderAt) []byte {
	ret := make([]byte, 4)
	r.ReadAt(ret, 0)
	return ret
}

// LoadFile loads an ELF file, or a raw image placed at base.
func LoadFile(path string, base uint64) (*Image, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(p, base)
}

func Load(p []byte, base uint64) (*Image, error) {
	r := bytes.NewReader(p)
	if MatchElf(r) {
		return LoadElf(r)
	}
	return LoadRaw(p, base)
}
