package cpu

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type MemError struct {
	Addr uint64
	Size int
	Enum int
}

func (m *MemError) Error() string {
	reason := "memory error"
	switch m.Enum {
	case MEM_WRITE_UNMAPPED:
		reason = "unmapped write"
	case MEM_READ_UNMAPPED:
		reason = "unmapped read"
	case MEM_FETCH_UNMAPPED:
		reason = "unmapped fetch"
	case MEM_WRITE_PROT:
		reason = "protected write"
	case MEM_READ_PROT:
		reason = "protected read"
	case MEM_FETCH_PROT:
		reason = "protected exec"
	}
	return fmt.Sprintf("%s at %#x(%d)", reason, m.Addr, m.Size)
}

// MemSim is an address-range registry over disjoint pages.
// Every access must fall inside exactly one page; there is no access spanning two mappings.
type MemSim struct {
	Mem Pages
}

// Checks whether the address range lies inside a single mapped page.
// If prot > 0, ensures that the page has the entire protection mask provided.
func (m *MemSim) RangeValid(addr, size uint64, prot int) (mapGood bool, protGood bool) {
	page := m.Mem.Find(addr)
	if page == nil || !page.ContainsRange(addr, size) {
		return false, false
	}
	protGood = prot <= 0 || page.Prot&prot == prot
	return true, protGood
}

// Resolve maps a guest address to its page and the offset inside it.
func (m *MemSim) Resolve(addr uint64) (*Page, uint64, bool) {
	page := m.Mem.Find(addr)
	if page == nil {
		return nil, 0, false
	}
	return page, addr - page.Addr, true
}

// Maps <addr> - <addr>+<size> with protection prot.
// Mappings are never merged or replaced: a request overlapping an existing page fails.
// The page list stays sorted by address for binary search.
func (m *MemSim) Map(addr, size uint64, prot int) (*Page, error) {
	if size == 0 {
		return nil, errors.Errorf("zero-size mapping at %#x", addr)
	}
	if addr+size < addr {
		return nil, errors.Errorf("mapping %#x+%#x wraps the address space", addr, size)
	}
	for _, mm := range m.Mem {
		if mm.Overlaps(addr, size) {
			return nil, errors.Errorf("mapping %#x-%#x overlaps %s", addr, addr+size, mm)
		}
	}
	page := NewPage(addr, size, prot)
	m.Mem = append(m.Mem, page)
	slices.SortFunc(m.Mem, func(a, b *Page) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		}
		return 0
	})
	return page, nil
}

// Read fills p from addr. Nothing is read unless the whole range is valid.
func (m *MemSim) Read(addr uint64, p []byte, prot int) error {
	if gmap, gprot := m.RangeValid(addr, uint64(len(p)), prot); !gmap {
		if prot&PROT_EXEC == PROT_EXEC {
			return &MemError{Addr: addr, Size: len(p), Enum: MEM_FETCH_UNMAPPED}
		}
		return &MemError{Addr: addr, Size: len(p), Enum: MEM_READ_UNMAPPED}
	} else if !gprot {
		if prot&PROT_EXEC == PROT_EXEC {
			return &MemError{Addr: addr, Size: len(p), Enum: MEM_FETCH_PROT}
		}
		return &MemError{Addr: addr, Size: len(p), Enum: MEM_READ_PROT}
	}
	page, off, _ := m.Resolve(addr)
	page.ReadAt(p, off)
	return nil
}

// Write copies p to addr. Nothing is written unless the whole range is valid.
func (m *MemSim) Write(addr uint64, p []byte, prot int) error {
	if gmap, gprot := m.RangeValid(addr, uint64(len(p)), prot); !gmap {
		return &MemError{Addr: addr, Size: len(p), Enum: MEM_WRITE_UNMAPPED}
	} else if !gprot {
		return &MemError{Addr: addr, Size: len(p), Enum: MEM_WRITE_PROT}
	}
	page, off, _ := m.Resolve(addr)
	page.WriteAt(p, off)
	return nil
}
