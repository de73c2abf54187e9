package difftest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// addresses are 32 bits wide
const addrLimit = 1 << 32

// Region is one contiguous range of guest physical memory.
type Region struct {
	Base uint64 `struc:"uint64"`
	Size uint64 `struc:"uint64"`
}

func (r Region) End() uint64 {
	return r.Base + r.Size
}

// Contains reports whether [addr, addr+size) lies inside r.
// An empty range is contained when addr itself is.
func (r Region) Contains(addr, size uint64) bool {
	if size == 0 {
		return addr >= r.Base && addr < r.End()
	}
	return addr >= r.Base && addr+size >= addr && addr+size <= r.End()
}

func (r Region) String() string {
	return fmt.Sprintf("%#x-%#x", r.Base, r.End())
}

// ParseRegion parses "base:size", with either value in any Go integer syntax.
func ParseRegion(s string) (Region, error) {
	base, size, ok := strings.Cut(s, ":")
	if !ok {
		return Region{}, errors.Errorf("region %q is not base:size", s)
	}
	b, err := strconv.ParseUint(base, 0, 64)
	if err != nil {
		return Region{}, errors.Wrapf(err, "bad region base %q", base)
	}
	n, err := strconv.ParseUint(size, 0, 64)
	if err != nil {
		return Region{}, errors.Wrapf(err, "bad region size %q", size)
	}
	return Region{Base: b, Size: n}, nil
}

// Layout is the set of regions backing the reference model's address space.
type Layout []Region

// Validate checks that the layout is non-empty and its regions are non-empty, disjoint and inside 32 bits.
func (l Layout) Validate() error {
	if len(l) == 0 {
		return errors.Wrap(ErrConfig, "empty memory layout")
	}
	sorted := slices.Clone(l)
	slices.SortFunc(sorted, func(a, b Region) int {
		switch {
		case a.Base < b.Base:
			return -1
		case a.Base > b.Base:
			return 1
		}
		return 0
	})
	for i, r := range sorted {
		if r.Size == 0 {
			return errors.Wrapf(ErrConfig, "region at %#x is empty", r.Base)
		}
		if r.End() < r.Base || r.End() > addrLimit {
			return errors.Wrapf(ErrConfig, "region %s wraps the 32-bit address space", r)
		}
		if i > 0 && sorted[i-1].End() > r.Base {
			return errors.Wrapf(ErrConfig, "region %s overlaps %s", r, sorted[i-1])
		}
	}
	return nil
}

// Find returns the region holding all of [addr, addr+size).
func (l Layout) Find(addr, size uint64) (Region, bool) {
	for _, r := range l {
		if r.Contains(addr, size) {
			return r, true
		}
	}
	return Region{}, false
}

func (l Layout) String() string {
	s := make([]string, len(l))
	for i, r := range l {
		s[i] = r.String()
	}
	return strings.Join(s, ", ")
}
