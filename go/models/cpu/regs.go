package cpu

import (
	"github.com/pkg/errors"
)

// implements register and context methods conforming to cpu.Cpu
// registers live in a slice indexed by enum, so enums should be small and dense
type Regs struct {
	mask  uint64
	vals  []uint64
	valid []bool
	// hardwired registers always read as zero and discard writes
	zero []bool
}

func NewRegs(bits uint, enums []int) *Regs {
	top := 0
	for _, e := range enums {
		if e < 0 {
			panic("negative register enum")
		}
		if e > top {
			top = e
		}
	}
	r := &Regs{
		mask:  ^uint64(0) >> (64 - bits),
		vals:  make([]uint64, top+1),
		valid: make([]bool, top+1),
		zero:  make([]bool, top+1),
	}
	for _, e := range enums {
		r.valid[e] = true
	}
	return r
}

// Hardwire marks registers as constant zero.
func (r *Regs) Hardwire(enums ...int) {
	for _, e := range enums {
		if r.ok(e) {
			r.zero[e] = true
			r.vals[e] = 0
		}
	}
}

func (r *Regs) ok(enum int) bool {
	return enum >= 0 && enum < len(r.valid) && r.valid[enum]
}

func (r *Regs) RegRead(enum int) (uint64, error) {
	if !r.ok(enum) {
		return 0, errors.Errorf("invalid register: %d", enum)
	}
	return r.vals[enum], nil
}

func (r *Regs) RegWrite(enum int, val uint64) error {
	if !r.ok(enum) {
		return errors.Errorf("invalid register: %d", enum)
	}
	r.Set(enum, val)
	return nil
}

// Get and Set skip validation. They exist for interpreters that decode register numbers themselves.
func (r *Regs) Get(enum int) uint64 {
	return r.vals[enum]
}

func (r *Regs) Set(enum int, val uint64) {
	if !r.zero[enum] {
		r.vals[enum] = val & r.mask
	}
}

// handling ContextSave in the register file either requires you to store important cpu state (like flags) in registers
// or wrap ContextSave/ContextRestore with your own functions
func (r *Regs) ContextSave(reuse interface{}) (interface{}, error) {
	var s []uint64
	if reuse != nil {
		var ok bool
		if s, ok = reuse.([]uint64); !ok || len(s) != len(r.vals) {
			return nil, errors.New("incorrect context type")
		}
	} else {
		s = make([]uint64, len(r.vals))
	}
	copy(s, r.vals)
	return s, nil
}

func (r *Regs) ContextRestore(ctx interface{}) error {
	s, ok := ctx.([]uint64)
	if !ok || len(s) != len(r.vals) {
		return errors.New("incorrect context type")
	}
	copy(r.vals, s)
	for i, z := range r.zero {
		if z {
			r.vals[i] = 0
		}
	}
	return nil
}
