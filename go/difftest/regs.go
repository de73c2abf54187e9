package difftest

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

// Regs is a copy of the scalar architectural state.
type Regs struct {
	PC  uint32     `struc:"uint32"`
	GPR [32]uint32 `struc:"[32]uint32"`
}

func (r *Regs) String() string {
	var out []string
	out = append(out, fmt.Sprintf("pc   %#08x", r.PC))
	for i, v := range r.GPR {
		out = append(out, fmt.Sprintf("%-4s %#08x", rv.GprNames[i], v))
	}
	return strings.Join(out, "\n")
}

// LiveRegs reads straight from the reference engine instead of copying.
// A LiveRegs is only valid until the next call that mutates its Ref; after that every read fails with ErrStaleView.
type LiveRegs struct {
	ref *Ref
	gen uint64
}

// Valid reports whether no mutating call has happened since the view was taken.
func (l LiveRegs) Valid() bool {
	return l.ref != nil && l.ref.gen == l.gen && !l.ref.closed
}

func (l LiveRegs) read(enum int) (uint32, error) {
	if !l.Valid() {
		return 0, ErrStaleView
	}
	val, err := l.ref.cpu.RegRead(enum)
	return uint32(val), err
}

func (l LiveRegs) PC() (uint32, error) {
	return l.read(rv.PC)
}

func (l LiveRegs) GPR(i int) (uint32, error) {
	if i < 0 || i >= 32 {
		return 0, errors.Wrapf(ErrIndex, "gpr %d", i)
	}
	if i == 0 {
		if !l.Valid() {
			return 0, ErrStaleView
		}
		return 0, nil
	}
	return l.read(rv.X0 + i)
}
