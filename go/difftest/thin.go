package difftest

// Direction selects which side of a thin-binding copy is the destination.
type Direction uint8

const (
	ToDut Direction = iota
	ToRef
)

func (d Direction) String() string {
	if d == ToRef {
		return "to-ref"
	}
	return "to-dut"
}

// Thin is the four-primitive projection of a Ref used by harnesses that only speak memcpy/regcpy/exec/raise_intr.
type Thin struct {
	*Ref
}

func NewThin(ref *Ref) Thin {
	return Thin{ref}
}

// Memcpy copies buf into reference memory (ToRef) or reference memory into buf (ToDut).
func (t Thin) Memcpy(addr uint32, buf []byte, dir Direction) error {
	if dir == ToRef {
		return t.SyncMem(uint64(addr), buf)
	}
	return t.ReadMemInto(buf, uint64(addr))
}

// Regcpy copies pc and the general registers in the given direction.
func (t Thin) Regcpy(r *Regs, dir Direction) {
	if dir == ToRef {
		t.SyncRegs(*r)
		return
	}
	*r = t.Regs()
}

func (t Thin) Exec(n uint64) Outcome {
	return t.StepN(n)
}

// RaiseIntr takes interrupt number no before the next instruction.
// Causes with the interrupt bit set, or at or above it, are rejected and change nothing.
func (t Thin) RaiseIntr(no uint64) error {
	if err := t.Interrupt(no); err != nil {
		t.logf("raise_intr %d: %v", no, err)
		return err
	}
	return nil
}
