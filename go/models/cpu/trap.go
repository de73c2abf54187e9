package cpu

import "fmt"

// Trap describes a synchronous exception or interrupt taken by an engine.
// By the time a Trap is returned the engine has already redirected execution to its handler.
type Trap struct {
	Cause uint64
	Tval  uint64
	// Pc is the address of the trapping instruction.
	Pc uint64

	Interrupt bool
	// Syscall is set for environment calls.
	Syscall bool
}

func (t *Trap) Error() string {
	if t.Interrupt {
		return fmt.Sprintf("interrupt %d at %#x", t.Cause, t.Pc)
	}
	if t.Syscall {
		return fmt.Sprintf("environment call at %#x", t.Pc)
	}
	return fmt.Sprintf("trap cause=%d tval=%#x at %#x", t.Cause, t.Tval, t.Pc)
}
