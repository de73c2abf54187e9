package difftest

import (
	"fmt"
)

// Outcome classifies the result of stepping the reference model.
type Outcome int

const (
	// Continue means no trap was taken.
	Continue Outcome = iota
	// Exit means the program made an exit call recognized by the ExitPolicy.
	Exit
	// Fault is any other trap. The model has already entered its trap handler.
	Fault
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Exit:
		return "exit"
	case Fault:
		return "fault"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// syscall numbers, asm-generic
const (
	SYS_EXIT       = 93
	SYS_EXIT_GROUP = 94
)

// ExitPolicy lists the environment call numbers (taken from a7) that end the program.
// Every other environment call is a Fault.
type ExitPolicy []uint32

var DefaultExitPolicy = ExitPolicy{SYS_EXIT, SYS_EXIT_GROUP}

func (p ExitPolicy) IsExit(nr uint32) bool {
	for _, n := range p {
		if n == nr {
			return true
		}
	}
	return false
}
