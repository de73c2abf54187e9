package models

import "fmt"

// ExitStatus is the code a guest program passed to its exit call.
type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit %d", e)
}

// Good reports whether the guest exited successfully.
func (e ExitStatus) Good() bool {
	return e == 0
}

func (e ExitStatus) String() string {
	if e.Good() {
		return "HIT GOOD TRAP"
	}
	return fmt.Sprintf("HIT BAD TRAP (code %d)", int(e))
}
