package difftest

import (
	"github.com/pkg/errors"
)

var (
	// ErrConfig is returned by New for a bad layout or ISA string. No instance is created.
	ErrConfig = errors.New("invalid reference configuration")
	// ErrOutOfRange means a memory range was not contained in a single region. Nothing was copied.
	ErrOutOfRange = errors.New("address range outside memory layout")
	ErrIndex      = errors.New("register index out of range")
	// ErrStaleView is returned by a LiveRegs used after the Ref was mutated.
	ErrStaleView = errors.New("live register view used after mutation")
)
