package cpu

// Cpu is what difftest.Ref drives. Hooks back store watches and console tracing, and contexts back snapshot rollback.
type Cpu interface {
	// memory mapping
	MemMapProt(addr, size uint64, prot int) error

	// memory IO
	MemRead(addr, size uint64) ([]byte, error)
	MemReadInto(p []byte, addr uint64) error
	MemWrite(addr uint64, p []byte) error

	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// Step retires up to n instructions from the current pc.
	// An architectural trap ends the batch early and is returned as *Trap.
	Step(n uint64) error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64, extra ...int) (Hook, error)
	HookDel(hook Hook) error

	// save/restore entire CPU state
	ContextSave(reuse interface{}) (interface{}, error)
	ContextRestore(ctx interface{}) error

	// cleanup
	Close() error
}

type Builder interface {
	New() (Cpu, error)
}

// Interrupter is implemented by engines that can take an external interrupt on demand.
type Interrupter interface {
	Interrupt(cause uint64) error
}

// VectorUnit exposes a vector register file as raw bytes.
// VLenB returns 0 when the engine was configured without vector support.
type VectorUnit interface {
	VLenB() int
	VecRead(reg int, p []byte) error
	VecWrite(reg int, p []byte) error
}
