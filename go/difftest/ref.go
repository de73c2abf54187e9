package difftest

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/cpu/riscv"
	"github.com/lunixbochs/difftest/go/models"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

// Ref adapts a reference engine to the difftest contract.
// A Ref is not safe for concurrent use.
type Ref struct {
	layout Layout
	isa    *rv.Isa
	cpu    cpu.Cpu
	policy ExitPolicy

	out     io.Writer
	verbose bool

	// bumped by every mutating call, see LiveRegs
	gen    uint64
	closed bool

	lastTrap *cpu.Trap
	exitCode models.ExitStatus
}

// New builds a reference model with the given memory layout, initial pc and registers.
// gpr may be nil for all zeros. x0 is always zero.
func New(layout Layout, pc uint32, gpr *[32]uint32, isa string, opts ...Option) (*Ref, error) {
	o := &options{out: io.Discard, policy: DefaultExitPolicy}
	for _, opt := range opts {
		opt(o)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	parsed, err := rv.ParseIsa(isa)
	if err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	if o.engine == nil {
		o.engine = &riscv.Builder{Isa: parsed}
	}
	c, err := o.engine.New()
	if err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	for _, r := range layout {
		if err := c.MemMapProt(r.Base, r.Size, cpu.PROT_ALL); err != nil {
			c.Close()
			return nil, errors.Wrapf(ErrConfig, "mapping %s: %v", r, err)
		}
	}
	ref := &Ref{
		layout:  append(Layout(nil), layout...),
		isa:     parsed,
		cpu:     c,
		policy:  o.policy,
		out:     o.out,
		verbose: o.verbose,
	}
	regs := Regs{PC: pc}
	if gpr != nil {
		regs.GPR = *gpr
	}
	if err := ref.setRegs(&regs); err != nil {
		c.Close()
		return nil, err
	}
	ref.logf("created %s reference with %d regions: %s", parsed, len(layout), ref.layout)
	return ref, nil
}

func (r *Ref) logf(format string, a ...interface{}) {
	if r.verbose {
		fmt.Fprintf(r.out, "[ref] "+format+"\n", a...)
	}
}

func (r *Ref) mutate() {
	r.gen++
}

func (r *Ref) Layout() Layout { return r.layout }
func (r *Ref) Isa() *rv.Isa   { return r.isa }

// Engine exposes the wrapped engine for tooling such as the debug console.
func (r *Ref) Engine() cpu.Cpu { return r.cpu }

func (r *Ref) check(addr uint64, n int) error {
	if _, ok := r.layout.Find(addr, uint64(n)); !ok {
		return errors.Wrapf(ErrOutOfRange, "%#x+%#x", addr, n)
	}
	return nil
}

func (r *Ref) write(addr uint64, p []byte) error {
	if err := r.check(addr, len(p)); err != nil {
		return err
	}
	r.mutate()
	if len(p) == 0 {
		return nil
	}
	if err := r.cpu.MemWrite(addr, p); err != nil {
		return errors.Wrap(ErrOutOfRange, err.Error())
	}
	return nil
}

// LoadImage copies a program image into memory.
func (r *Ref) LoadImage(addr uint64, p []byte) error {
	r.logf("load %#x bytes at %#x", len(p), addr)
	return r.write(addr, p)
}

// SyncMem overwrites reference memory with state taken from the DUT.
func (r *Ref) SyncMem(addr uint64, p []byte) error {
	return r.write(addr, p)
}

// WriteMem performs a harness-initiated store. It behaves exactly like SyncMem.
func (r *Ref) WriteMem(addr uint64, p []byte) error {
	return r.write(addr, p)
}

func (r *Ref) ReadMem(addr uint64, n int) ([]byte, error) {
	p := make([]byte, n)
	if err := r.ReadMemInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Ref) ReadMemInto(p []byte, addr uint64) error {
	if err := r.check(addr, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	if err := r.cpu.MemReadInto(p, addr); err != nil {
		return errors.Wrap(ErrOutOfRange, err.Error())
	}
	return nil
}

// WatchStores calls fn for every store the engine retires that overlaps [addr, addr+size).
// Harness writes such as SyncMem are not reported.
func (r *Ref) WatchStores(addr uint64, size int, fn func(addr uint64, size int, val uint64)) (cpu.Hook, error) {
	if err := r.check(addr, size); err != nil {
		return nil, err
	}
	end := addr + uint64(size)
	cb := func(_ cpu.Cpu, _ int, a uint64, n int, val int64) {
		if a < end && a+uint64(n) > addr {
			fn(a, n, uint64(val))
		}
	}
	hh, err := r.cpu.HookAdd(cpu.HOOK_MEM_WRITE, cpu.MemCb(cb), 1, 0)
	if err != nil {
		return nil, errors.Wrap(err, "store hook")
	}
	return hh, nil
}

func (r *Ref) UnwatchStores(hh cpu.Hook) error {
	return r.cpu.HookDel(hh)
}

func (r *Ref) setRegs(regs *Regs) error {
	r.mutate()
	if err := r.cpu.RegWrite(rv.PC, uint64(regs.PC)); err != nil {
		return err
	}
	for i := 1; i < 32; i++ {
		if err := r.cpu.RegWrite(rv.X0+i, uint64(regs.GPR[i])); err != nil {
			return err
		}
	}
	return nil
}

// SyncRegs writes pc and the general registers. regs.GPR[0] is ignored.
func (r *Ref) SyncRegs(regs Regs) {
	if err := r.setRegs(&regs); err != nil {
		r.logf("register sync failed: %v", err)
	}
}

// Regs returns a copy of pc and the general registers.
func (r *Ref) Regs() Regs {
	var regs Regs
	pc, _ := r.cpu.RegRead(rv.PC)
	regs.PC = uint32(pc)
	for i := 1; i < 32; i++ {
		val, _ := r.cpu.RegRead(rv.X0 + i)
		regs.GPR[i] = uint32(val)
	}
	return regs
}

// Live returns a view of the registers that is valid until the next mutating call.
func (r *Ref) Live() LiveRegs {
	return LiveRegs{ref: r, gen: r.gen}
}

// ReadCSR returns 0 for CSRs the configured hart does not implement.
func (r *Ref) ReadCSR(addr uint16) uint32 {
	val, err := r.cpu.RegRead(rv.CSR(addr))
	if err != nil {
		return 0
	}
	return uint32(val)
}

// WriteCSR is used to inject CSR state. It reports false for unimplemented CSRs.
func (r *Ref) WriteCSR(addr uint16, val uint32) bool {
	r.mutate()
	return r.cpu.RegWrite(rv.CSR(addr), uint64(val)) == nil
}

// ReadFPRBits returns the raw bits of an f register, or 0 without the F extension.
func (r *Ref) ReadFPRBits(i int) (uint32, error) {
	if i < 0 || i >= 32 {
		return 0, errors.Wrapf(ErrIndex, "fpr %d", i)
	}
	val, err := r.cpu.RegRead(rv.F0 + i)
	if err != nil {
		return 0, nil
	}
	return uint32(val), nil
}

func (r *Ref) ReadFPR(i int) (float32, error) {
	bits, err := r.ReadFPRBits(i)
	return math.Float32frombits(bits), err
}

// WriteFPRBits injects an f register. It reports false without the F extension.
func (r *Ref) WriteFPRBits(i int, bits uint32) bool {
	if i < 0 || i >= 32 {
		return false
	}
	r.mutate()
	return r.cpu.RegWrite(rv.F0+i, uint64(bits)) == nil
}

func (r *Ref) vector() cpu.VectorUnit {
	if vu, ok := r.cpu.(cpu.VectorUnit); ok && vu.VLenB() > 0 {
		return vu
	}
	return nil
}

// VectorWidth returns the size of one vector register in bytes, 0 without a vector unit.
func (r *Ref) VectorWidth() int {
	if vu := r.vector(); vu != nil {
		return vu.VLenB()
	}
	return 0
}

// SyncVectorFile replaces all 32 vector registers. It does nothing and returns false unless len(p) == 32*VectorWidth().
func (r *Ref) SyncVectorFile(p []byte) bool {
	vu := r.vector()
	if vu == nil || len(p) != 32*vu.VLenB() {
		return false
	}
	r.mutate()
	return vu.VecWrite(0, p) == nil
}

// WriteVectorRegister replaces one vector register. len(p) must equal VectorWidth().
func (r *Ref) WriteVectorRegister(i int, p []byte) bool {
	vu := r.vector()
	if vu == nil || i < 0 || i >= 32 || len(p) != vu.VLenB() {
		return false
	}
	r.mutate()
	return vu.VecWrite(i, p) == nil
}

func (r *Ref) ReadVectorRegister(i int) ([]byte, bool) {
	vu := r.vector()
	if vu == nil || i < 0 || i >= 32 {
		return nil, false
	}
	p := make([]byte, vu.VLenB())
	if err := vu.VecRead(i, p); err != nil {
		return nil, false
	}
	return p, true
}

// Step executes one instruction.
func (r *Ref) Step() Outcome {
	return r.StepN(1)
}

// StepN executes up to n instructions, stopping at the first trap.
func (r *Ref) StepN(n uint64) Outcome {
	r.mutate()
	r.lastTrap = nil
	err := r.cpu.Step(n)
	if err == nil {
		return Continue
	}
	trap, ok := errors.Cause(err).(*cpu.Trap)
	if !ok {
		r.logf("engine error: %v", err)
		return Fault
	}
	r.lastTrap = trap
	if trap.Syscall {
		a7, _ := r.cpu.RegRead(rv.A7)
		if r.policy.IsExit(uint32(a7)) {
			a0, _ := r.cpu.RegRead(rv.A0)
			r.exitCode = models.ExitStatus(int32(a0))
			r.logf("exit call %d at %#x: %s", a7, trap.Pc, r.exitCode)
			return Exit
		}
	}
	r.logf("%v", trap)
	return Fault
}

// Interrupt takes an asynchronous interrupt before the next instruction.
func (r *Ref) Interrupt(cause uint64) error {
	intr, ok := r.cpu.(cpu.Interrupter)
	if !ok {
		return errors.New("engine does not support interrupts")
	}
	r.mutate()
	return intr.Interrupt(cause)
}

// LastTrap is the trap that ended the most recent step, or nil.
func (r *Ref) LastTrap() *cpu.Trap {
	return r.lastTrap
}

// ExitCode is a0 at the most recent exit call.
func (r *Ref) ExitCode() int {
	return int(r.exitCode)
}

func (r *Ref) ExitStatus() models.ExitStatus {
	return r.exitCode
}

// Close releases the engine and its memory. Calling Close twice is the caller's bug.
func (r *Ref) Close() error {
	r.mutate()
	r.closed = true
	r.logf("closed")
	return r.cpu.Close()
}
