package riscv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

// Builder configures a pure-Go RV32 interpreter. A nil Isa means rv32i.
type Builder struct {
	Isa *rv.Isa
}

// extensions the interpreter cannot execute
const unsupported = "adqcbh"

func (b *Builder) New() (cpu.Cpu, error) {
	isa := b.Isa
	if isa == nil {
		var err error
		if isa, err = rv.ParseIsa("rv32i"); err != nil {
			return nil, err
		}
	}
	for _, c := range []byte(unsupported) {
		if isa.Has(c) {
			return nil, errors.Errorf("riscv: extension %q is not supported by this engine", c)
		}
	}
	for _, ext := range isa.Multi {
		if len(ext) > 5 && ext[:5] == "zve64" {
			return nil, errors.Errorf("riscv: %s needs ELEN=64, only 32 is supported", ext)
		}
	}
	c := &RiscvCpu{
		Regs: cpu.NewRegs(32, rv.CoreRegs()),
		Mem:  cpu.NewMem(32, binary.LittleEndian),
		isa:  isa,
		rve:  isa.Has('e'),
		fpu:  isa.Has('f'),
	}
	c.Regs.Hardwire(rv.X0)
	c.csr = newCsrFile(isa)
	if isa.Vector() {
		c.vec = newVecUnit(isa.VLenB)
	}
	c.Hooks = cpu.NewHooks(c, c.Mem)
	return c, nil
}

// RiscvCpu is a single-hart machine-mode RV32 interpreter.
type RiscvCpu struct {
	*cpu.Hooks
	*cpu.Regs
	*cpu.Mem

	isa *rv.Isa
	csr *csrFile
	vec *vecUnit
	rve bool
	fpu bool
}

type exception struct {
	cause uint32
	tval  uint32
}

func (c *RiscvCpu) x(r uint32) uint32 {
	return uint32(c.Get(int(r)))
}

func (c *RiscvCpu) setx(r uint32, val uint32) {
	c.Set(int(r), uint64(val))
}

func (c *RiscvCpu) RegRead(enum int) (uint64, error) {
	if addr, ok := rv.CSRAddr(enum); ok {
		if val, ok := c.csr.read(addr); ok {
			return uint64(val), nil
		}
		return 0, errors.Errorf("unimplemented csr %#x", addr)
	}
	if enum >= rv.F0 && enum <= rv.F31 && !c.fpu {
		return 0, errors.New("no floating point unit")
	}
	return c.Regs.RegRead(enum)
}

func (c *RiscvCpu) RegWrite(enum int, val uint64) error {
	if addr, ok := rv.CSRAddr(enum); ok {
		if !c.csr.write(addr, uint32(val)) {
			return errors.Errorf("unimplemented csr %#x", addr)
		}
		return nil
	}
	if enum >= rv.F0 && enum <= rv.F31 && !c.fpu {
		return errors.New("no floating point unit")
	}
	return c.Regs.RegWrite(enum, val)
}

func (c *RiscvCpu) Step(n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := c.step(); err != nil {
			return err
		}
	}
	return nil
}

func (c *RiscvCpu) step() error {
	pc := uint32(c.Get(rv.PC))
	var exc *exception
	var next uint32
	if pc&3 != 0 {
		exc = &exception{rv.CAUSE_MISALIGNED_FETCH, pc}
	} else if word, err := c.ReadUint(uint64(pc), 4, cpu.PROT_EXEC); err != nil {
		exc = &exception{rv.CAUSE_FETCH_ACCESS, pc}
	} else {
		c.OnCode(uint64(pc), 4)
		next, exc = c.exec(uint32(word), pc)
	}
	c.csr.tick(exc == nil)
	if exc != nil {
		return c.takeTrap(pc, exc.cause, exc.tval, false)
	}
	c.Set(rv.PC, uint64(next))
	return nil
}

// takeTrap enters the machine-mode handler the way hardware does and reports the trap.
func (c *RiscvCpu) takeTrap(pc, cause, tval uint32, interrupt bool) *cpu.Trap {
	mcause := cause
	if interrupt {
		mcause |= rv.CAUSE_INTERRUPT
	}
	f := c.csr
	f.mepc, f.mcause, f.mtval = pc, mcause, tval
	mpie := uint32(0)
	if f.mstatus&rv.MSTATUS_MIE != 0 {
		mpie = rv.MSTATUS_MPIE
	}
	f.mstatus = f.mstatus&^(rv.MSTATUS_MIE|rv.MSTATUS_MPIE) | mpie | rv.MSTATUS_MPP
	handler := f.mtvec &^ 3
	if interrupt && f.mtvec&1 != 0 {
		handler += 4 * cause
	}
	c.Set(rv.PC, uint64(handler))
	c.OnIntr(mcause)
	return &cpu.Trap{
		Cause:     uint64(cause),
		Tval:      uint64(tval),
		Pc:        uint64(pc),
		Interrupt: interrupt,
		Syscall: !interrupt && (cause == rv.CAUSE_USER_ECALL ||
			cause == rv.CAUSE_SUPERVISOR_ECALL || cause == rv.CAUSE_MACHINE_ECALL),
	}
}

// Interrupt takes an external interrupt before the next instruction, regardless of mie.
func (c *RiscvCpu) Interrupt(cause uint64) error {
	if cause >= rv.CAUSE_INTERRUPT {
		return errors.Errorf("interrupt cause out of range: %#x", cause)
	}
	c.takeTrap(uint32(c.Get(rv.PC)), uint32(cause), 0, true)
	return nil
}

func (c *RiscvCpu) VLenB() int {
	if c.vec == nil {
		return 0
	}
	return c.vec.vlenb
}

// VecRead copies len(p)/vlenb consecutive vector registers starting at reg.
func (c *RiscvCpu) VecRead(reg int, p []byte) error {
	off, err := c.vecRange(reg, len(p))
	if err != nil {
		return err
	}
	copy(p, c.vec.regs[off:])
	return nil
}

func (c *RiscvCpu) VecWrite(reg int, p []byte) error {
	off, err := c.vecRange(reg, len(p))
	if err != nil {
		return err
	}
	copy(c.vec.regs[off:], p)
	return nil
}

func (c *RiscvCpu) vecRange(reg, size int) (int, error) {
	if c.vec == nil {
		return 0, errors.New("no vector unit")
	}
	vlenb := c.vec.vlenb
	if reg < 0 || reg >= 32 || size%vlenb != 0 || reg+size/vlenb > 32 {
		return 0, errors.Errorf("bad vector register range v%d+%d", reg, size)
	}
	return reg * vlenb, nil
}

type savedState struct {
	regs interface{}
	csr  csrFile
	vec  []byte
}

func (c *RiscvCpu) ContextSave(reuse interface{}) (interface{}, error) {
	var ctx *savedState
	if reuse != nil {
		var ok bool
		if ctx, ok = reuse.(*savedState); !ok {
			return nil, errors.New("incorrect context type")
		}
	} else {
		ctx = &savedState{}
	}
	regs, err := c.Regs.ContextSave(ctx.regs)
	if err != nil {
		return nil, err
	}
	ctx.regs, ctx.csr = regs, *c.csr
	if c.vec != nil {
		ctx.vec = append(ctx.vec[:0], c.vec.regs...)
	}
	return ctx, nil
}

func (c *RiscvCpu) ContextRestore(saved interface{}) error {
	ctx, ok := saved.(*savedState)
	if !ok {
		return errors.New("incorrect context type")
	}
	if err := c.Regs.ContextRestore(ctx.regs); err != nil {
		return err
	}
	*c.csr = ctx.csr
	if c.vec != nil {
		copy(c.vec.regs, ctx.vec)
	}
	return nil
}

func (c *RiscvCpu) Close() error {
	return nil
}
