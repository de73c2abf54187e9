//go:build unicorn

package unicorn

import (
	"strings"

	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

// pc can never be odd without the C extension, so this address is never reached
const noUntil = 1

// single-letter extensions Unicorn's RV32 core implements
const letters = "imafdc"

// multi-letter extensions that need nothing beyond the base core
var multi = map[string]bool{"zicsr": true, "zifencei": true}

// Builder wraps a Unicorn RV32 engine. A nil Isa means rv32i.
type Builder struct {
	Isa *rv.Isa
}

func (b *Builder) check() error {
	isa := b.Isa
	if isa == nil {
		return nil
	}
	if isa.Xlen != 32 {
		return errors.Errorf("unicorn: xlen %d is not supported", isa.Xlen)
	}
	if isa.Vector() {
		return errors.Errorf("unicorn: vector extensions are not supported (%s)", isa)
	}
	for c := byte('a'); c <= 'z'; c++ {
		if isa.Has(c) && c != 'i' && strings.IndexByte(letters, c) < 0 {
			return errors.Errorf("unicorn: extension %q is not supported", c)
		}
	}
	for _, ext := range isa.Multi {
		if !multi[ext] {
			return errors.Errorf("unicorn: extension %s is not supported", ext)
		}
	}
	return nil
}

func (b *Builder) New() (cpu.Cpu, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	u, err := uc.NewUnicorn(uc.ARCH_RISCV, uc.MODE_RISCV32)
	if err != nil {
		return nil, errors.Wrap(err, "NewUnicorn() failed")
	}
	c := &UnicornCpu{Unicorn: u, fpu: b.Isa != nil && b.Isa.Has('f')}
	if _, err := u.HookAdd(uc.HOOK_INTR, c.onIntr, 1, 0); err != nil {
		u.Close()
		return nil, errors.Wrap(err, "failed to hook interrupts")
	}
	return c, nil
}

type UnicornCpu struct {
	uc.Unicorn
	trap *cpu.Trap
	fpu  bool
}

var csrRegs = map[uint16]int{
	rv.CSR_MSTATUS:  uc.RISCV_REG_MSTATUS,
	rv.CSR_MISA:     uc.RISCV_REG_MISA,
	rv.CSR_MIE:      uc.RISCV_REG_MIE,
	rv.CSR_MIP:      uc.RISCV_REG_MIP,
	rv.CSR_MTVEC:    uc.RISCV_REG_MTVEC,
	rv.CSR_MSCRATCH: uc.RISCV_REG_MSCRATCH,
	rv.CSR_MEPC:     uc.RISCV_REG_MEPC,
	rv.CSR_MCAUSE:   uc.RISCV_REG_MCAUSE,
	rv.CSR_MTVAL:    uc.RISCV_REG_MTVAL,
	rv.CSR_FFLAGS:   uc.RISCV_REG_FFLAGS,
	rv.CSR_FRM:      uc.RISCV_REG_FRM,
	rv.CSR_FCSR:     uc.RISCV_REG_FCSR,
}

// ucReg translates a riscv register enum to Unicorn's numbering.
func (u *UnicornCpu) ucReg(enum int) (int, error) {
	switch {
	case enum >= rv.X0 && enum <= rv.X31:
		return uc.RISCV_REG_X0 + enum - rv.X0, nil
	case enum >= rv.F0 && enum <= rv.F31:
		if !u.fpu {
			return 0, errors.New("no floating point unit")
		}
		return uc.RISCV_REG_F0 + enum - rv.F0, nil
	case enum == rv.PC:
		return uc.RISCV_REG_PC, nil
	}
	if addr, ok := rv.CSRAddr(enum); ok {
		if addr == rv.CSR_FFLAGS || addr == rv.CSR_FRM || addr == rv.CSR_FCSR {
			if !u.fpu {
				return 0, errors.Errorf("unimplemented csr %#x", addr)
			}
		}
		if reg, ok := csrRegs[addr]; ok {
			return reg, nil
		}
		return 0, errors.Errorf("csr %#x not available in unicorn", addr)
	}
	return 0, errors.Errorf("invalid register: %d", enum)
}

func (u *UnicornCpu) RegRead(enum int) (uint64, error) {
	if enum == rv.X0 {
		return 0, nil
	}
	reg, err := u.ucReg(enum)
	if err != nil {
		return 0, err
	}
	val, err := u.Unicorn.RegRead(reg)
	return val & 0xffffffff, err
}

func (u *UnicornCpu) RegWrite(enum int, val uint64) error {
	if enum == rv.X0 {
		return nil
	}
	reg, err := u.ucReg(enum)
	if err != nil {
		return err
	}
	return u.Unicorn.RegWrite(reg, val&0xffffffff)
}

// MemMapProt rounds the region out to Unicorn's page granularity.
func (u *UnicornCpu) MemMapProt(addr, size uint64, prot int) error {
	start := cpu.AlignDown(addr, cpu.ChunkSize)
	end := cpu.Align(addr+size, cpu.ChunkSize)
	return u.Unicorn.MemMapProt(start, end-start, prot)
}

// onIntr records the exception and stops emulation. Unicorn does not enter the handler itself.
func (u *UnicornCpu) onIntr(_ uc.Unicorn, intno uint32) {
	pc, _ := u.Unicorn.RegRead(uc.RISCV_REG_PC)
	cause := uint64(intno)
	u.trap = &cpu.Trap{
		Cause:   cause,
		Pc:      pc,
		Syscall: cause == rv.CAUSE_MACHINE_ECALL || cause == rv.CAUSE_USER_ECALL || cause == rv.CAUSE_SUPERVISOR_ECALL,
	}
	if cause == rv.CAUSE_BREAKPOINT {
		u.trap.Tval = pc
	}
	u.Unicorn.Stop()
}

// enter performs machine-mode trap entry with register writes.
func (u *UnicornCpu) enter(t *cpu.Trap) error {
	mcause := t.Cause
	if t.Interrupt {
		mcause |= rv.CAUSE_INTERRUPT
	}
	mstatus, err := u.RegRead(rv.CSR(rv.CSR_MSTATUS))
	if err != nil {
		return err
	}
	mtvec, err := u.RegRead(rv.CSR(rv.CSR_MTVEC))
	if err != nil {
		return err
	}
	mpie := uint64(0)
	if mstatus&rv.MSTATUS_MIE != 0 {
		mpie = rv.MSTATUS_MPIE
	}
	mstatus = mstatus&^(rv.MSTATUS_MIE|rv.MSTATUS_MPIE) | mpie | rv.MSTATUS_MPP
	handler := mtvec &^ 3
	if t.Interrupt && mtvec&1 != 0 {
		handler += 4 * t.Cause
	}
	writes := []struct {
		enum int
		val  uint64
	}{
		{rv.CSR(rv.CSR_MEPC), t.Pc},
		{rv.CSR(rv.CSR_MCAUSE), mcause},
		{rv.CSR(rv.CSR_MTVAL), t.Tval},
		{rv.CSR(rv.CSR_MSTATUS), mstatus},
		{rv.PC, handler},
	}
	for _, w := range writes {
		if err := u.RegWrite(w.enum, w.val); err != nil {
			return err
		}
	}
	return nil
}

func (u *UnicornCpu) run(begin, until uint64, opts *uc.UcOptions) error {
	u.trap = nil
	if err := u.Unicorn.StartWithOptions(begin, until, opts); err != nil && u.trap == nil {
		return err
	}
	if u.trap != nil {
		if err := u.enter(u.trap); err != nil {
			return err
		}
		return u.trap
	}
	return nil
}

func (u *UnicornCpu) Step(n uint64) error {
	pc, err := u.RegRead(rv.PC)
	if err != nil {
		return err
	}
	return u.run(pc, noUntil, &uc.UcOptions{Count: n})
}

func (u *UnicornCpu) Interrupt(cause uint64) error {
	if cause >= rv.CAUSE_INTERRUPT {
		return errors.Errorf("interrupt cause out of range: %#x", cause)
	}
	pc, err := u.RegRead(rv.PC)
	if err != nil {
		return err
	}
	return u.enter(&cpu.Trap{Cause: cause, Pc: pc, Interrupt: true})
}

func (u *UnicornCpu) ContextSave(reuse interface{}) (interface{}, error) {
	ctx, _ := reuse.(uc.Context)
	return u.Unicorn.ContextSave(ctx)
}

func (u *UnicornCpu) ContextRestore(ctx interface{}) error {
	c, ok := ctx.(uc.Context)
	if !ok {
		return errors.New("incorrect context type")
	}
	return u.Unicorn.ContextRestore(c)
}

func (u *UnicornCpu) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (cpu.Hook, error) {
	// have to wrap all hooks to conform to Cpu interface
	var wrap interface{}
	switch htype {
	case cpu.HOOK_CODE:
		cbc, ok := cb.(cpu.CodeCb)
		if !ok {
			return nil, errors.Errorf("wrong callback type %T", cb)
		}
		wrap = func(_ uc.Unicorn, addr uint64, size uint32) { cbc(u, addr, size) }

	case cpu.HOOK_MEM_READ, cpu.HOOK_MEM_WRITE, cpu.HOOK_MEM_READ | cpu.HOOK_MEM_WRITE:
		cbc, ok := cb.(cpu.MemCb)
		if !ok {
			return nil, errors.Errorf("wrong callback type %T", cb)
		}
		wrap = func(_ uc.Unicorn, access int, addr uint64, size int, val int64) { cbc(u, access, addr, size, val) }

	case cpu.HOOK_INTR:
		cbc, ok := cb.(cpu.IntrCb)
		if !ok {
			return nil, errors.Errorf("wrong callback type %T", cb)
		}
		wrap = func(_ uc.Unicorn, intno uint32) { cbc(u, intno) }

	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	return u.Unicorn.HookAdd(htype, wrap, start, end, extra...)
}

func (u *UnicornCpu) HookDel(hh cpu.Hook) error {
	h, ok := hh.(uc.Hook)
	if !ok {
		return errors.Errorf("not a unicorn hook: %T", hh)
	}
	return u.Unicorn.HookDel(h)
}
