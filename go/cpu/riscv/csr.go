package riscv

import (
	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

const (
	fsInitial = 1 << 13
	fsDirty   = 3 << 13
	vsInitial = 1 << 9
	vsDirty   = 3 << 9

	mieMask = 1<<3 | 1<<7 | 1<<11
)

// csrFile holds every control and status register of a machine-mode-only hart.
type csrFile struct {
	misa   uint32
	fpu    bool
	vector bool
	vlenb  uint32

	mstatus  uint32
	mie      uint32
	mip      uint32
	mtvec    uint32
	mscratch uint32
	mepc     uint32
	mcause   uint32
	mtval    uint32

	cycle   uint64
	instret uint64
	// set when an instruction writes minstret, so it does not also count itself
	instretWritten bool

	fflags uint32
	frm    uint32

	vstart uint32
	vxsat  uint32
	vxrm   uint32
	vl     uint32
	vtype  uint32
}

func newCsrFile(isa *rv.Isa) *csrFile {
	f := &csrFile{
		misa:    isa.Misa(),
		fpu:     isa.Has('f'),
		vector:  isa.Vector(),
		vlenb:   uint32(isa.VLenB),
		mstatus: rv.MSTATUS_MPP,
	}
	if f.fpu {
		f.mstatus |= fsInitial
	}
	if f.vector {
		f.mstatus |= vsInitial
		f.vtype = vtypeVill
	}
	return f
}

func (f *csrFile) mstatusMask() uint32 {
	mask := uint32(rv.MSTATUS_MIE | rv.MSTATUS_MPIE)
	if f.fpu {
		mask |= rv.MSTATUS_FS
	}
	if f.vector {
		mask |= rv.MSTATUS_VS
	}
	return mask
}

// tick advances the counters after each attempted instruction.
func (f *csrFile) tick(retired bool) {
	f.cycle++
	if retired && !f.instretWritten {
		f.instret++
	}
	f.instretWritten = false
}

func (f *csrFile) fsDirty() {
	f.mstatus |= fsDirty
}

func (f *csrFile) vsDirty() {
	f.mstatus |= vsDirty
}

// read returns false for CSRs this hart does not implement.
func (f *csrFile) read(addr uint16) (uint32, bool) {
	switch addr {
	case rv.CSR_MSTATUS:
		return f.mstatus, true
	case rv.CSR_MISA:
		return f.misa, true
	case rv.CSR_MIE:
		return f.mie, true
	case rv.CSR_MIP:
		return f.mip, true
	case rv.CSR_MTVEC:
		return f.mtvec, true
	case rv.CSR_MSCRATCH:
		return f.mscratch, true
	case rv.CSR_MEPC:
		return f.mepc, true
	case rv.CSR_MCAUSE:
		return f.mcause, true
	case rv.CSR_MTVAL:
		return f.mtval, true
	case rv.CSR_MVENDORID, rv.CSR_MARCHID, rv.CSR_MIMPID, rv.CSR_MHARTID:
		return 0, true
	case rv.CSR_MCYCLE, rv.CSR_CYCLE:
		return uint32(f.cycle), true
	case rv.CSR_MCYCLEH, rv.CSR_CYCLEH:
		return uint32(f.cycle >> 32), true
	case rv.CSR_MINSTRET, rv.CSR_INSTRET:
		return uint32(f.instret), true
	case rv.CSR_MINSTRETH, rv.CSR_INSTRETH:
		return uint32(f.instret >> 32), true
	}
	if f.fpu {
		switch addr {
		case rv.CSR_FFLAGS:
			return f.fflags, true
		case rv.CSR_FRM:
			return f.frm, true
		case rv.CSR_FCSR:
			return f.frm<<5 | f.fflags, true
		}
	}
	if f.vector {
		switch addr {
		case rv.CSR_VSTART:
			return f.vstart, true
		case rv.CSR_VXSAT:
			return f.vxsat, true
		case rv.CSR_VXRM:
			return f.vxrm, true
		case rv.CSR_VCSR:
			return f.vxrm<<1 | f.vxsat, true
		case rv.CSR_VL:
			return f.vl, true
		case rv.CSR_VTYPE:
			return f.vtype, true
		case rv.CSR_VLENB:
			return f.vlenb, true
		}
	}
	return 0, false
}

// write applies WARL rules. Read-only CSRs ignore the value; privilege checks are the caller's job.
func (f *csrFile) write(addr uint16, val uint32) bool {
	if _, ok := f.read(addr); !ok {
		return false
	}
	switch addr {
	case rv.CSR_MSTATUS:
		mask := f.mstatusMask()
		f.mstatus = f.mstatus&^mask | val&mask | rv.MSTATUS_MPP
	case rv.CSR_MIE:
		f.mie = val & mieMask
	case rv.CSR_MTVEC:
		f.mtvec = val &^ 2
	case rv.CSR_MSCRATCH:
		f.mscratch = val
	case rv.CSR_MEPC:
		f.mepc = val &^ 3
	case rv.CSR_MCAUSE:
		f.mcause = val
	case rv.CSR_MTVAL:
		f.mtval = val
	case rv.CSR_MCYCLE:
		f.cycle = f.cycle&^0xffffffff | uint64(val)
	case rv.CSR_MCYCLEH:
		f.cycle = f.cycle&0xffffffff | uint64(val)<<32
	case rv.CSR_MINSTRET:
		f.instret = f.instret&^0xffffffff | uint64(val)
		f.instretWritten = true
	case rv.CSR_MINSTRETH:
		f.instret = f.instret&0xffffffff | uint64(val)<<32
		f.instretWritten = true
	case rv.CSR_FFLAGS:
		f.fflags = val & 0x1f
		f.fsDirty()
	case rv.CSR_FRM:
		f.frm = val & 7
		f.fsDirty()
	case rv.CSR_FCSR:
		f.fflags, f.frm = val&0x1f, val>>5&7
		f.fsDirty()
	case rv.CSR_VSTART:
		f.vstart = val
		f.vsDirty()
	case rv.CSR_VXSAT:
		f.vxsat = val & 1
		f.vsDirty()
	case rv.CSR_VXRM:
		f.vxrm = val & 3
		f.vsDirty()
	case rv.CSR_VCSR:
		f.vxsat, f.vxrm = val&1, val>>1&3
		f.vsDirty()
	// vl and vtype are read-only to instructions, these writes only come from state injection
	case rv.CSR_VL:
		f.vl = val
	case rv.CSR_VTYPE:
		f.vtype = val
	}
	return true
}
