package riscv

// CSR addresses
const (
	CSR_FFLAGS = 0x001
	CSR_FRM    = 0x002
	CSR_FCSR   = 0x003

	CSR_VSTART = 0x008
	CSR_VXSAT  = 0x009
	CSR_VXRM   = 0x00a
	CSR_VCSR   = 0x00f

	CSR_CYCLE    = 0xc00
	CSR_INSTRET  = 0xc02
	CSR_CYCLEH   = 0xc80
	CSR_INSTRETH = 0xc82

	CSR_VL    = 0xc20
	CSR_VTYPE = 0xc21
	CSR_VLENB = 0xc22

	CSR_MSTATUS    = 0x300
	CSR_MISA       = 0x301
	CSR_MEDELEG    = 0x302
	CSR_MIDELEG    = 0x303
	CSR_MIE        = 0x304
	CSR_MTVEC      = 0x305
	CSR_MCOUNTEREN = 0x306
	CSR_MSCRATCH   = 0x340
	CSR_MEPC       = 0x341
	CSR_MCAUSE     = 0x342
	CSR_MTVAL      = 0x343
	CSR_MIP        = 0x344

	CSR_MCYCLE    = 0xb00
	CSR_MINSTRET  = 0xb02
	CSR_MCYCLEH   = 0xb80
	CSR_MINSTRETH = 0xb82

	CSR_MVENDORID = 0xf11
	CSR_MARCHID   = 0xf12
	CSR_MIMPID    = 0xf13
	CSR_MHARTID   = 0xf14
)

var CSRNames = map[uint16]string{
	CSR_FFLAGS: "fflags",
	CSR_FRM:    "frm",
	CSR_FCSR:   "fcsr",

	CSR_VSTART: "vstart",
	CSR_VXSAT:  "vxsat",
	CSR_VXRM:   "vxrm",
	CSR_VCSR:   "vcsr",

	CSR_CYCLE:    "cycle",
	CSR_INSTRET:  "instret",
	CSR_CYCLEH:   "cycleh",
	CSR_INSTRETH: "instreth",

	CSR_VL:    "vl",
	CSR_VTYPE: "vtype",
	CSR_VLENB: "vlenb",

	CSR_MSTATUS:    "mstatus",
	CSR_MISA:       "misa",
	CSR_MEDELEG:    "medeleg",
	CSR_MIDELEG:    "mideleg",
	CSR_MIE:        "mie",
	CSR_MTVEC:      "mtvec",
	CSR_MCOUNTEREN: "mcounteren",
	CSR_MSCRATCH:   "mscratch",
	CSR_MEPC:       "mepc",
	CSR_MCAUSE:     "mcause",
	CSR_MTVAL:      "mtval",
	CSR_MIP:        "mip",

	CSR_MCYCLE:    "mcycle",
	CSR_MINSTRET:  "minstret",
	CSR_MCYCLEH:   "mcycleh",
	CSR_MINSTRETH: "minstreth",

	CSR_MVENDORID: "mvendorid",
	CSR_MARCHID:   "marchid",
	CSR_MIMPID:    "mimpid",
	CSR_MHARTID:   "mhartid",
}

// CSRDiffMask selects the bits of a CSR that are meaningful when comparing two models.
// CSRs missing from the table compare all bits; a zero mask skips the CSR entirely.
var CSRDiffMask = map[uint16]uint32{
	CSR_MSTATUS: MSTATUS_MIE | MSTATUS_MPIE | MSTATUS_MPP,
	CSR_VXSAT:   0x1,
	CSR_VXRM:    0x3,
	CSR_VCSR:    0x7,

	CSR_CYCLE:     0,
	CSR_INSTRET:   0,
	CSR_CYCLEH:    0,
	CSR_INSTRETH:  0,
	CSR_MCYCLE:    0,
	CSR_MINSTRET:  0,
	CSR_MCYCLEH:   0,
	CSR_MINSTRETH: 0,

	CSR_MVENDORID: 0,
	CSR_MARCHID:   0,
	CSR_MIMPID:    0,
	CSR_MHARTID:   0,
}

func CSRName(addr uint16) string {
	if name, ok := CSRNames[addr]; ok {
		return name
	}
	return ""
}

// CSRReadOnly reports whether the address falls in a read-only CSR space.
func CSRReadOnly(addr uint16) bool {
	return addr>>10 == 3
}

// mstatus fields
const (
	MSTATUS_MIE  = 1 << 3
	MSTATUS_MPIE = 1 << 7
	MSTATUS_VS   = 3 << 9
	MSTATUS_MPP  = 3 << 11
	MSTATUS_FS   = 3 << 13
)

// exception causes
const (
	CAUSE_MISALIGNED_FETCH = 0
	CAUSE_FETCH_ACCESS     = 1
	CAUSE_ILLEGAL          = 2
	CAUSE_BREAKPOINT       = 3
	CAUSE_MISALIGNED_LOAD  = 4
	CAUSE_LOAD_ACCESS      = 5
	CAUSE_MISALIGNED_STORE = 6
	CAUSE_STORE_ACCESS     = 7
	CAUSE_USER_ECALL       = 8
	CAUSE_SUPERVISOR_ECALL = 9
	CAUSE_MACHINE_ECALL    = 11

	// set in mcause for interrupts
	CAUSE_INTERRUPT = 1 << 31
)

var CauseNames = map[uint64]string{
	CAUSE_MISALIGNED_FETCH: "instruction address misaligned",
	CAUSE_FETCH_ACCESS:     "instruction access fault",
	CAUSE_ILLEGAL:          "illegal instruction",
	CAUSE_BREAKPOINT:       "breakpoint",
	CAUSE_MISALIGNED_LOAD:  "load address misaligned",
	CAUSE_LOAD_ACCESS:      "load access fault",
	CAUSE_MISALIGNED_STORE: "store address misaligned",
	CAUSE_STORE_ACCESS:     "store access fault",
	CAUSE_USER_ECALL:       "environment call from U-mode",
	CAUSE_SUPERVISOR_ECALL: "environment call from S-mode",
	CAUSE_MACHINE_ECALL:    "environment call from M-mode",
}
