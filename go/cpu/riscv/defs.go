package riscv

// major opcodes
const (
	OP_LOAD     = 0x03
	OP_LOAD_FP  = 0x07
	OP_MISC_MEM = 0x0f
	OP_IMM      = 0x13
	OP_AUIPC    = 0x17
	OP_STORE    = 0x23
	OP_STORE_FP = 0x27
	OP_AMO      = 0x2f
	OP          = 0x33
	OP_LUI      = 0x37
	OP_MADD     = 0x43
	OP_MSUB     = 0x47
	OP_NMSUB    = 0x4b
	OP_NMADD    = 0x4f
	OP_FP       = 0x53
	OP_V        = 0x57
	OP_BRANCH   = 0x63
	OP_JALR     = 0x67
	OP_JAL      = 0x6f
	OP_SYSTEM   = 0x73
)

// OP_IMM and OP
const (
	FUNCT_ADD  = 0
	FUNCT_SLL  = 1
	FUNCT_SLT  = 2
	FUNCT_SLTU = 3
	FUNCT_XOR  = 4
	FUNCT_SRX  = 5
	FUNCT_OR   = 6
	FUNCT_AND  = 7
)

// OP with the M extension
const (
	FUNCT_MUL    = 0
	FUNCT_MULH   = 1
	FUNCT_MULHSU = 2
	FUNCT_MULHU  = 3
	FUNCT_DIV    = 4
	FUNCT_DIVU   = 5
	FUNCT_REM    = 6
	FUNCT_REMU   = 7
)

// funct7 values
const (
	F7_BASE   = 0x00
	F7_ALT    = 0x20
	F7_MULDIV = 0x01
)

// BRANCH
const (
	FUNCT_BEQ  = 0
	FUNCT_BNE  = 1
	FUNCT_BLT  = 4
	FUNCT_BGE  = 5
	FUNCT_BLTU = 6
	FUNCT_BGEU = 7
)

// LOAD and STORE widths
const (
	FUNCT_LB  = 0
	FUNCT_LH  = 1
	FUNCT_LW  = 2
	FUNCT_LBU = 4
	FUNCT_LHU = 5
)

// SYSTEM
const (
	FUNCT_PRIV   = 0
	FUNCT_CSRRW  = 1
	FUNCT_CSRRS  = 2
	FUNCT_CSRRC  = 3
	FUNCT_CSRRWI = 5
	FUNCT_CSRRSI = 6
	FUNCT_CSRRCI = 7
)

// whole SYSTEM encodings with no operands
const (
	INS_ECALL  = 0x00000073
	INS_EBREAK = 0x00100073
	INS_MRET   = 0x30200073
	INS_WFI    = 0x10500073
)

// OP_FP funct7 values for single precision
const (
	FP_ADD    = 0x00
	FP_SUB    = 0x04
	FP_MUL    = 0x08
	FP_DIV    = 0x0c
	FP_SQRT   = 0x2c
	FP_SGNJ   = 0x10
	FP_MINMAX = 0x14
	FP_CVT_W  = 0x60
	FP_CVT_S  = 0x68
	FP_CMP    = 0x50
	FP_MV_X   = 0x70
	FP_MV_W   = 0x78
)

// vector funct3 categories
const (
	OPIVV = 0
	OPFVV = 1
	OPMVV = 2
	OPIVI = 3
	OPIVX = 4
	OPFVF = 5
	OPMVX = 6
	OPCFG = 7
)

// vector funct6 values
const (
	V_ADD    = 0x00
	V_SUB    = 0x02
	V_RSUB   = 0x03
	V_MINU   = 0x04
	V_MIN    = 0x05
	V_MAXU   = 0x06
	V_MAX    = 0x07
	V_AND    = 0x09
	V_OR     = 0x0a
	V_XOR    = 0x0b
	V_UNARY0 = 0x10
	V_MERGE  = 0x17
	V_SLL    = 0x25
	V_MUL    = 0x25
	V_SRL    = 0x28
	V_SRA    = 0x29
)
