package riscv

import (
	"encoding/binary"
	"fmt"
	"strings"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/models"
)

type ins struct {
	addr  uint64
	name  string
	args  []arg
	bytes []byte
}

func (i *ins) String() string {
	return strings.TrimSpace(i.name + " " + i.OpStr())
}

func (i *ins) Addr() uint64     { return i.addr }
func (i *ins) Bytes() []byte    { return i.bytes }
func (i *ins) Mnemonic() string { return i.name }

func (i *ins) OpStr() string {
	var args []string
	for _, a := range i.args {
		args = append(args, a.String())
	}
	return strings.Join(args, ", ")
}

type arg interface {
	String() string
}

type xreg uint32
type freg uint32
type vreg uint32
type imm int32
type csr uint16
type mem struct {
	off  int32
	base xreg
}
type raw string

func (r xreg) String() string { return rv.GprNames[r] }
func (r freg) String() string { return rv.FprNames[r] }
func (r vreg) String() string { return fmt.Sprintf("v%d", r) }
func (a imm) String() string  { return fmt.Sprintf("%d", a) }
func (a mem) String() string  { return fmt.Sprintf("%d(%s)", a.off, a.base) }
func (a raw) String() string  { return string(a) }
func (a csr) String() string {
	if name := rv.CSRName(uint16(a)); name != "" {
		return name
	}
	return fmt.Sprintf("%#x", uint16(a))
}

var (
	branchNames = map[uint32]string{FUNCT_BEQ: "beq", FUNCT_BNE: "bne", FUNCT_BLT: "blt", FUNCT_BGE: "bge", FUNCT_BLTU: "bltu", FUNCT_BGEU: "bgeu"}
	loadNames   = map[uint32]string{FUNCT_LB: "lb", FUNCT_LH: "lh", FUNCT_LW: "lw", FUNCT_LBU: "lbu", FUNCT_LHU: "lhu"}
	storeNames  = []string{"sb", "sh", "sw"}
	immNames    = []string{"addi", "slli", "slti", "sltiu", "xori", "srli", "ori", "andi"}
	aluNames    = []string{"add", "sll", "slt", "sltu", "xor", "srl", "or", "and"}
	mulNames    = []string{"mul", "mulh", "mulhsu", "mulhu", "div", "divu", "rem", "remu"}
	csrNames    = []string{"", "csrrw", "csrrs", "csrrc", "", "csrrwi", "csrrsi", "csrrci"}
	fmaNames    = map[uint32]string{OP_MADD: "fmadd.s", OP_MSUB: "fmsub.s", OP_NMSUB: "fnmsub.s", OP_NMADD: "fnmadd.s"}
	fpNames     = map[uint32]string{FP_ADD: "fadd.s", FP_SUB: "fsub.s", FP_MUL: "fmul.s", FP_DIV: "fdiv.s", FP_SQRT: "fsqrt.s"}
	vopNames    = map[uint32]string{
		V_ADD: "vadd", V_SUB: "vsub", V_RSUB: "vrsub", V_MINU: "vminu", V_MIN: "vmin", V_MAXU: "vmaxu", V_MAX: "vmax",
		V_AND: "vand", V_OR: "vor", V_XOR: "vxor", V_MERGE: "vmerge", V_SLL: "vsll", V_SRL: "vsrl", V_SRA: "vsra",
	}
)

// decode renders one instruction word. Unknown encodings become a .word directive.
func decode(w uint32, addr uint64) (string, []arg) {
	d, s1, s2 := rd(w), rs1(w), rs2(w)
	f3 := funct3(w)
	unknown := func() (string, []arg) { return ".word", []arg{raw(fmt.Sprintf("0x%08x", w))} }

	switch opcode(w) {
	case OP_LUI:
		return "lui", []arg{xreg(d), raw(fmt.Sprintf("%#x", w>>12))}
	case OP_AUIPC:
		return "auipc", []arg{xreg(d), raw(fmt.Sprintf("%#x", w>>12))}
	case OP_JAL:
		return "jal", []arg{xreg(d), raw(fmt.Sprintf("%#x", uint32(addr)+immJ(w)))}
	case OP_JALR:
		return "jalr", []arg{xreg(d), mem{int32(immI(w)), xreg(s1)}}
	case OP_BRANCH:
		if name, ok := branchNames[f3]; ok {
			return name, []arg{xreg(s1), xreg(s2), raw(fmt.Sprintf("%#x", uint32(addr)+immB(w)))}
		}
	case OP_LOAD:
		if name, ok := loadNames[f3]; ok {
			return name, []arg{xreg(d), mem{int32(immI(w)), xreg(s1)}}
		}
	case OP_STORE:
		if f3 < 3 {
			return storeNames[f3], []arg{xreg(s2), mem{int32(immS(w)), xreg(s1)}}
		}
	case OP_IMM:
		name := immNames[f3]
		switch {
		case f3 == FUNCT_SRX && funct7(w) == F7_ALT:
			return "srai", []arg{xreg(d), xreg(s1), imm(s2)}
		case f3 == FUNCT_SLL || f3 == FUNCT_SRX:
			return name, []arg{xreg(d), xreg(s1), imm(s2)}
		}
		return name, []arg{xreg(d), xreg(s1), imm(int32(immI(w)))}
	case OP:
		args := []arg{xreg(d), xreg(s1), xreg(s2)}
		switch funct7(w) {
		case F7_BASE:
			return aluNames[f3], args
		case F7_MULDIV:
			return mulNames[f3], args
		case F7_ALT:
			if f3 == FUNCT_ADD {
				return "sub", args
			} else if f3 == FUNCT_SRX {
				return "sra", args
			}
		}
	case OP_MISC_MEM:
		if f3 == 0 {
			return "fence", nil
		} else if f3 == 1 {
			return "fence.i", nil
		}
	case OP_SYSTEM:
		switch w {
		case INS_ECALL:
			return "ecall", nil
		case INS_EBREAK:
			return "ebreak", nil
		case INS_MRET:
			return "mret", nil
		case INS_WFI:
			return "wfi", nil
		}
		if name := csrNames[f3]; name != "" {
			var src arg = xreg(s1)
			if f3&4 != 0 {
				src = imm(s1)
			}
			return name, []arg{xreg(d), csr(w >> 20), src}
		}
	case OP_LOAD_FP:
		if f3 == 2 {
			return "flw", []arg{freg(d), mem{int32(immI(w)), xreg(s1)}}
		}
		return vecMemName(w, "vl")
	case OP_STORE_FP:
		if f3 == 2 {
			return "fsw", []arg{freg(s2), mem{int32(immS(w)), xreg(s1)}}
		}
		return vecMemName(w, "vs")
	case OP_MADD, OP_MSUB, OP_NMSUB, OP_NMADD:
		return fmaNames[opcode(w)], []arg{freg(d), freg(s1), freg(s2), freg(rs3(w))}
	case OP_FP:
		f7 := funct7(w)
		if name, ok := fpNames[f7]; ok {
			if f7 == FP_SQRT {
				return name, []arg{freg(d), freg(s1)}
			}
			return name, []arg{freg(d), freg(s1), freg(s2)}
		}
		switch {
		case f7 == FP_SGNJ && f3 < 3:
			return []string{"fsgnj.s", "fsgnjn.s", "fsgnjx.s"}[f3], []arg{freg(d), freg(s1), freg(s2)}
		case f7 == FP_MINMAX && f3 < 2:
			return []string{"fmin.s", "fmax.s"}[f3], []arg{freg(d), freg(s1), freg(s2)}
		case f7 == FP_CMP && f3 < 3:
			return []string{"fle.s", "flt.s", "feq.s"}[f3], []arg{xreg(d), freg(s1), freg(s2)}
		case f7 == FP_CVT_W && s2 < 2:
			return []string{"fcvt.w.s", "fcvt.wu.s"}[s2], []arg{xreg(d), freg(s1)}
		case f7 == FP_CVT_S && s2 < 2:
			return []string{"fcvt.s.w", "fcvt.s.wu"}[s2], []arg{freg(d), xreg(s1)}
		case f7 == FP_MV_X && f3 == 0:
			return "fmv.x.w", []arg{xreg(d), freg(s1)}
		case f7 == FP_MV_X && f3 == 1:
			return "fclass.s", []arg{xreg(d), freg(s1)}
		case f7 == FP_MV_W && f3 == 0:
			return "fmv.w.x", []arg{freg(d), xreg(s1)}
		}
	case OP_V:
		return vecOpName(w)
	}
	return unknown()
}

func vtypeString(val uint32) string {
	t, ok := decodeVtype(val)
	if !ok {
		return fmt.Sprintf("%#x", val)
	}
	lmul := fmt.Sprintf("m%d", t.num)
	if t.den > 1 {
		lmul = fmt.Sprintf("mf%d", t.den)
	}
	ta, ma := "tu", "mu"
	if val&(1<<6) != 0 {
		ta = "ta"
	}
	if val&(1<<7) != 0 {
		ma = "ma"
	}
	return fmt.Sprintf("e%d,%s,%s,%s", t.sew, lmul, ta, ma)
}

func maskArg(w uint32, args []arg) []arg {
	if bitrange(w, 25, 1) == 0 {
		return append(args, raw("v0.t"))
	}
	return args
}

func vecMemName(w uint32, prefix string) (string, []arg) {
	eew := map[uint32]int{0: 8, 5: 16, 6: 32, 7: 64}[funct3(w)]
	if eew == 0 {
		return ".word", []arg{raw(fmt.Sprintf("0x%08x", w))}
	}
	base := raw(fmt.Sprintf("(%s)", xreg(rs1(w))))
	switch bitrange(w, 26, 2) {
	case 0:
		return fmt.Sprintf("%se%d.v", prefix, eew), maskArg(w, []arg{vreg(rd(w)), base})
	case 2:
		return fmt.Sprintf("%sse%d.v", prefix, eew), maskArg(w, []arg{vreg(rd(w)), base, xreg(rs2(w))})
	}
	return ".word", []arg{raw(fmt.Sprintf("0x%08x", w))}
}

func vecOpName(w uint32) (string, []arg) {
	d, s1, s2 := rd(w), rs1(w), rs2(w)
	f3, f6 := funct3(w), funct6(w)
	switch f3 {
	case OPCFG:
		switch {
		case w>>31 == 0:
			return "vsetvli", []arg{xreg(d), xreg(s1), raw(vtypeString(bitrange(w, 20, 11)))}
		case w>>30 == 3:
			return "vsetivli", []arg{xreg(d), imm(s1), raw(vtypeString(bitrange(w, 20, 10)))}
		}
		return "vsetvl", []arg{xreg(d), xreg(s1), xreg(s2)}
	case OPMVV:
		if f6 == V_UNARY0 && s1 == 0 {
			return "vmv.x.s", []arg{xreg(d), vreg(s2)}
		} else if f6 == V_MUL {
			return "vmul.vv", maskArg(w, []arg{vreg(d), vreg(s2), vreg(s1)})
		}
	case OPMVX:
		if f6 == V_UNARY0 && s2 == 0 {
			return "vmv.s.x", []arg{vreg(d), xreg(s1)}
		} else if f6 == V_MUL {
			return "vmul.vx", maskArg(w, []arg{vreg(d), vreg(s2), xreg(s1)})
		}
	case OPIVV, OPIVX, OPIVI:
		name, ok := vopNames[f6]
		if !ok {
			break
		}
		suffix := map[uint32]string{OPIVV: "vv", OPIVX: "vx", OPIVI: "vi"}[f3]
		var src arg = vreg(s1)
		switch f3 {
		case OPIVX:
			src = xreg(s1)
		case OPIVI:
			src = imm(int32(signExtend(s1, 4)))
		}
		if f6 == V_MERGE {
			if bitrange(w, 25, 1) == 1 {
				return "vmv.v." + suffix[1:], []arg{vreg(d), src}
			}
			return "vmerge." + suffix + "m", []arg{vreg(d), vreg(s2), src, raw("v0")}
		}
		return name + "." + suffix, maskArg(w, []arg{vreg(d), vreg(s2), src})
	}
	return ".word", []arg{raw(fmt.Sprintf("0x%08x", w))}
}

// Dis disassembles little-endian 32-bit instruction words.
type Dis struct{}

func (d *Dis) Dis(mem []byte, addr uint64) ([]models.Ins, error) {
	var ret []models.Ins
	for i := 0; i+4 <= len(mem); i += 4 {
		w := binary.LittleEndian.Uint32(mem[i:])
		name, args := decode(w, addr+uint64(i))
		ret = append(ret, &ins{
			addr:  addr + uint64(i),
			name:  name,
			args:  args,
			bytes: mem[i : i+4],
		})
	}
	return ret, nil
}
