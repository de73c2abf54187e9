package riscv

import (
	"encoding/binary"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

const (
	vtypeVill = 1 << 31
	elen      = 32
)

// vecUnit is the architectural vector register file, 32 registers of vlenb bytes each, laid out back to back.
type vecUnit struct {
	vlenb int
	regs  []byte
}

func newVecUnit(vlenb int) *vecUnit {
	return &vecUnit{vlenb: vlenb, regs: make([]byte, 32*vlenb)}
}

// elem reads element i of the register group starting at reg. Values are zero-extended.
func (v *vecUnit) elem(reg uint32, i, sew int) uint32 {
	off := int(reg)*v.vlenb + i*sew/8
	switch sew {
	case 8:
		return uint32(v.regs[off])
	case 16:
		return uint32(binary.LittleEndian.Uint16(v.regs[off:]))
	}
	return binary.LittleEndian.Uint32(v.regs[off:])
}

func (v *vecUnit) setElem(reg uint32, i, sew int, val uint32) {
	off := int(reg)*v.vlenb + i*sew/8
	switch sew {
	case 8:
		v.regs[off] = byte(val)
	case 16:
		binary.LittleEndian.PutUint16(v.regs[off:], uint16(val))
	default:
		binary.LittleEndian.PutUint32(v.regs[off:], val)
	}
}

func (v *vecUnit) maskBit(i int) bool {
	return v.regs[i/8]>>(i%8)&1 != 0
}

// vtype describes a decoded vtype CSR.
type vtype struct {
	sew int
	// lmul = num/den, one of them is always 1
	num, den int
}

func decodeVtype(val uint32) (vtype, bool) {
	if val&vtypeVill != 0 || val>>8 != 0 {
		return vtype{}, false
	}
	vsew := val >> 3 & 7
	if vsew > 2 {
		return vtype{}, false
	}
	t := vtype{sew: 8 << vsew, num: 1, den: 1}
	switch vlmul := val & 7; {
	case vlmul == 4:
		return vtype{}, false
	case vlmul < 4:
		t.num = 1 << vlmul
	default:
		t.den = 1 << (8 - vlmul)
	}
	// fractional groups must still hold one ELEN-wide element's worth of SEW
	if t.sew*t.den > elen {
		return vtype{}, false
	}
	return t, true
}

func (t vtype) vlmax(vlenb int) int {
	return vlenb * 8 * t.num / t.den / t.sew
}

// group is the number of registers an operand of width eew occupies, or 0 when EMUL is out of range.
func (t vtype) group(eew int) int {
	// emul = eew/sew * num/den
	n, d := eew*t.num, t.sew*t.den
	if n*8 < d || n > 8*d {
		return 0
	}
	if n <= d {
		return 1
	}
	return n / d
}

func (c *RiscvCpu) vecEnabled() bool {
	return c.vec != nil && c.csr.mstatus&rv.MSTATUS_VS != 0
}

// vsetvl sets vl and vtype and returns the new vl.
func (c *RiscvCpu) vsetvl(avl uint32, keep bool, val uint32) uint32 {
	f := c.csr
	t, ok := decodeVtype(val)
	vlmax := 0
	if ok {
		vlmax = t.vlmax(c.vec.vlenb)
	}
	if !ok || vlmax == 0 {
		f.vtype, f.vl = vtypeVill, 0
	} else {
		f.vtype = val
		if keep {
			avl = f.vl
		}
		if avl > uint32(vlmax) {
			avl = uint32(vlmax)
		}
		f.vl = avl
	}
	f.vstart = 0
	f.vsDirty()
	return f.vl
}

func (c *RiscvCpu) vsetOp(ins uint32) *exception {
	d, s1 := rd(ins), rs1(ins)
	if c.badRegs(d, s1) {
		return illegal(ins)
	}
	var val, avl uint32
	keep := false
	switch {
	case ins>>31 == 0:
		val = bitrange(ins, 20, 11)
	case ins>>30 == 3:
		val, avl = bitrange(ins, 20, 10), s1
		c.setx(d, c.vsetvl(avl, false, val))
		return nil
	case funct7(ins) == 0x40:
		if c.badRegs(rs2(ins)) {
			return illegal(ins)
		}
		val = c.x(rs2(ins))
	default:
		return illegal(ins)
	}
	switch {
	case s1 != 0:
		avl = c.x(s1)
	case d != 0:
		avl = ^uint32(0)
	default:
		keep = true
	}
	c.setx(d, c.vsetvl(avl, keep, val))
	return nil
}

// vecMem handles unit-stride and strided loads and stores.
func (c *RiscvCpu) vecMem(ins uint32) *exception {
	if !c.vecEnabled() {
		return illegal(ins)
	}
	var eew int
	switch funct3(ins) {
	case 0:
		eew = 8
	case 5:
		eew = 16
	case 6:
		eew = 32
	default:
		return illegal(ins)
	}
	t, ok := decodeVtype(c.csr.vtype)
	if !ok {
		return illegal(ins)
	}
	vd, s1, s2 := rd(ins), rs1(ins), rs2(ins)
	masked := bitrange(ins, 25, 1) == 0
	mop := bitrange(ins, 26, 2)
	store := opcode(ins) == OP_STORE_FP
	if bitrange(ins, 28, 4) != 0 || c.badRegs(s1) {
		return illegal(ins)
	}
	stride := uint32(eew / 8)
	switch mop {
	case 0:
		if s2 != 0 {
			return illegal(ins)
		}
	case 2:
		if c.badRegs(s2) {
			return illegal(ins)
		}
		stride = c.x(s2)
	default:
		return illegal(ins)
	}
	group := t.group(eew)
	if group == 0 || vd%uint32(group) != 0 || (masked && vd == 0 && !store) {
		return illegal(ins)
	}
	base := c.x(s1)
	size := eew / 8
	f := c.csr
	for i := int(f.vstart); i < int(f.vl); i++ {
		if masked && !c.vec.maskBit(i) {
			continue
		}
		addr := base + uint32(i)*stride
		if addr%uint32(size) != 0 {
			f.vstart = uint32(i)
			if store {
				return &exception{rv.CAUSE_MISALIGNED_STORE, addr}
			}
			return &exception{rv.CAUSE_MISALIGNED_LOAD, addr}
		}
		if store {
			val := c.vec.elem(vd, i, eew)
			if err := c.WriteUint(uint64(addr), size, cpu.PROT_WRITE, uint64(val)); err != nil {
				f.vstart = uint32(i)
				return &exception{rv.CAUSE_STORE_ACCESS, addr}
			}
		} else {
			val, err := c.ReadUint(uint64(addr), size, cpu.PROT_READ)
			if err != nil {
				f.vstart = uint32(i)
				return &exception{rv.CAUSE_LOAD_ACCESS, addr}
			}
			c.vec.setElem(vd, i, eew, uint32(val))
		}
	}
	f.vstart = 0
	f.vsDirty()
	return nil
}

func sext(val uint32, sew int) int32 {
	shift := 32 - sew
	return int32(val<<shift) >> shift
}

func (c *RiscvCpu) vecOp(ins uint32) *exception {
	if !c.vecEnabled() {
		return illegal(ins)
	}
	f3 := funct3(ins)
	if f3 == OPCFG {
		return c.vsetOp(ins)
	}
	t, ok := decodeVtype(c.csr.vtype)
	if !ok {
		return illegal(ins)
	}
	vd, s1, vs2 := rd(ins), rs1(ins), rs2(ins)
	f6 := funct6(ins)
	masked := bitrange(ins, 25, 1) == 0
	sew := t.sew
	f := c.csr

	// scalar moves ignore vl, LMUL and alignment
	if f6 == V_UNARY0 {
		if masked {
			return illegal(ins)
		}
		switch {
		case f3 == OPMVV && s1 == 0:
			if c.badRegs(vd) {
				return illegal(ins)
			}
			c.setx(vd, uint32(sext(c.vec.elem(vs2, 0, sew), sew)))
		case f3 == OPMVX && vs2 == 0:
			if c.badRegs(s1) {
				return illegal(ins)
			}
			if f.vstart < f.vl {
				c.vec.setElem(vd, 0, sew, c.x(s1))
			}
		default:
			return illegal(ins)
		}
		f.vstart = 0
		f.vsDirty()
		return nil
	}

	var op1 uint32
	var vs1 bool
	switch f3 {
	case OPIVV, OPMVV:
		vs1 = true
	case OPIVX, OPMVX:
		if c.badRegs(s1) {
			return illegal(ins)
		}
		op1 = c.x(s1)
	case OPIVI:
		op1 = signExtend(s1, 4)
	default:
		return illegal(ins)
	}
	var fn func(a, b uint32) uint32
	mv := f3 == OPMVV || f3 == OPMVX
	switch {
	case mv && f6 == V_MUL:
		fn = func(a, b uint32) uint32 { return a * b }
	case mv:
		return illegal(ins)
	case f6 == V_ADD:
		fn = func(a, b uint32) uint32 { return a + b }
	case f6 == V_SUB && f3 != OPIVI:
		fn = func(a, b uint32) uint32 { return a - b }
	case f6 == V_RSUB && f3 != OPIVV:
		fn = func(a, b uint32) uint32 { return b - a }
	case f6 == V_MINU && f3 != OPIVI:
		fn = func(a, b uint32) uint32 { return min(a, b) }
	case f6 == V_MAXU && f3 != OPIVI:
		fn = func(a, b uint32) uint32 { return max(a, b) }
	case f6 == V_MIN && f3 != OPIVI:
		fn = func(a, b uint32) uint32 { return uint32(min(sext(a, sew), sext(b, sew))) }
	case f6 == V_MAX && f3 != OPIVI:
		fn = func(a, b uint32) uint32 { return uint32(max(sext(a, sew), sext(b, sew))) }
	case f6 == V_AND:
		fn = func(a, b uint32) uint32 { return a & b }
	case f6 == V_OR:
		fn = func(a, b uint32) uint32 { return a | b }
	case f6 == V_XOR:
		fn = func(a, b uint32) uint32 { return a ^ b }
	case f6 == V_SLL:
		fn = func(a, b uint32) uint32 { return a << (b & uint32(sew-1)) }
	case f6 == V_SRL:
		fn = func(a, b uint32) uint32 { return a >> (b & uint32(sew-1)) }
	case f6 == V_SRA:
		fn = func(a, b uint32) uint32 { return uint32(sext(a, sew) >> (b & uint32(sew-1))) }
	case f6 == V_MERGE:
		// vmerge selects with v0, vmv.v.* has no vs2 operand
		if !masked && vs2 != 0 {
			return illegal(ins)
		}
		fn = func(a, b uint32) uint32 { return b }
	default:
		return illegal(ins)
	}

	group := uint32(t.group(sew))
	if vd%group != 0 || vs2%group != 0 || (vs1 && s1%group != 0) || (masked && vd == 0) {
		return illegal(ins)
	}
	merge := f6 == V_MERGE
	for i := int(f.vstart); i < int(f.vl); i++ {
		a := c.vec.elem(vs2, i, sew)
		b := op1
		if vs1 {
			b = c.vec.elem(s1, i, sew)
		}
		if masked && !c.vec.maskBit(i) {
			if merge {
				c.vec.setElem(vd, i, sew, a)
			}
			continue
		}
		c.vec.setElem(vd, i, sew, fn(a, b))
	}
	f.vstart = 0
	f.vsDirty()
	return nil
}
