package riscv

import (
	"math"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

// fflags bits
const (
	FLAG_NX = 1 << iota
	FLAG_UF
	FLAG_OF
	FLAG_DZ
	FLAG_NV
)

// rounding modes
const (
	RM_RNE = 0
	RM_RTZ = 1
	RM_RDN = 2
	RM_RUP = 3
	RM_RMM = 4
	RM_DYN = 7
)

const canonicalNaN = 0x7fc00000

func isNaN(bits uint32) bool {
	return bits&0x7f800000 == 0x7f800000 && bits&0x7fffff != 0
}

func isSNaN(bits uint32) bool {
	return isNaN(bits) && bits&0x400000 == 0
}

func (c *RiscvCpu) f(r uint32) uint32 {
	return uint32(c.Get(rv.F0 + int(r)))
}

func (c *RiscvCpu) setf(r uint32, bits uint32) {
	c.Set(rv.F0+int(r), uint64(bits))
	c.csr.fsDirty()
}

func (c *RiscvCpu) raise(flags uint32) {
	if flags != 0 {
		c.csr.fflags |= flags
		c.csr.fsDirty()
	}
}

func (c *RiscvCpu) fpEnabled() bool {
	return c.fpu && c.csr.mstatus&rv.MSTATUS_FS != 0
}

// roundingMode resolves the dynamic mode and rejects reserved encodings.
func (c *RiscvCpu) roundingMode(ins uint32) (uint32, bool) {
	rm := funct3(ins)
	if rm == RM_DYN {
		rm = c.csr.frm
	}
	return rm, rm <= RM_RMM
}

func (c *RiscvCpu) fpMem(ins uint32) *exception {
	if !c.fpEnabled() || c.badRegs(rs1(ins)) {
		return illegal(ins)
	}
	if opcode(ins) == OP_LOAD_FP {
		addr := c.x(rs1(ins)) + immI(ins)
		if addr&3 != 0 {
			return &exception{rv.CAUSE_MISALIGNED_LOAD, addr}
		}
		val, err := c.ReadUint(uint64(addr), 4, cpu.PROT_READ)
		if err != nil {
			return &exception{rv.CAUSE_LOAD_ACCESS, addr}
		}
		c.setf(rd(ins), uint32(val))
		return nil
	}
	addr := c.x(rs1(ins)) + immS(ins)
	if addr&3 != 0 {
		return &exception{rv.CAUSE_MISALIGNED_STORE, addr}
	}
	if err := c.WriteUint(uint64(addr), 4, cpu.PROT_WRITE, uint64(c.f(rs2(ins)))); err != nil {
		return &exception{rv.CAUSE_STORE_ACCESS, addr}
	}
	return nil
}

// arith rounds a float64 result to single precision and derives the exception flags.
func arith(exact float64, inputs ...uint32) (uint32, uint32) {
	var flags uint32
	nan := false
	for _, in := range inputs {
		if isSNaN(in) {
			flags |= FLAG_NV
		}
		nan = nan || isNaN(in)
	}
	if math.IsNaN(exact) {
		if !nan {
			flags |= FLAG_NV
		}
		return canonicalNaN, flags
	}
	res := float32(exact)
	if math.IsInf(float64(res), 0) && !math.IsInf(exact, 0) {
		flags |= FLAG_OF | FLAG_NX
	} else if float64(res) != exact {
		flags |= FLAG_NX
	}
	return math.Float32bits(res), flags
}

func fval(bits uint32) float64 {
	return float64(math.Float32frombits(bits))
}

func (c *RiscvCpu) fpOp(ins uint32) *exception {
	if !c.fpEnabled() {
		return illegal(ins)
	}
	d, s1, s2 := rd(ins), rs1(ins), rs2(ins)
	a, b := c.f(s1), c.f(s2)

	if op := opcode(ins); op != OP_FP {
		// fused multiply-add, fmt must be single
		if bitrange(ins, 25, 2) != 0 {
			return illegal(ins)
		}
		if _, ok := c.roundingMode(ins); !ok {
			return illegal(ins)
		}
		c3 := c.f(rs3(ins))
		x, y, z := fval(a), fval(b), fval(c3)
		if op == OP_NMSUB || op == OP_NMADD {
			x = -x
		}
		if op == OP_MSUB || op == OP_NMADD {
			z = -z
		}
		var flags uint32
		// inf * 0 is invalid even when the addend is a quiet NaN
		if (math.IsInf(x, 0) && y == 0) || (x == 0 && math.IsInf(y, 0)) {
			flags |= FLAG_NV
		}
		res, rflags := arith(math.FMA(x, y, z), a, b, c3)
		c.setf(d, res)
		c.raise(flags | rflags)
		return nil
	}

	f7 := funct7(ins)
	switch f7 {
	case FP_ADD, FP_SUB, FP_MUL, FP_DIV, FP_SQRT:
		if _, ok := c.roundingMode(ins); !ok {
			return illegal(ins)
		}
		x, y := fval(a), fval(b)
		var exact float64
		var flags uint32
		switch f7 {
		case FP_ADD:
			exact = x + y
		case FP_SUB:
			exact = x - y
		case FP_MUL:
			exact = x * y
		case FP_DIV:
			if y == 0 && x != 0 && !math.IsNaN(x) && !math.IsInf(x, 0) {
				flags |= FLAG_DZ
			}
			exact = x / y
		case FP_SQRT:
			if s2 != 0 {
				return illegal(ins)
			}
			exact = math.Sqrt(x)
			b = a
		}
		res, rflags := arith(exact, a, b)
		if flags&FLAG_DZ != 0 {
			rflags &^= FLAG_OF | FLAG_NX
		}
		c.setf(d, res)
		c.raise(flags | rflags)
	case FP_SGNJ:
		var sign uint32
		switch funct3(ins) {
		case 0:
			sign = b
		case 1:
			sign = ^b
		case 2:
			sign = a ^ b
		default:
			return illegal(ins)
		}
		c.setf(d, a&^(1<<31)|sign&(1<<31))
	case FP_MINMAX:
		f3 := funct3(ins)
		if f3 > 1 {
			return illegal(ins)
		}
		res, flags := minMax(a, b, f3 == 1)
		c.setf(d, res)
		c.raise(flags)
	case FP_CVT_W:
		rm, ok := c.roundingMode(ins)
		if !ok || s2 > 1 || c.badRegs(d) {
			return illegal(ins)
		}
		res, flags := toInt(a, rm, s2 == 1)
		c.setx(d, res)
		c.raise(flags)
	case FP_CVT_S:
		rm, ok := c.roundingMode(ins)
		if !ok || s2 > 1 || c.badRegs(s1) {
			return illegal(ins)
		}
		val := float64(int32(c.x(s1)))
		if s2 == 1 {
			val = float64(c.x(s1))
		}
		res := roundFloat32(val, rm)
		c.setf(d, math.Float32bits(res))
		if float64(res) != val {
			c.raise(FLAG_NX)
		}
	case FP_CMP:
		if c.badRegs(d) {
			return illegal(ins)
		}
		var res bool
		x, y := fval(a), fval(b)
		nan := isNaN(a) || isNaN(b)
		switch funct3(ins) {
		case 2:
			res = x == y
			if isSNaN(a) || isSNaN(b) {
				c.raise(FLAG_NV)
			}
		case 1:
			res = x < y
			if nan {
				c.raise(FLAG_NV)
			}
		case 0:
			res = x <= y
			if nan {
				c.raise(FLAG_NV)
			}
		default:
			return illegal(ins)
		}
		c.setx(d, b2u(res))
	case FP_MV_X:
		if s2 != 0 || c.badRegs(d) {
			return illegal(ins)
		}
		switch funct3(ins) {
		case 0:
			c.setx(d, a)
		case 1:
			c.setx(d, fclass(a))
		default:
			return illegal(ins)
		}
	case FP_MV_W:
		if s2 != 0 || funct3(ins) != 0 || c.badRegs(s1) {
			return illegal(ins)
		}
		c.setf(d, c.x(s1))
	default:
		return illegal(ins)
	}
	return nil
}

func minMax(a, b uint32, isMax bool) (uint32, uint32) {
	var flags uint32
	if isSNaN(a) || isSNaN(b) {
		flags = FLAG_NV
	}
	switch {
	case isNaN(a) && isNaN(b):
		return canonicalNaN, flags
	case isNaN(a):
		return b, flags
	case isNaN(b):
		return a, flags
	}
	x, y := fval(a), fval(b)
	less := x < y || (x == y && a&(1<<31) != 0)
	if less != isMax {
		return a, flags
	}
	return b, flags
}

func toInt(bits, rm uint32, unsigned bool) (uint32, uint32) {
	x := fval(bits)
	var lo, hi float64 = math.MinInt32, math.MaxInt32
	if unsigned {
		lo, hi = 0, math.MaxUint32
	}
	if math.IsNaN(x) {
		if unsigned {
			return math.MaxUint32, FLAG_NV
		}
		return math.MaxInt32, FLAG_NV
	}
	r := roundInt(x, rm)
	switch {
	case r < lo:
		if unsigned {
			return 0, FLAG_NV
		}
		return 1 << 31, FLAG_NV
	case r > hi:
		if unsigned {
			return math.MaxUint32, FLAG_NV
		}
		return math.MaxInt32, FLAG_NV
	}
	var flags uint32
	if r != x {
		flags = FLAG_NX
	}
	if unsigned {
		return uint32(r), flags
	}
	return uint32(int32(r)), flags
}

func roundInt(x float64, rm uint32) float64 {
	switch rm {
	case RM_RTZ:
		return math.Trunc(x)
	case RM_RDN:
		return math.Floor(x)
	case RM_RUP:
		return math.Ceil(x)
	case RM_RMM:
		return math.Round(x)
	}
	return math.RoundToEven(x)
}

// roundFloat32 narrows x to single precision under a rounding mode.
func roundFloat32(x float64, rm uint32) float32 {
	f := float32(x)
	if float64(f) == x {
		return f
	}
	switch rm {
	case RM_RTZ:
		if math.Abs(float64(f)) > math.Abs(x) {
			f = math.Nextafter32(f, 0)
		}
	case RM_RDN:
		if float64(f) > x {
			f = math.Nextafter32(f, float32(math.Inf(-1)))
		}
	case RM_RUP:
		if float64(f) < x {
			f = math.Nextafter32(f, float32(math.Inf(1)))
		}
	case RM_RMM:
		other := math.Nextafter32(f, float32(math.Inf(1)))
		if float64(f) > x {
			other = math.Nextafter32(f, float32(math.Inf(-1)))
		}
		if math.Abs(float64(other)-x) == math.Abs(float64(f)-x) && math.Abs(float64(other)) > math.Abs(float64(f)) {
			f = other
		}
	}
	return f
}

func fclass(bits uint32) uint32 {
	sign := bits>>31 != 0
	exp := bits >> 23 & 0xff
	frac := bits & 0x7fffff
	switch {
	case exp == 0xff && frac != 0:
		if isSNaN(bits) {
			return 1 << 8
		}
		return 1 << 9
	case exp == 0xff && sign:
		return 1 << 0
	case exp == 0xff:
		return 1 << 7
	case exp == 0 && frac == 0 && sign:
		return 1 << 3
	case exp == 0 && frac == 0:
		return 1 << 4
	case exp == 0 && sign:
		return 1 << 2
	case exp == 0:
		return 1 << 5
	case sign:
		return 1 << 1
	}
	return 1 << 6
}
