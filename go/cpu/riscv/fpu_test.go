package riscv

import (
	"math"
	"testing"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

func encR4(op, rd, rm, rs1, rs2, rs3 uint32) uint32 {
	return rs3<<27 | rs2<<20 | rs1<<15 | rm<<12 | rd<<7 | op
}

func fop(f7, rd, rs1, rs2, rm uint32) uint32 {
	return encR(OP_FP, rd, rm, rs1, rs2, f7)
}

func fbits(f float32) uint64 {
	return uint64(math.Float32bits(f))
}

// newFpuCpu loads the program and seeds f1, f2, f3 with a, b, c.
func newFpuCpu(t *testing.T, a, b, c float32, words ...uint32) *RiscvCpu {
	t.Helper()
	cpu := newTestCpu(t, "rv32if", words...)
	for i, v := range []float32{a, b, c} {
		if err := cpu.RegWrite(rv.F1+i, fbits(v)); err != nil {
			t.Fatal(err)
		}
	}
	return cpu
}

func expectFlags(t *testing.T, c *RiscvCpu, want uint64) {
	t.Helper()
	if got := reg(t, c, rv.CSR(rv.CSR_FFLAGS)); got != want {
		t.Errorf("fflags = %#x, want %#x", got, want)
	}
}

func TestFpuArith(t *testing.T) {
	c := newFpuCpu(t, 1.5, 2.25, 0,
		fop(FP_ADD, 3, 1, 2, RM_RNE),
		fop(FP_SUB, 4, 1, 2, RM_RNE),
		fop(FP_MUL, 5, 1, 2, RM_DYN),
		fop(FP_DIV, 6, 1, 2, RM_RNE),
		fop(FP_SQRT, 7, 2, 0, RM_RNE),
		fop(FP_SGNJ, 8, 1, 1, 1),
		fop(FP_SGNJ, 9, 4, 1, 2),
	)
	run(t, c, 7)
	var a, b float32 = 1.5, 2.25
	expectRegs(t, c, map[int]uint64{
		rv.F3: fbits(3.75),
		rv.F4: fbits(-0.75),
		rv.F5: fbits(3.375),
		rv.F6: fbits(a / b),
		rv.F7: fbits(1.5),
		rv.F8: fbits(-1.5),
		rv.F9: fbits(-0.75),
	})
	expectFlags(t, c, FLAG_NX)
	if fs := reg(t, c, rv.CSR(rv.CSR_MSTATUS)) & rv.MSTATUS_FS; fs != rv.MSTATUS_FS {
		t.Errorf("FS = %#x, want dirty", fs)
	}
}

func TestFpuFused(t *testing.T) {
	c := newFpuCpu(t, 1.5, 2, 0.5,
		encR4(OP_MADD, 4, RM_RNE, 1, 2, 3),
		encR4(OP_MSUB, 5, RM_RNE, 1, 2, 3),
		encR4(OP_NMSUB, 6, RM_RNE, 1, 2, 3),
		encR4(OP_NMADD, 7, RM_RNE, 1, 2, 3),
	)
	run(t, c, 4)
	expectRegs(t, c, map[int]uint64{
		rv.F4: fbits(3.5),
		rv.F5: fbits(2.5),
		rv.F6: fbits(-2.5),
		rv.F7: fbits(-3.5),
	})
	expectFlags(t, c, 0)
}

func TestFpuSpecial(t *testing.T) {
	inf := float32(math.Inf(1))
	qnan := math.Float32frombits(canonicalNaN)

	c := newFpuCpu(t, 1, 0, 0, fop(FP_DIV, 4, 1, 2, RM_RNE))
	run(t, c, 1)
	expectRegs(t, c, map[int]uint64{rv.F4: fbits(inf)})
	expectFlags(t, c, FLAG_DZ)

	c = newFpuCpu(t, -1, 0, 0, fop(FP_SQRT, 4, 1, 0, RM_RNE))
	run(t, c, 1)
	expectRegs(t, c, map[int]uint64{rv.F4: canonicalNaN})
	expectFlags(t, c, FLAG_NV)

	c = newFpuCpu(t, inf, 0, 0, fop(FP_MUL, 4, 1, 2, RM_RNE))
	run(t, c, 1)
	expectRegs(t, c, map[int]uint64{rv.F4: canonicalNaN})
	expectFlags(t, c, FLAG_NV)

	c = newFpuCpu(t, math.MaxFloat32, 2, 0, fop(FP_MUL, 4, 1, 2, RM_RNE))
	run(t, c, 1)
	expectRegs(t, c, map[int]uint64{rv.F4: fbits(inf)})
	expectFlags(t, c, FLAG_OF|FLAG_NX)

	negZero := math.Float32frombits(1 << 31)
	c = newFpuCpu(t, 0, negZero, qnan,
		fop(FP_MINMAX, 4, 1, 2, 0),
		fop(FP_MINMAX, 5, 1, 2, 1),
		fop(FP_MINMAX, 6, 3, 1, 1),
	)
	run(t, c, 3)
	expectRegs(t, c, map[int]uint64{
		rv.F4: 1 << 31,
		rv.F5: 0,
		rv.F6: 0,
	})
	expectFlags(t, c, 0)

	c = newFpuCpu(t, qnan, 1, 0,
		fop(FP_CMP, 10, 1, 2, 2),
		fop(FP_CMP, 11, 2, 2, 2),
	)
	run(t, c, 2)
	expectRegs(t, c, map[int]uint64{rv.X10: 0, rv.X11: 1})
	expectFlags(t, c, 0)

	c = newFpuCpu(t, qnan, 1, 0, fop(FP_CMP, 10, 1, 2, 1))
	run(t, c, 1)
	expectFlags(t, c, FLAG_NV)
}

func TestFpuConvert(t *testing.T) {
	table := []struct {
		val    float32
		rm     uint32
		signed bool
		want   uint64
		flags  uint64
	}{
		{2.5, RM_RNE, true, 2, FLAG_NX},
		{3.5, RM_RNE, true, 4, FLAG_NX},
		{2.5, RM_RUP, true, 3, FLAG_NX},
		{2.5, RM_RMM, true, 3, FLAG_NX},
		{-2.5, RM_RTZ, true, 0xfffffffe, FLAG_NX},
		{-2.5, RM_RDN, true, 0xfffffffd, FLAG_NX},
		{7, RM_RNE, true, 7, 0},
		{3e9, RM_RNE, true, 0x7fffffff, FLAG_NV},
		{-3e9, RM_RNE, true, 0x80000000, FLAG_NV},
		{3e9, RM_RNE, false, 3000000000, 0},
		{-1, RM_RNE, false, 0, FLAG_NV},
		{float32(math.NaN()), RM_RNE, true, 0x7fffffff, FLAG_NV},
	}
	for _, v := range table {
		rs2 := uint32(1)
		if v.signed {
			rs2 = 0
		}
		c := newFpuCpu(t, v.val, 0, 0, fop(FP_CVT_W, 10, 1, rs2, v.rm))
		run(t, c, 1)
		if got := reg(t, c, rv.X10); got != v.want {
			t.Errorf("fcvt(%v, rm=%d, signed=%v) = %#x, want %#x", v.val, v.rm, v.signed, got, v.want)
		}
		expectFlags(t, c, v.flags)
	}

	c := newFpuCpu(t, 0, 0, 0,
		fop(FP_CVT_S, 4, 10, 0, RM_RNE),
		fop(FP_CVT_S, 5, 10, 0, RM_RUP),
		fop(FP_CVT_S, 6, 11, 1, RM_RNE),
		fop(FP_CVT_S, 7, 12, 0, RM_RNE),
	)
	c.RegWrite(rv.X10, 16777217)
	c.RegWrite(rv.X11, 0xffffffff)
	c.RegWrite(rv.X12, 0xfffffffd)
	run(t, c, 4)
	expectRegs(t, c, map[int]uint64{
		rv.F4: fbits(16777216),
		rv.F5: fbits(16777218),
		rv.F6: fbits(4294967296),
		rv.F7: fbits(-3),
	})
	expectFlags(t, c, FLAG_NX)
}

func TestFpuMoveClass(t *testing.T) {
	table := []struct {
		bits  uint32
		class uint64
	}{
		{0xff800000, 1 << 0},
		{0xbf800000, 1 << 1},
		{0x80000001, 1 << 2},
		{0x80000000, 1 << 3},
		{0x00000000, 1 << 4},
		{0x00000001, 1 << 5},
		{0x3f800000, 1 << 6},
		{0x7f800000, 1 << 7},
		{0x7f800001, 1 << 8},
		{0x7fc00000, 1 << 9},
	}
	for _, v := range table {
		c := newTestCpu(t, "rv32if",
			fop(FP_MV_X, 10, 1, 0, 1),
			fop(FP_MV_X, 11, 1, 0, 0),
			fop(FP_MV_W, 4, 11, 0, 0),
		)
		if err := c.RegWrite(rv.F1, uint64(v.bits)); err != nil {
			t.Fatal(err)
		}
		run(t, c, 3)
		expectRegs(t, c, map[int]uint64{
			rv.X10: v.class,
			rv.X11: uint64(v.bits),
			rv.F4:  uint64(v.bits),
		})
	}
}

func TestFpuLoadStore(t *testing.T) {
	c := newFpuCpu(t, 6.25, 0, 0,
		encU(OP_AUIPC, 1, 0),
		encS(OP_STORE_FP, 2, 1, 1, 0x100),
		encI(OP_LOAD_FP, 2, 2, 1, 0x100),
		encI(OP_LOAD, 3, FUNCT_LW, 1, 0x100),
		encI(OP_LOAD_FP, 2, 2, 1, 0x102),
	)
	run(t, c, 4)
	expectRegs(t, c, map[int]uint64{
		rv.F2: fbits(6.25),
		rv.X3: fbits(6.25),
	})
	expectTrap(t, c, 1, rv.CAUSE_MISALIGNED_LOAD, base+0x102)
}

func TestFpuIllegal(t *testing.T) {
	// reserved rounding modes
	for _, ins := range []uint32{fop(FP_ADD, 3, 1, 2, 5), fop(FP_ADD, 3, 1, 2, 6), fop(FP_CVT_W, 1, 1, 2, RM_RNE)} {
		c := newFpuCpu(t, 1, 1, 0, ins)
		expectTrap(t, c, 1, rv.CAUSE_ILLEGAL, uint64(ins))
	}

	// dynamic mode with an invalid frm
	ins := fop(FP_ADD, 3, 1, 2, RM_DYN)
	c := newFpuCpu(t, 1, 1, 0, ins)
	c.RegWrite(rv.CSR(rv.CSR_FRM), 5)
	expectTrap(t, c, 1, rv.CAUSE_ILLEGAL, uint64(ins))

	// double precision
	ins = fop(FP_ADD|1, 3, 1, 2, RM_RNE)
	c = newFpuCpu(t, 1, 1, 0, ins)
	expectTrap(t, c, 1, rv.CAUSE_ILLEGAL, uint64(ins))

	// FS off
	ins = fop(FP_ADD, 3, 1, 2, RM_RNE)
	c = newFpuCpu(t, 1, 1, 0, ins)
	c.RegWrite(rv.CSR(rv.CSR_MSTATUS), 0)
	expectTrap(t, c, 1, rv.CAUSE_ILLEGAL, uint64(ins))

	// no F extension
	c = newTestCpu(t, "rv32i", ins)
	expectTrap(t, c, 1, rv.CAUSE_ILLEGAL, uint64(ins))
	if _, err := c.RegRead(rv.F1); err == nil {
		t.Error("reading an fpr without F should fail")
	}
}
