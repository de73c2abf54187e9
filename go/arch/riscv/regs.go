package riscv

import (
	"fmt"

	"github.com/lunixbochs/difftest/go/models"
)

// register enums shared by every RV32 engine
const (
	X0 = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	X31

	PC

	F0
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	F13
	F14
	F15
	F16
	F17
	F18
	F19
	F20
	F21
	F22
	F23
	F24
	F25
	F26
	F27
	F28
	F29
	F30
	F31
)

// ABI names
const (
	ZERO = X0
	RA   = X1
	SP   = X2
	GP   = X3
	TP   = X4
	T0   = X5
	T1   = X6
	T2   = X7
	S0   = X8
	S1   = X9
	A0   = X10
	A1   = X11
	A2   = X12
	A3   = X13
	A4   = X14
	A5   = X15
	A6   = X16
	A7   = X17
	S2   = X18
	S3   = X19
	S4   = X20
	S5   = X21
	S6   = X22
	S7   = X23
	S8   = X24
	S9   = X25
	S10  = X26
	S11  = X27
	T3   = X28
	T4   = X29
	T5   = X30
	T6   = X31
)

// CSR enums start here; the enum for CSR n is CSRBase+n.
const CSRBase = 0x100

func CSR(addr uint16) int {
	return CSRBase + int(addr&0xfff)
}

// CSRAddr reverses CSR. ok is false for enums outside the CSR space.
func CSRAddr(enum int) (uint16, bool) {
	if enum < CSRBase || enum >= CSRBase+0x1000 {
		return 0, false
	}
	return uint16(enum - CSRBase), true
}

// CoreRegs lists the enums backed by an engine's general register file.
func CoreRegs() []int {
	enums := make([]int, 0, 65)
	for e := X0; e <= F31; e++ {
		enums = append(enums, e)
	}
	return enums
}

var GprNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var FprNames = [32]string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5",
	"fa6", "fa7", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7",
	"fs8", "fs9", "fs10", "fs11", "ft8", "ft9", "ft10", "ft11",
}

var Arch = &models.Arch{
	Name:    "riscv32",
	Bits:    32,
	PC:      PC,
	SP:      SP,
	Regs:    models.RegMap{PC: "pc"},
	Aliases: map[string]int{"fp": S0},
}

func init() {
	for i, name := range GprNames {
		Arch.Regs[X0+i] = name
		Arch.Aliases[fmt.Sprintf("x%d", i)] = X0 + i
	}
	for i, name := range FprNames {
		Arch.Aliases[name] = F0 + i
		Arch.Aliases[fmt.Sprintf("f%d", i)] = F0 + i
	}
	for addr, name := range CSRNames {
		Arch.Aliases[name] = CSR(addr)
	}
}
