package riscv

func bitrange(ins uint32, from, n uint) uint32 {
	return (ins >> from) & (1<<n - 1)
}

// signExtend treats bit as the sign bit of n
func signExtend(n uint32, bit uint) uint32 {
	if n&(1<<bit) != 0 {
		n |= ^(1<<bit - 1)
	}
	return n
}

func opcode(ins uint32) uint32 { return ins & 0x7f }
func rd(ins uint32) uint32     { return bitrange(ins, 7, 5) }
func funct3(ins uint32) uint32 { return bitrange(ins, 12, 3) }
func rs1(ins uint32) uint32    { return bitrange(ins, 15, 5) }
func rs2(ins uint32) uint32    { return bitrange(ins, 20, 5) }
func rs3(ins uint32) uint32    { return bitrange(ins, 27, 5) }
func funct7(ins uint32) uint32 { return ins >> 25 }
func funct6(ins uint32) uint32 { return ins >> 26 }

func immI(ins uint32) uint32 {
	return signExtend(ins>>20, 11)
}

func immS(ins uint32) uint32 {
	return signExtend(bitrange(ins, 25, 7)<<5|bitrange(ins, 7, 5), 11)
}

func immB(ins uint32) uint32 {
	imm := bitrange(ins, 31, 1) << 12
	imm |= bitrange(ins, 7, 1) << 11
	imm |= bitrange(ins, 25, 6) << 5
	imm |= bitrange(ins, 8, 4) << 1
	return signExtend(imm, 12)
}

func immU(ins uint32) uint32 {
	return ins & 0xfffff000
}

func immJ(ins uint32) uint32 {
	imm := bitrange(ins, 31, 1) << 20
	imm |= bitrange(ins, 12, 8) << 12
	imm |= bitrange(ins, 20, 1) << 11
	imm |= bitrange(ins, 21, 10) << 1
	return signExtend(imm, 20)
}
