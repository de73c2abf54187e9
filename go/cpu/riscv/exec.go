package riscv

import (
	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

func illegal(ins uint32) *exception {
	return &exception{rv.CAUSE_ILLEGAL, ins}
}

// RV32E only has x0-x15
func (c *RiscvCpu) badRegs(regs ...uint32) bool {
	if !c.rve {
		return false
	}
	for _, r := range regs {
		if r >= 16 {
			return true
		}
	}
	return false
}

func jump(target uint32) (uint32, *exception) {
	if target&3 != 0 {
		return 0, &exception{rv.CAUSE_MISALIGNED_FETCH, target}
	}
	return target, nil
}

// exec runs one instruction and returns the next pc.
// Nothing architectural is modified when an exception is returned, except vstart for vector memory ops.
func (c *RiscvCpu) exec(ins, pc uint32) (uint32, *exception) {
	next := pc + 4
	d, s1, s2 := rd(ins), rs1(ins), rs2(ins)
	f3 := funct3(ins)

	switch opcode(ins) {
	case OP_LUI:
		if c.badRegs(d) {
			return 0, illegal(ins)
		}
		c.setx(d, immU(ins))
	case OP_AUIPC:
		if c.badRegs(d) {
			return 0, illegal(ins)
		}
		c.setx(d, pc+immU(ins))
	case OP_JAL:
		if c.badRegs(d) {
			return 0, illegal(ins)
		}
		target, exc := jump(pc + immJ(ins))
		if exc != nil {
			return 0, exc
		}
		c.setx(d, next)
		return target, nil
	case OP_JALR:
		if f3 != 0 || c.badRegs(d, s1) {
			return 0, illegal(ins)
		}
		target, exc := jump((c.x(s1) + immI(ins)) &^ 1)
		if exc != nil {
			return 0, exc
		}
		c.setx(d, next)
		return target, nil
	case OP_BRANCH:
		if c.badRegs(s1, s2) {
			return 0, illegal(ins)
		}
		a, b := c.x(s1), c.x(s2)
		var taken bool
		switch f3 {
		case FUNCT_BEQ:
			taken = a == b
		case FUNCT_BNE:
			taken = a != b
		case FUNCT_BLT:
			taken = int32(a) < int32(b)
		case FUNCT_BGE:
			taken = int32(a) >= int32(b)
		case FUNCT_BLTU:
			taken = a < b
		case FUNCT_BGEU:
			taken = a >= b
		default:
			return 0, illegal(ins)
		}
		if taken {
			return jump(pc + immB(ins))
		}
	case OP_LOAD:
		if c.badRegs(d, s1) {
			return 0, illegal(ins)
		}
		return next, c.load(ins, d, c.x(s1)+immI(ins), f3)
	case OP_STORE:
		if c.badRegs(s1, s2) {
			return 0, illegal(ins)
		}
		return next, c.store(ins, c.x(s1)+immS(ins), c.x(s2), f3)
	case OP_IMM:
		if c.badRegs(d, s1) {
			return 0, illegal(ins)
		}
		val, ok := aluImm(ins, c.x(s1))
		if !ok {
			return 0, illegal(ins)
		}
		c.setx(d, val)
	case OP:
		if c.badRegs(d, s1, s2) {
			return 0, illegal(ins)
		}
		var val uint32
		var ok bool
		if funct7(ins) == F7_MULDIV {
			if !c.isa.Has('m') {
				return 0, illegal(ins)
			}
			val, ok = mulDiv(f3, c.x(s1), c.x(s2)), true
		} else {
			val, ok = alu(ins, c.x(s1), c.x(s2))
		}
		if !ok {
			return 0, illegal(ins)
		}
		c.setx(d, val)
	case OP_MISC_MEM:
		// FENCE and FENCE.I order nothing on a single in-order hart
		if f3 > 1 {
			return 0, illegal(ins)
		}
	case OP_SYSTEM:
		return c.system(ins, pc)
	case OP_LOAD_FP, OP_STORE_FP:
		if f3 == 2 {
			return next, c.fpMem(ins)
		}
		return next, c.vecMem(ins)
	case OP_FP, OP_MADD, OP_MSUB, OP_NMSUB, OP_NMADD:
		return next, c.fpOp(ins)
	case OP_V:
		return next, c.vecOp(ins)
	default:
		return 0, illegal(ins)
	}
	return next, nil
}

func (c *RiscvCpu) load(ins, d, addr, f3 uint32) *exception {
	var size int
	switch f3 {
	case FUNCT_LB, FUNCT_LBU:
		size = 1
	case FUNCT_LH, FUNCT_LHU:
		size = 2
	case FUNCT_LW:
		size = 4
	default:
		return illegal(ins)
	}
	if addr%uint32(size) != 0 {
		return &exception{rv.CAUSE_MISALIGNED_LOAD, addr}
	}
	val, err := c.ReadUint(uint64(addr), size, cpu.PROT_READ)
	if err != nil {
		return &exception{rv.CAUSE_LOAD_ACCESS, addr}
	}
	v := uint32(val)
	switch f3 {
	case FUNCT_LB:
		v = signExtend(v, 7)
	case FUNCT_LH:
		v = signExtend(v, 15)
	}
	c.setx(d, v)
	return nil
}

func (c *RiscvCpu) store(ins, addr, val, f3 uint32) *exception {
	if f3 > FUNCT_LW {
		return illegal(ins)
	}
	size := 1 << f3
	if addr%uint32(size) != 0 {
		return &exception{rv.CAUSE_MISALIGNED_STORE, addr}
	}
	if err := c.WriteUint(uint64(addr), size, cpu.PROT_WRITE, uint64(val)); err != nil {
		return &exception{rv.CAUSE_STORE_ACCESS, addr}
	}
	return nil
}

func aluImm(ins, a uint32) (uint32, bool) {
	imm := immI(ins)
	shamt := imm & 0x1f
	switch funct3(ins) {
	case FUNCT_ADD:
		return a + imm, true
	case FUNCT_SLT:
		return b2u(int32(a) < int32(imm)), true
	case FUNCT_SLTU:
		return b2u(a < imm), true
	case FUNCT_XOR:
		return a ^ imm, true
	case FUNCT_OR:
		return a | imm, true
	case FUNCT_AND:
		return a & imm, true
	case FUNCT_SLL:
		if funct7(ins) != F7_BASE {
			return 0, false
		}
		return a << shamt, true
	case FUNCT_SRX:
		switch funct7(ins) {
		case F7_BASE:
			return a >> shamt, true
		case F7_ALT:
			return uint32(int32(a) >> shamt), true
		}
	}
	return 0, false
}

func alu(ins, a, b uint32) (uint32, bool) {
	f7 := funct7(ins)
	if f7 != F7_BASE && f7 != F7_ALT {
		return 0, false
	}
	alt := f7 == F7_ALT
	switch f3 := funct3(ins); {
	case f3 == FUNCT_ADD && !alt:
		return a + b, true
	case f3 == FUNCT_ADD && alt:
		return a - b, true
	case f3 == FUNCT_SRX && !alt:
		return a >> (b & 0x1f), true
	case f3 == FUNCT_SRX && alt:
		return uint32(int32(a) >> (b & 0x1f)), true
	case alt:
		return 0, false
	case f3 == FUNCT_SLL:
		return a << (b & 0x1f), true
	case f3 == FUNCT_SLT:
		return b2u(int32(a) < int32(b)), true
	case f3 == FUNCT_SLTU:
		return b2u(a < b), true
	case f3 == FUNCT_XOR:
		return a ^ b, true
	case f3 == FUNCT_OR:
		return a | b, true
	case f3 == FUNCT_AND:
		return a & b, true
	}
	return 0, false
}

func mulDiv(f3, a, b uint32) uint32 {
	sa, sb := int32(a), int32(b)
	switch f3 {
	case FUNCT_MUL:
		return a * b
	case FUNCT_MULH:
		return uint32(uint64(int64(sa)*int64(sb)) >> 32)
	case FUNCT_MULHSU:
		return uint32(uint64(int64(sa)*int64(uint64(b))) >> 32)
	case FUNCT_MULHU:
		return uint32(uint64(a) * uint64(b) >> 32)
	case FUNCT_DIV:
		if b == 0 {
			return ^uint32(0)
		} else if sa == -1<<31 && sb == -1 {
			return a
		}
		return uint32(sa / sb)
	case FUNCT_DIVU:
		if b == 0 {
			return ^uint32(0)
		}
		return a / b
	case FUNCT_REM:
		if b == 0 {
			return a
		} else if sa == -1<<31 && sb == -1 {
			return 0
		}
		return uint32(sa % sb)
	case FUNCT_REMU:
		if b == 0 {
			return a
		}
		return a % b
	}
	return 0
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (c *RiscvCpu) system(ins, pc uint32) (uint32, *exception) {
	f3 := funct3(ins)
	if f3 == FUNCT_PRIV {
		switch ins {
		case INS_ECALL:
			return 0, &exception{rv.CAUSE_MACHINE_ECALL, 0}
		case INS_EBREAK:
			return 0, &exception{rv.CAUSE_BREAKPOINT, pc}
		case INS_MRET:
			f := c.csr
			mie := uint32(0)
			if f.mstatus&rv.MSTATUS_MPIE != 0 {
				mie = rv.MSTATUS_MIE
			}
			f.mstatus = f.mstatus&^rv.MSTATUS_MIE | mie | rv.MSTATUS_MPIE
			return f.mepc, nil
		case INS_WFI:
			return pc + 4, nil
		}
		return 0, illegal(ins)
	}
	if f3 == 4 {
		return 0, illegal(ins)
	}
	d, s1 := rd(ins), rs1(ins)
	addr := uint16(ins >> 20)
	imm := f3&4 != 0
	if c.badRegs(d) || !imm && c.badRegs(s1) {
		return 0, illegal(ins)
	}
	src := s1
	if !imm {
		src = c.x(s1)
	}
	op := f3 & 3
	// csrrs/csrrc with x0 or a zero immediate never write, so they may touch read-only csrs
	write := op == FUNCT_CSRRW || s1 != 0
	old, ok := c.csr.read(addr)
	if !ok || write && rv.CSRReadOnly(addr) {
		return 0, illegal(ins)
	}
	if write {
		val := src
		switch op {
		case FUNCT_CSRRS:
			val = old | src
		case FUNCT_CSRRC:
			val = old &^ src
		}
		c.csr.write(addr, val)
	}
	c.setx(d, old)
	return pc + 4, nil
}
