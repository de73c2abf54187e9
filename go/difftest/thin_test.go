package difftest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

func TestThinMemcpy(t *testing.T) {
	thin := NewThin(newRef(t, "rv32i"))
	require.NoError(t, thin.Memcpy(ramBase+0x40, []byte{1, 2, 3, 4}, ToRef))
	out := make([]byte, 4)
	require.NoError(t, thin.Memcpy(ramBase+0x40, out, ToDut))
	require.Equal(t, []byte{1, 2, 3, 4}, out)

	err := thin.Memcpy(ramBase+0xffe, []byte{1, 2, 3, 4}, ToRef)
	require.Equal(t, ErrOutOfRange, errors.Cause(err))
	err = thin.Memcpy(0x100, out, ToDut)
	require.Equal(t, ErrOutOfRange, errors.Cause(err))
}

func TestThinRegcpyExec(t *testing.T) {
	thin := NewThin(newRef(t, "rv32i", insNop, li(10, 9), li(17, SYS_EXIT), insEcall))
	regs := Regs{PC: ramBase + 4}
	regs.GPR[0] = 1
	regs.GPR[3] = 3
	thin.Regcpy(&regs, ToRef)

	var back Regs
	thin.Regcpy(&back, ToDut)
	require.Equal(t, uint32(ramBase+4), back.PC)
	require.Equal(t, uint32(0), back.GPR[0])
	require.Equal(t, uint32(3), back.GPR[3])

	require.Equal(t, Continue, thin.Exec(1))
	require.Equal(t, Exit, thin.Exec(10))
	require.Equal(t, 9, thin.ExitCode())
}

func TestThinRaiseIntr(t *testing.T) {
	thin := NewThin(newRef(t, "rv32i", insNop))
	thin.WriteCSR(rv.CSR_MTVEC, ramBase+0x200)
	require.NoError(t, thin.RaiseIntr(11))
	require.Equal(t, uint32(11|rv.CAUSE_INTERRUPT), thin.ReadCSR(rv.CSR_MCAUSE))
	require.Equal(t, uint32(ramBase+0x200), thin.Regs().PC)

	before := thin.Regs()
	require.Error(t, thin.RaiseIntr(rv.CAUSE_INTERRUPT|3))
	require.Error(t, thin.RaiseIntr(1<<40))
	require.Equal(t, before, thin.Regs())
	require.Equal(t, uint32(11|rv.CAUSE_INTERRUPT), thin.ReadCSR(rv.CSR_MCAUSE))
}

func TestDirection(t *testing.T) {
	require.Equal(t, "to-ref", ToRef.String())
	require.Equal(t, "to-dut", ToDut.String())
}
