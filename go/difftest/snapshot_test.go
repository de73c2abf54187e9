package difftest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkg/errors"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/cpu/riscv"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

func TestSnapshotRoundTrip(t *testing.T) {
	isa := "rv32if_zve32x_zvl64b"
	ref := newRef(t, isa, li(10, 3), li(11, -1), insNop)
	require.Equal(t, Continue, ref.StepN(2))
	ref.WriteCSR(rv.CSR_MSCRATCH, 0xabcd)
	ref.WriteFPRBits(7, 0x40490fdb)
	vec := bytes.Repeat([]byte{0xc3}, 32*ref.VectorWidth())
	require.True(t, ref.SyncVectorFile(vec))
	require.NoError(t, ref.WriteMem(ramBase+0x800, []byte("snapshot")))

	snap, err := SaveSnapshot(ref)
	require.NoError(t, err)

	restored := newRef(t, isa)
	require.NoError(t, LoadSnapshot(restored, snap))
	require.Equal(t, ref.Regs(), restored.Regs())
	require.Equal(t, uint32(0xabcd), restored.ReadCSR(rv.CSR_MSCRATCH))
	require.Equal(t, ref.ReadCSR(rv.CSR_MSTATUS), restored.ReadCSR(rv.CSR_MSTATUS))
	bits, _ := restored.ReadFPRBits(7)
	require.Equal(t, uint32(0x40490fdb), bits)
	v9, ok := restored.ReadVectorRegister(9)
	require.True(t, ok)
	require.Equal(t, vec[:ref.VectorWidth()], v9)
	mem, err := restored.ReadMem(ramBase, 0x1000)
	require.NoError(t, err)
	orig, _ := ref.ReadMem(ramBase, 0x1000)
	require.Equal(t, orig, mem)

	// both continue identically
	require.Equal(t, ref.Step(), restored.Step())
	require.Equal(t, ref.Regs(), restored.Regs())
}

func TestSnapshotErrors(t *testing.T) {
	ref := newRef(t, "rv32i", insNop)
	snap, err := SaveSnapshot(ref)
	require.NoError(t, err)

	corrupt := append([]byte(nil), snap...)
	corrupt[len(corrupt)-1] ^= 0xff
	require.Error(t, LoadSnapshot(newRef(t, "rv32i"), corrupt))
	require.Error(t, LoadSnapshot(newRef(t, "rv32i"), snap[:6]))
	require.Error(t, LoadSnapshot(newRef(t, "rv32im"), snap))

	small, err := New(Layout{{ramBase, 0x100}}, ramBase, nil, "rv32i")
	require.NoError(t, err)
	defer small.Close()
	require.Error(t, LoadSnapshot(small, snap))
}

var twoRegions = Layout{{Base: 0x1000, Size: 0x100}, {Base: 0x9000, Size: 0x100}}

func saveTwoRegions(t *testing.T) []byte {
	src, err := New(twoRegions, 0x1000, &[32]uint32{10: 1}, "rv32i")
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.WriteMem(0x1000, []byte{1, 2, 3, 4}))
	require.NoError(t, src.WriteMem(0x9000, []byte{5, 6, 7, 8}))
	src.WriteCSR(rv.CSR_MSCRATCH, 0x1111)
	snap, err := SaveSnapshot(src)
	require.NoError(t, err)
	return snap
}

func requireUntouched(t *testing.T, ref *Ref) {
	mem, err := ref.ReadMem(0x1000, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, mem)
	require.Equal(t, uint32(0x1000), ref.Regs().PC)
	require.Equal(t, uint32(5), ref.Regs().GPR[10])
	require.Equal(t, uint32(0x7777), ref.ReadCSR(rv.CSR_MSCRATCH))
}

func prepare(t *testing.T, ref *Ref) {
	require.NoError(t, ref.WriteMem(0x1000, []byte{0xde, 0xad, 0xbe, 0xef}))
	ref.SyncRegs(Regs{PC: 0x1000, GPR: [32]uint32{10: 5}})
	ref.WriteCSR(rv.CSR_MSCRATCH, 0x7777)
}

func TestSnapshotRegionOutsideLayout(t *testing.T) {
	snap := saveTwoRegions(t)
	dst, err := New(twoRegions[:1], 0x1000, nil, "rv32i")
	require.NoError(t, err)
	defer dst.Close()
	prepare(t, dst)

	err = LoadSnapshot(dst, snap)
	require.Error(t, err)
	require.Equal(t, ErrOutOfRange, errors.Cause(err))
	requireUntouched(t, dst)
}

// writeFailer fails engine writes starting at addr.
type writeFailer struct {
	cpu.Cpu
	addr uint64
}

func (w *writeFailer) MemWrite(addr uint64, p []byte) error {
	if addr == w.addr {
		return errors.New("write failed")
	}
	return w.Cpu.MemWrite(addr, p)
}

type writeFailerBuilder struct {
	addr uint64
}

func (b *writeFailerBuilder) New() (cpu.Cpu, error) {
	isa, err := rv.ParseIsa("rv32i")
	if err != nil {
		return nil, err
	}
	c, err := (&riscv.Builder{Isa: isa}).New()
	if err != nil {
		return nil, err
	}
	return &writeFailer{c, b.addr}, nil
}

func TestSnapshotRollback(t *testing.T) {
	snap := saveTwoRegions(t)
	dst, err := New(twoRegions, 0x1000, nil, "rv32i", WithEngine(&writeFailerBuilder{0x9000}))
	require.NoError(t, err)
	defer dst.Close()
	prepare(t, dst)

	require.Error(t, LoadSnapshot(dst, snap))
	requireUntouched(t, dst)

	good, err := New(twoRegions, 0x1000, nil, "rv32i")
	require.NoError(t, err)
	defer good.Close()
	require.NoError(t, LoadSnapshot(good, snap))
	mem, err := good.ReadMem(0x9000, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6, 7, 8}, mem)
	require.Equal(t, uint32(1), good.Regs().GPR[10])
	require.Equal(t, uint32(0x1111), good.ReadCSR(rv.CSR_MSCRATCH))
}
