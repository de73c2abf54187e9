package wire

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/difftest"
)

const base = 0x80000000

// li a0, 7; li a7, 93; ecall
var program = []uint32{0x00700513, 0x05d00893, 0x00000073}

func newServer(t *testing.T) net.Listener {
	l, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	s := &Server{New: func() (*difftest.Ref, error) {
		return difftest.New(difftest.Layout{{Base: base, Size: 0x1000}}, base, nil, "rv32i")
	}}
	go s.Serve(l)
	return l
}

func dial(t *testing.T, l net.Listener) *Client {
	c, err := Dial(l.Addr().String())
	require.NoError(t, err)
	c.Timeout = 5 * time.Second
	return c
}

func TestMemcpy(t *testing.T) {
	c := dial(t, newServer(t))
	defer c.Close()
	require.NoError(t, c.Memcpy(base+0x10, []byte("hello"), difftest.ToRef))
	out := make([]byte, 5)
	require.NoError(t, c.Memcpy(base+0x10, out, difftest.ToDut))
	require.Equal(t, "hello", string(out))

	err := c.Memcpy(base+0xffe, []byte{1, 2, 3, 4}, difftest.ToRef)
	require.Equal(t, difftest.ErrOutOfRange, errors.Cause(err))
	err = c.Memcpy(0x1000, out, difftest.ToDut)
	require.Equal(t, difftest.ErrOutOfRange, errors.Cause(err))

	// connection still usable after errors
	require.NoError(t, c.Memcpy(base+0x10, out, difftest.ToDut))
}

func TestRunProgram(t *testing.T) {
	c := dial(t, newServer(t))
	defer c.Close()
	img := make([]byte, len(program)*4)
	for i, w := range program {
		binary.LittleEndian.PutUint32(img[i*4:], w)
	}
	require.NoError(t, c.Memcpy(base, img, difftest.ToRef))

	regs := difftest.Regs{PC: base}
	regs.GPR[0] = 99
	regs.GPR[2] = base + 0x1000
	require.NoError(t, c.Regcpy(&regs, difftest.ToRef))

	out, err := c.Exec(1)
	require.NoError(t, err)
	require.Equal(t, difftest.Continue, out)

	var back difftest.Regs
	require.NoError(t, c.Regcpy(&back, difftest.ToDut))
	require.Equal(t, uint32(base+4), back.PC)
	require.Equal(t, uint32(0), back.GPR[0])
	require.Equal(t, uint32(7), back.GPR[10])
	require.Equal(t, uint32(base+0x1000), back.GPR[2])

	out, err = c.Exec(10)
	require.NoError(t, err)
	require.Equal(t, difftest.Exit, out)
	require.Equal(t, 7, c.ExitCode())
	require.Equal(t, uint64(base+8), c.LastExec().Pc)
}

func TestRaiseIntr(t *testing.T) {
	c := dial(t, newServer(t))
	defer c.Close()
	require.NoError(t, c.RaiseIntr(3))
	out, err := c.Exec(1)
	require.NoError(t, err)
	// mtvec is 0, so the handler fetch faults
	require.Equal(t, difftest.Fault, out)
	require.Equal(t, uint64(rv.CAUSE_FETCH_ACCESS), c.LastExec().Cause)
}

func TestRaiseIntrRejected(t *testing.T) {
	c := dial(t, newServer(t))
	defer c.Close()
	status, _, err := c.call(Request{Op: OP_RAISE_INTR, Addr: rv.CAUSE_INTERRUPT | 7}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(STATUS_BAD_REQUEST), status)
	err = c.RaiseIntr(1 << 31)
	require.Error(t, err)
	require.Equal(t, ErrRemote, errors.Cause(err))

	// the reference is untouched and still serves requests
	var regs difftest.Regs
	require.NoError(t, c.Regcpy(&regs, difftest.ToDut))
	require.Equal(t, uint32(base), regs.PC)
}

func TestSeparateInstances(t *testing.T) {
	l := newServer(t)
	a, b := dial(t, l), dial(t, l)
	defer a.Close()
	defer b.Close()
	require.NoError(t, a.Memcpy(base, []byte{0xaa}, difftest.ToRef))
	out := make([]byte, 1)
	require.NoError(t, b.Memcpy(base, out, difftest.ToDut))
	require.Equal(t, byte(0), out[0])
}

func TestBadRequest(t *testing.T) {
	c := dial(t, newServer(t))
	defer c.Close()
	status, _, err := c.call(Request{Op: 0x7f}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(STATUS_BAD_REQUEST), status)
	status, _, err = c.call(Request{Op: OP_REGCPY, Dir: uint8(difftest.ToRef), Len: 3}, []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, int32(STATUS_BAD_REQUEST), status)
}
