package cmd

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/lunixbochs/difftest/go/cpu/riscv"
	"github.com/lunixbochs/difftest/go/difftest"
)

const base = 0x80000000

// li a0, 1; addi a0, a0, 1; li a7, 93; ecall
var program = []uint32{0x00100513, 0x00150513, 0x05d00893, 0x00000073}

func newContext(t *testing.T) (*Context, *bytes.Buffer) {
	img := make([]byte, len(program)*4)
	for i, w := range program {
		binary.LittleEndian.PutUint32(img[i*4:], w)
	}
	var refs [2]*difftest.Ref
	for i := range refs {
		ref, err := difftest.New(difftest.Layout{{Base: base, Size: 0x1000}}, base, nil, "rv32if")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { ref.Close() })
		if err := ref.LoadImage(base, img); err != nil {
			t.Fatal(err)
		}
		refs[i] = ref
	}
	var out bytes.Buffer
	return NewContext(&out, difftest.NewManager(refs[0], refs[1]), &riscv.Dis{}), &out
}

func run(t *testing.T, c *Context, out *bytes.Buffer, line string) string {
	out.Reset()
	if err := Run(c, line); err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return out.String()
}

func expect(t *testing.T, c *Context, out *bytes.Buffer, line string, want ...string) {
	t.Helper()
	got := run(t, c, out, line)
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("%s: output %q does not contain %q", line, got, w)
		}
	}
}

func TestStepToExit(t *testing.T) {
	c, out := newContext(t)
	expect(t, c, out, "si", "addi a0, zero, 1", "a0")
	expect(t, c, out, "s 10", "HIT BAD TRAP (code 2)")
	if !c.Stopped || c.Last != nil {
		t.Fatalf("stopped=%v last=%v", c.Stopped, c.Last)
	}
	expect(t, c, out, "s", "not running")
}

func TestRegCommands(t *testing.T) {
	c, out := newContext(t)
	expect(t, c, out, "reg a0=0x10 x11=-1 pc", "pc 0x80000000")
	expect(t, c, out, "reg a0 a1", "a0 0x00000010", "a1 0xffffffff")
	expect(t, c, out, "reg nope", "reg nope not found")
	expect(t, c, out, "reg a0=zz", "invalid assignment")
	expect(t, c, out, "reg mscratch=7", "")
	expect(t, c, out, "csr mscratch misa", "mscratch   0x00000007 dut 0x00000000", "misa")
	expect(t, c, out, "diff", "mscratch", "a0")
	expect(t, c, out, "fpr", "ft0")
	expect(t, c, out, "regs", "pc")
}

func TestMismatchStops(t *testing.T) {
	c, out := newContext(t)
	run(t, c, out, "reg a1=5")
	expect(t, c, out, "s 3", "mismatch at step 0", "a1: ref=0x00000005 dut=0x00000000")
	if c.Last == nil || !c.Stopped {
		t.Fatal("mismatch did not stop the console")
	}
}

func TestMemoryCommands(t *testing.T) {
	c, out := newContext(t)
	expect(t, c, out, "mem 0x80000000 8", "0x80000000:", "13051000")
	expect(t, c, out, "mem 0x1000 4", "error:")
	expect(t, c, out, "maps", "0x80000000-0x80001000")
	expect(t, c, out, "watch 0x80000800 4", "")
	expect(t, c, out, "watch", "0x80000800+0x4")
	expect(t, c, out, "watch 0x10 4", "error:")
	expect(t, c, out, "dis 0x80000000 2", "addi a0, zero, 1", "addi a0, a0, 1")
}

func TestSkip(t *testing.T) {
	c, out := newContext(t)
	run(t, c, out, "reg a1=5")
	expect(t, c, out, "skip 1", "")
	expect(t, c, out, "s 10", "HIT BAD TRAP")
}

func TestDispatch(t *testing.T) {
	c, out := newContext(t)
	expect(t, c, out, "bogus", "command not found")
	expect(t, c, out, "help", "watch", "skip")
	expect(t, c, out, `reg "a0`, "parse error")
	expect(t, c, out, "", "")
}
