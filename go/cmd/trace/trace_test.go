package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/difftest/trace"
)

func writeTrace(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "run.trace")
	f, err := os.Create(path)
	require.NoError(t, err)
	tw, err := trace.NewWriter(f, "rv32im", 0x80000000)
	require.NoError(t, err)
	recs := []trace.Record{
		&trace.Step{Index: 0, Pc: 0x80000000, Regs: []trace.RegDelta{{Reg: 10, Val: 1}}},
		&trace.Mismatch{Index: 1, Pc: 0x80000004, Items: []trace.Item{
			{Kind: uint8(difftest.KindGPR), Id: 11, Ref: 2, Dut: 3},
		}},
		&trace.Exit{Index: 2, Code: 2},
	}
	for _, rec := range recs {
		require.NoError(t, tw.Write(rec))
	}
	require.NoError(t, tw.Close())
	return path
}

func openTrace(t *testing.T, path string) *trace.Reader {
	f, err := os.Open(path)
	require.NoError(t, err)
	tf, err := trace.NewReader(f)
	require.NoError(t, err)
	t.Cleanup(func() { tf.Close() })
	return tf
}

func TestPrintPretty(t *testing.T) {
	tf := openTrace(t, writeTrace(t))
	var out bytes.Buffer
	require.NoError(t, PrintPretty(tf, &out))
	text := out.String()
	require.Contains(t, text, "isa rv32im entry 0x80000000")
	require.Contains(t, text, "a0=0x1")
	require.Contains(t, text, "mismatch")
	require.Contains(t, text, "a1")
	require.Contains(t, text, "ref=0x2 dut=0x3")
	require.Contains(t, text, "HIT BAD TRAP (code 2)")
}

func TestPrintJson(t *testing.T) {
	tf := openTrace(t, writeTrace(t))
	var out bytes.Buffer
	require.NoError(t, PrintJson(tf, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], `"Isa":"rv32im"`)
	require.Contains(t, lines[1], `"type":"step"`)
	require.Contains(t, lines[2], `"type":"mismatch"`)
	require.Contains(t, lines[3], `"type":"exit"`)
}
