package debug

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/lunixbochs/difftest/go/cpu/riscv"
	"github.com/lunixbochs/difftest/go/debug/cmd"
	"github.com/lunixbochs/difftest/go/difftest"
)

func TestConsoleScript(t *testing.T) {
	layout := difftest.Layout{{Base: 0x80000000, Size: 0x1000}}
	var refs [2]*difftest.Ref
	for i := range refs {
		ref, err := difftest.New(layout, 0x80000000, nil, "rv32i")
		if err != nil {
			t.Fatal(err)
		}
		defer ref.Close()
		// nop
		ref.LoadImage(0x80000000, []byte{0x13, 0, 0, 0})
		refs[i] = ref
	}
	var out bytes.Buffer
	ctx := cmd.NewContext(&out, difftest.NewManager(refs[0], refs[1]), &riscv.Dis{})
	console := NewConsole(ctx)
	console.History = ""
	script := io.NopCloser(strings.NewReader("maps\ns\nreg pc\nq\nreg pc\n"))
	if err := console.Run(script, io.Discard); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "0x80000000-0x80001000") {
		t.Fatalf("maps output missing: %q", out.String())
	}
	if strings.Count(out.String(), "pc 0x") != 1 || !strings.Contains(out.String(), "pc 0x80000004") {
		t.Fatalf("console did not stop at q: %q", out.String())
	}
}
