package trace

import (
	"bytes"
	"io"
	"testing"
)

type closeBuffer struct {
	bytes.Buffer
}

func (c *closeBuffer) Close() error { return nil }

func TestRoundTrip(t *testing.T) {
	var buf closeBuffer
	w, err := NewWriter(&buf, "rv32imf", 0x80000000)
	if err != nil {
		t.Fatal(err)
	}
	records := []Record{
		&Step{Index: 0, Pc: 0x80000000, Regs: []RegDelta{{Reg: 17, Val: 93}}},
		&Step{Index: 1, Pc: 0x80000004, Outcome: 1},
		&Mismatch{Index: 1, Pc: 0x80000004, Items: []Item{{Kind: 1, Id: 10, Ref: 0, Dut: 1}}},
		&Exit{Index: 1, Code: 3},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(io.NopCloser(&buf.Buffer))
	if err != nil {
		t.Fatal(err)
	}
	if r.Header.Isa != "rv32imf" || r.Header.Entry != 0x80000000 {
		t.Fatalf("bad header: %+v", r.Header)
	}
	step, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	s, ok := step.(*Step)
	if !ok || s.Pc != 0x80000000 || len(s.Regs) != 1 || s.Regs[0] != (RegDelta{17, 93}) {
		t.Fatalf("bad step: %#v", step)
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if m, ok := rec.(*Mismatch); !ok || len(m.Items) != 1 || m.Items[0].Dut != 1 {
		t.Fatalf("bad mismatch: %#v", rec)
	}
	rec, err = r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := rec.(*Exit); !ok || e.Code != 3 {
		t.Fatalf("bad exit: %#v", rec)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestBadMagic(t *testing.T) {
	data := make([]byte, 64)
	copy(data, "NOPE")
	if _, err := NewReader(io.NopCloser(bytes.NewReader(data))); err == nil {
		t.Fatal("expected magic error")
	}
}
