// Package trace records co-simulation runs as a snappy-compressed stream of struc-packed records.
package trace

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const MAGIC = "DTTR"
const VERSION = 1

var order = binary.LittleEndian

const (
	OP_STEP     = 1
	OP_MISMATCH = 2
	OP_EXIT     = 3
)

type Header struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	// ISA string of the reference, right-null-padded
	Isa   string `struc:"[32]byte"`
	Entry uint32
}

// Record is one entry of a trace.
type Record interface {
	Op() uint8
}

// RegDelta is a general register that changed during a step.
type RegDelta struct {
	Reg uint8
	Val uint32
}

// Step is one retired instruction on the reference.
type Step struct {
	Index    uint64
	Pc       uint32
	Outcome  uint8
	RegCount uint8 `struc:"uint8,sizeof=Regs"`
	Regs     []RegDelta
}

func (s *Step) Op() uint8 { return OP_STEP }

// Item is one differing value. Kind uses the same numbering as difftest.Kind.
type Item struct {
	Kind uint8
	Id   uint32
	Ref  uint64
	Dut  uint64
}

type Mismatch struct {
	Index     uint64
	Pc        uint32
	ItemCount uint16 `struc:"uint16,sizeof=Items"`
	Items     []Item
}

func (m *Mismatch) Op() uint8 { return OP_MISMATCH }

type Exit struct {
	Index uint64
	Code  int32
}

func (e *Exit) Op() uint8 { return OP_EXIT }

type Writer struct {
	w  io.WriteCloser
	zw *snappy.Writer
}

func NewWriter(w io.WriteCloser, isa string, entry uint32) (*Writer, error) {
	header := &Header{Magic: MAGIC, Version: VERSION, Isa: isa, Entry: entry}
	if err := struc.PackWithOrder(w, header, order); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	return &Writer{w: w, zw: snappy.NewBufferedWriter(w)}, nil
}

func (t *Writer) Write(rec Record) error {
	if _, err := t.zw.Write([]byte{rec.Op()}); err != nil {
		return err
	}
	return struc.PackWithOrder(t.zw, rec, order)
}

func (t *Writer) Close() error {
	err := t.zw.Close()
	if err2 := t.w.Close(); err == nil {
		err = err2
	}
	return err
}

type Reader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	Header Header
}

func NewReader(r io.ReadCloser) (*Reader, error) {
	t := &Reader{r: r}
	if err := struc.UnpackWithOrder(r, &t.Header, order); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != VERSION {
		return nil, errors.Errorf("unsupported trace version %d", t.Header.Version)
	}
	t.Header.Isa = strings.TrimRight(t.Header.Isa, "\x00")
	t.zr = snappy.NewReader(r)
	return t, nil
}

// Next returns io.EOF at the end of the trace.
func (t *Reader) Next() (Record, error) {
	var op [1]byte
	if _, err := io.ReadFull(t.zr, op[:]); err != nil {
		return nil, err
	}
	var rec Record
	switch op[0] {
	case OP_STEP:
		rec = &Step{}
	case OP_MISMATCH:
		rec = &Mismatch{}
	case OP_EXIT:
		rec = &Exit{}
	default:
		return nil, errors.Errorf("unknown op: %d", op[0])
	}
	if err := struc.UnpackWithOrder(t.zr, rec, order); err != nil {
		return nil, errors.Wrapf(err, "unpacking op %d", op[0])
	}
	return rec, nil
}

func (t *Reader) Close() error {
	t.zr.Reset(nil)
	return t.r.Close()
}
