package difftest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/difftest/go/difftest/trace"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

// Dut is the design under test as seen by the Manager. *Ref satisfies it, so a second engine can stand in for hardware.
type Dut interface {
	Step() Outcome
	Regs() Regs
	ReadCSR(addr uint16) uint32
	ReadFPRBits(i int) (uint32, error)
	ReadMem(addr uint64, n int) ([]byte, error)
}

// Watch is a memory range compared after every step.
type Watch struct {
	Addr uint64
	Size int
	// reference stores that touched the range
	Stores uint64

	hook cpu.Hook
}

func (w Watch) String() string {
	return fmt.Sprintf("%#x+%#x", w.Addr, w.Size)
}

// Manager steps a DUT and a reference in lockstep and compares them.
type Manager struct {
	Dut Dut
	Ref *Ref

	// CSRs compared after each step, DiffCSRs() by default
	CSRs []uint16
	// compare f registers when the reference implements F
	FPR bool
	// Run stops at the first Fault when set
	StopOnFault bool

	Out   io.Writer
	Color bool
	Trace *trace.Writer

	watches []*Watch
	skip    int
	steps   uint64
	prev    Regs
}

func NewManager(dut Dut, ref *Ref) *Manager {
	return &Manager{
		Dut:         dut,
		Ref:         ref,
		CSRs:        DiffCSRs(),
		FPR:         ref.isa.Has('f'),
		StopOnFault: true,
		Out:         io.Discard,
		prev:        ref.Regs(),
	}
}

func (m *Manager) Steps() uint64 { return m.steps }

// Watch adds a memory range to compare after every step.
func (m *Manager) Watch(addr uint64, size int) error {
	w := &Watch{Addr: addr, Size: size}
	hh, err := m.Ref.WatchStores(addr, size, func(a uint64, n int, val uint64) {
		w.Stores++
		m.Ref.logf("store %#x+%d=%#x in watch %s", a, n, val, w)
	})
	if err != nil {
		return err
	}
	w.hook = hh
	m.watches = append(m.watches, w)
	return nil
}

func (m *Manager) Watches() []Watch {
	ret := make([]Watch, len(m.watches))
	for i, w := range m.watches {
		ret[i] = *w
	}
	return ret
}

func (m *Manager) Unwatch(addr uint64) bool {
	for i, w := range m.watches {
		if w.Addr == addr {
			if err := m.Ref.UnwatchStores(w.hook); err != nil {
				m.Ref.logf("unwatch %s: %v", w, err)
			}
			m.watches = append(m.watches[:i], m.watches[i+1:]...)
			return true
		}
	}
	return false
}

// Skip makes the next n steps copy DUT state into the reference instead of comparing.
// Used for instructions the reference cannot model, such as device accesses.
func (m *Manager) Skip(n int) {
	m.skip += n
}

// Step runs one step, comparing or skipping as scheduled.
func (m *Manager) Step() (Outcome, *Mismatch) {
	if m.skip > 0 {
		m.skip--
		return m.StepSkip(), nil
	}
	return m.StepRun()
}

// StepRun steps both sides once and compares them. The mismatch is nil when they agree.
func (m *Manager) StepRun() (Outcome, *Mismatch) {
	pc := m.Dut.Regs().PC
	dut := m.Dut.Step()
	ref := m.Ref.Step()
	mm := m.Compare()
	mm.Pc = pc
	if dut != ref {
		mm.Items = append(mm.Items, Item{Kind: KindOutcome, Ref: uint64(ref), Dut: uint64(dut)})
	}
	m.record(pc, ref, mm)
	m.steps++
	if len(mm.Items) == 0 {
		return ref, nil
	}
	fmt.Fprintln(m.Out, mm.Render(m.Color))
	return ref, mm
}

// StepSkip steps only the DUT and then forces the reference to the DUT's state.
func (m *Manager) StepSkip() Outcome {
	out := m.Dut.Step()
	m.Ref.SyncRegs(m.Dut.Regs())
	for _, addr := range m.CSRs {
		m.Ref.WriteCSR(addr, m.Dut.ReadCSR(addr))
	}
	if m.FPR {
		for i := 0; i < 32; i++ {
			if bits, err := m.Dut.ReadFPRBits(i); err == nil {
				m.Ref.WriteFPRBits(i, bits)
			}
		}
	}
	m.prev = m.Ref.Regs()
	m.steps++
	return out
}

// Run steps until an exit, a mismatch, a fault with StopOnFault set, or limit steps.
func (m *Manager) Run(limit uint64) (Outcome, *Mismatch) {
	for i := uint64(0); limit == 0 || i < limit; i++ {
		out, mm := m.Step()
		if mm != nil {
			return out, mm
		}
		if out == Exit {
			if m.Trace != nil {
				m.Trace.Write(&trace.Exit{Index: m.steps, Code: int32(m.Ref.ExitCode())})
			}
			return out, nil
		}
		if out == Fault && m.StopOnFault {
			return out, nil
		}
	}
	return Continue, nil
}

// Compare reports every difference between the current DUT and reference state.
func (m *Manager) Compare() *Mismatch {
	mm := &Mismatch{Step: m.steps}
	dut, ref := m.Dut.Regs(), m.Ref.Regs()
	if dut.PC != ref.PC {
		mm.Items = append(mm.Items, Item{Kind: KindPC, Ref: uint64(ref.PC), Dut: uint64(dut.PC)})
	}
	for i := 1; i < 32; i++ {
		if dut.GPR[i] != ref.GPR[i] {
			mm.Items = append(mm.Items, Item{Kind: KindGPR, Id: uint64(i), Ref: uint64(ref.GPR[i]), Dut: uint64(dut.GPR[i])})
		}
	}
	if m.FPR {
		for i := 0; i < 32; i++ {
			r, _ := m.Ref.ReadFPRBits(i)
			d, _ := m.Dut.ReadFPRBits(i)
			if r != d {
				mm.Items = append(mm.Items, Item{Kind: KindFPR, Id: uint64(i), Ref: uint64(r), Dut: uint64(d)})
			}
		}
	}
	for _, addr := range m.CSRs {
		mask := csrMask(addr)
		r, d := m.Ref.ReadCSR(addr)&mask, m.Dut.ReadCSR(addr)&mask
		if r != d {
			mm.Items = append(mm.Items, Item{Kind: KindCSR, Id: uint64(addr), Ref: uint64(r), Dut: uint64(d)})
		}
	}
	for _, w := range m.watches {
		r, err := m.Ref.ReadMem(w.Addr, w.Size)
		if err != nil {
			continue
		}
		d, err := m.Dut.ReadMem(w.Addr, w.Size)
		if err != nil || bytes.Equal(r, d) {
			continue
		}
		for i := range r {
			if r[i] != d[i] {
				mm.Items = append(mm.Items, Item{Kind: KindMem, Id: w.Addr + uint64(i), Ref: uint64(r[i]), Dut: uint64(d[i])})
			}
		}
	}
	return mm
}

func (m *Manager) record(pc uint32, out Outcome, mm *Mismatch) {
	if m.Trace == nil {
		return
	}
	regs := m.Ref.Regs()
	step := &trace.Step{Index: m.steps, Pc: pc, Outcome: uint8(out)}
	for i := 1; i < 32; i++ {
		if regs.GPR[i] != m.prev.GPR[i] {
			step.Regs = append(step.Regs, trace.RegDelta{Reg: uint8(i), Val: regs.GPR[i]})
		}
	}
	m.prev = regs
	if err := m.Trace.Write(step); err != nil {
		fmt.Fprintf(m.Out, "trace: %v\n", errors.Wrap(err, "write failed"))
		m.Trace = nil
		return
	}
	if len(mm.Items) > 0 {
		rec := &trace.Mismatch{Index: mm.Step, Pc: mm.Pc}
		for _, it := range mm.Items {
			rec.Items = append(rec.Items, trace.Item{Kind: uint8(it.Kind), Id: uint32(it.Id), Ref: it.Ref, Dut: it.Dut})
		}
		m.Trace.Write(rec)
	}
}
