package difftest

import (
	"fmt"
	"strings"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/models"
)

// Kind groups mismatch items by the state they were found in.
type Kind uint8

const (
	KindPC Kind = iota
	KindGPR
	KindFPR
	KindCSR
	KindMem
	KindOutcome
)

var kindNames = [...]string{"pc", "gpr", "fpr", "csr", "mem", "outcome"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Item is one value the DUT and the reference disagree on.
// Id is the register number, CSR address or memory address depending on Kind.
type Item struct {
	Kind Kind
	Id   uint64
	Ref  uint64
	Dut  uint64
}

func (it Item) Name() string {
	switch it.Kind {
	case KindGPR:
		return rv.GprNames[it.Id]
	case KindFPR:
		return rv.FprNames[it.Id]
	case KindCSR:
		if name := rv.CSRName(uint16(it.Id)); name != "" {
			return name
		}
		return fmt.Sprintf("csr%#x", it.Id)
	case KindMem:
		return fmt.Sprintf("[%#x]", it.Id)
	}
	return it.Kind.String()
}

// Mismatch is the report for one diverging step.
type Mismatch struct {
	Step  uint64
	Pc    uint32
	Items []Item
}

// Group returns the items of one kind.
func (m *Mismatch) Group(kind Kind) []Item {
	var out []Item
	for _, it := range m.Items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

func (m *Mismatch) Has(kind Kind) bool {
	return len(m.Group(kind)) > 0
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("mismatch at step %d pc %#08x (%d items)", m.Step, m.Pc, len(m.Items))
}

// Render prints the items grouped by kind, with the differing digits highlighted when color is set.
func (m *Mismatch) Render(color bool) string {
	var out []string
	out = append(out, m.Error()+":")
	for kind := KindPC; kind <= KindOutcome; kind++ {
		group := m.Group(kind)
		if len(group) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("  %s:", kind))
		for _, it := range group {
			if kind == KindOutcome {
				out = append(out, fmt.Sprintf("    ref=%s dut=%s", Outcome(it.Ref), Outcome(it.Dut)))
				continue
			}
			change := &models.Change{Name: it.Name(), Old: it.Ref, New: it.Dut}
			digits := 8
			if kind == KindMem {
				digits = 2
			}
			out = append(out, "    "+change.Pair(digits, color, "ref", "dut"))
		}
	}
	return strings.Join(out, "\n")
}
