package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
)

var (
	colorSame = ansi.ColorCode("default:default")
	colorDiff = ansi.ColorCode("default+bu:default")
	colorBad  = ansi.ColorCode("red+b:default")
)

// Change pairs two observations of one register.
// In the console Old is the value before the last step; in a mismatch report Old is the reference and New the DUT.
type Change struct {
	Enum     int
	Name     string
	Old, New uint64
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

// span is a run of hex digits that either all match or all differ.
type span struct {
	old, new string
	differ   bool
}

func (c *Change) spans(digits int) []span {
	hexFmt := fmt.Sprintf("%%0%dx", digits)
	a, b := fmt.Sprintf(hexFmt, c.New), fmt.Sprintf(hexFmt, c.Old)
	var out []span
	start := 0
	for i := 1; i <= len(a); i++ {
		if i == len(a) || (a[i] != b[i]) != (a[start] != b[start]) {
			out = append(out, span{old: b[start:i], new: a[start:i], differ: a[start] != b[start]})
			start = i
		}
	}
	return out
}

func pad(s string, width int) string {
	if len(s) < width {
		return strings.Repeat(" ", width-len(s)) + s
	}
	return s
}

// String renders the new value, highlighting the digits that differ from the old one.
func (c *Change) String(digits int, color bool) string {
	name := pad(c.Name, 5)
	if !c.Changed() {
		return fmt.Sprintf("%s 0x%0*x", name, digits, c.New)
	}
	if !color {
		return fmt.Sprintf("%s*0x%0*x", name, digits, c.New)
	}
	var b strings.Builder
	b.WriteString(colorDiff + name + ansi.Reset + " 0x")
	for _, s := range c.spans(digits) {
		if s.differ {
			b.WriteString(colorDiff)
		} else {
			b.WriteString(colorSame)
		}
		b.WriteString(s.new)
	}
	b.WriteString(ansi.Reset)
	return b.String()
}

// Pair renders both sides, for mismatch reports.
func (c *Change) Pair(digits int, color bool, oldLabel, newLabel string) string {
	line := fmt.Sprintf("%s: %s=0x%0*x %s=0x%0*x", c.Name, oldLabel, digits, c.Old, newLabel, digits, c.New)
	if color && c.Changed() {
		return colorBad + line + ansi.Reset
	}
	return line
}

// Changes is a set of register observations rendered in columns.
type Changes struct {
	Digits  int
	Changes []*Change
	Cols    int
}

func (cs *Changes) String(color bool) string {
	cols := cs.Cols
	if cols <= 0 {
		cols = 4
	}
	var out strings.Builder
	rows := (len(cs.Changes) + cols - 1) / cols
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			i := col*rows + r
			if i >= len(cs.Changes) {
				break
			}
			if col > 0 {
				out.WriteString("  ")
			}
			out.WriteString(cs.Changes[i].String(cs.Digits, color))
		}
		out.WriteString("\n")
	}
	return out.String()
}

// Changed returns only the entries whose values differ.
func (cs *Changes) Changed() []*Change {
	var ret []*Change
	for _, c := range cs.Changes {
		if c.Changed() {
			ret = append(ret, c)
		}
	}
	return ret
}

func (cs *Changes) Find(enum int) *Change {
	for _, c := range cs.Changes {
		if c.Enum == enum {
			return c
		}
	}
	return nil
}

// Compare reads every register of arch from both readers.
func Compare(arch *Arch, old, new RegReader) *Changes {
	newVals := arch.RegDump(new)
	cs := &Changes{Digits: arch.Bits / 4, Changes: make([]*Change, 0, len(newVals))}
	for _, reg := range newVals {
		oldVal, err := old.RegRead(reg.Enum)
		if err != nil {
			continue
		}
		cs.Changes = append(cs.Changes, &Change{Enum: reg.Enum, Name: reg.Name, Old: oldVal, New: reg.Val})
	}
	return cs
}

// StatusDiff tracks register values between calls to Changes.
type StatusDiff struct {
	Arch    *Arch
	oldRegs map[int]uint64
}

// Changes reads all registers and compares them to the values seen on the previous call.
func (s *StatusDiff) Changes(r RegReader, onlyChanged bool) *Changes {
	regs := s.Arch.RegDump(r)
	cs := &Changes{Digits: s.Arch.Bits / 4}
	for _, reg := range regs {
		c := &Change{Enum: reg.Enum, Name: reg.Name, Old: s.oldRegs[reg.Enum], New: reg.Val}
		if s.oldRegs == nil {
			c.Old = c.New
		}
		if !onlyChanged || c.Changed() {
			cs.Changes = append(cs.Changes, c)
		}
	}
	s.oldRegs = make(map[int]uint64, len(regs))
	for _, reg := range regs {
		s.oldRegs[reg.Enum] = reg.Val
	}
	return cs
}
