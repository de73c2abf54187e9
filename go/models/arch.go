package models

import (
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

type Reg struct {
	Enum int
	Name string
}

type RegVal struct {
	Reg
	Val uint64
}

type regList []Reg

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

type RegMap map[int]string

func (r RegMap) Items() regList {
	ret := make(regList, 0, len(r))
	for e, n := range r {
		ret = append(ret, Reg{e, n})
	}
	return ret
}

type RegReader interface {
	RegRead(reg int) (uint64, error)
}

type Arch struct {
	Name string
	Bits int
	PC   int
	SP   int
	// Regs holds the canonical name of each register the console and diffs display.
	Regs RegMap
	// Aliases maps alternate register names to enums.
	Aliases map[string]int

	// sorted for RegDump
	regList regList
}

// Lookup resolves a register by canonical name or alias.
func (a *Arch) Lookup(name string) (int, bool) {
	for enum, n := range a.Regs {
		if n == name {
			return enum, true
		}
	}
	enum, ok := a.Aliases[name]
	return enum, ok
}

func (a *Arch) sorted() regList {
	if a.regList == nil {
		rl := a.Regs.Items()
		sort.Sort(rl)
		a.regList = rl
	}
	return a.regList
}

// RegDump reads every register in Regs, naturally sorted by name.
// Registers the reader does not implement are skipped.
func (a *Arch) RegDump(r RegReader) []RegVal {
	list := a.sorted()
	ret := make([]RegVal, 0, len(list))
	for _, reg := range list {
		val, err := r.RegRead(reg.Enum)
		if err != nil {
			continue
		}
		ret = append(ret, RegVal{reg, val})
	}
	return ret
}
