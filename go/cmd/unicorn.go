//go:build unicorn

package cmd

import (
	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/cpu/unicorn"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

func init() {
	Engines["unicorn"] = func(isa *rv.Isa) cpu.Builder { return &unicorn.Builder{Isa: isa} }
}
