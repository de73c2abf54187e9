package cmd

import (
	"fmt"
	"io"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/models"
)

type Context struct {
	io.Writer
	M     *difftest.Manager
	Dis   models.Dis
	Color bool

	// Last is the most recent mismatch, cleared by a clean step
	Last *difftest.Mismatch
	// Stopped is set once the program exits or the models diverge
	Stopped bool

	status *models.StatusDiff
}

func NewContext(w io.Writer, m *difftest.Manager, dis models.Dis) *Context {
	c := &Context{Writer: w, M: m, Dis: dis, status: &models.StatusDiff{Arch: rv.Arch}}
	c.status.Changes(m.Ref.Engine(), false)
	return c
}

func (c *Context) Printf(format string, a ...interface{}) (n int, err error) {
	return fmt.Fprintf(c, format, a...)
}

func (c *Context) Ref() *difftest.Ref {
	return c.M.Ref
}
