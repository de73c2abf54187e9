package cmd

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/lunixbochs/argjoy"
	"github.com/mattn/go-shellwords"
)

type Command struct {
	Name string
	Desc string
	// Run is a func taking *Context followed by typed arguments, or by ...string for free-form commands.
	Run interface{}
}

var Commands = make(map[string]*Command)

func cmd(c *Command) *Command {
	fn := reflect.ValueOf(c.Run)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		panic(fmt.Sprintf("Command.Run must be a func: got (%T) %#v\n", c.Run, c.Run))
	}
	Commands[c.Name] = c
	return c
}

// numCodec parses console words into integer arguments. Any Go integer literal syntax is accepted.
func numCodec(arg interface{}, vals []interface{}) error {
	s, ok := vals[0].(string)
	if !ok {
		return argjoy.NoMatch
	}
	switch v := arg.(type) {
	case *uint64:
		n, err := strconv.ParseUint(s, 0, 64)
		*v = n
		return err
	case *uint32:
		n, err := strconv.ParseUint(s, 0, 32)
		*v = uint32(n)
		return err
	case *int:
		n, err := strconv.ParseInt(s, 0, 64)
		*v = int(n)
		return err
	}
	return argjoy.NoMatch
}

var aj = argjoy.NewArgjoy()

func init() {
	aj.Register(numCodec)
}

func Run(c *Context, line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		c.Printf("parse error: %v\n", err)
		return nil
	}
	if len(args) == 0 {
		return nil
	}
	name, args := args[0], args[1:]
	cmd, ok := Commands[name]
	if !ok {
		c.Printf("command not found.\n")
		return nil
	}
	var out []interface{}
	if reflect.TypeOf(cmd.Run).IsVariadic() {
		out, err = aj.Call(cmd.Run, c, args)
	} else {
		out, err = aj.Call(cmd.Run, append([]interface{}{c}, stringVals(args)...)...)
	}
	if err != nil {
		c.Printf("error: %v\n", err)
	}
	if len(out) > 0 {
		if err, ok := out[0].(error); ok && err != nil {
			c.Printf("error: %v\n", err)
		}
	}
	return nil
}

var HelpCmd = cmd(&Command{
	Name: "help",
	Desc: "List commands.",
	Run: func(c *Context, args ...string) error {
		names := make([]string, 0, len(Commands))
		for name := range Commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c.Printf("%-6s %s\n", name, Commands[name].Desc)
		}
		return nil
	},
})
