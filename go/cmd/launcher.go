package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type command struct {
	name, desc string
	main       func(args []string)
}

var commands = make(map[string]*command)
var order []string
var pad int

// Register adds a subcommand. main receives argv with "difftest <name>" joined as argv[0].
func Register(name, desc string, main func(args []string)) {
	pad = max(pad, len(name))
	commands[name] = &command{name, desc, main}
	order = append(order, name)
}

func usage(w io.Writer, prog string) {
	fmt.Fprintln(w, "Commands:")
	fstr := fmt.Sprintf("  %%-%ds | %%s\n", pad)
	for _, name := range order {
		cmd := commands[name]
		fmt.Fprintf(w, fstr, cmd.name, cmd.desc)
	}
	fmt.Fprintf(w, "\nRun '%s <command> -h' for command options.\n", prog)
	fmt.Fprintf(w, "\nExample: %s run -isa rv32im -mem 0x80000000:0x100000 bins/rv32.elf\n\n", prog)
}

func Main() {
	if len(os.Args) < 2 {
		usage(os.Stderr, os.Args[0])
		os.Exit(1)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" {
		usage(os.Stdout, os.Args[0])
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Command '%s' not found.\n\n", name)
		usage(os.Stderr, os.Args[0])
		os.Exit(1)
	}
	args := append([]string{strings.Join(os.Args[:2], " ")}, os.Args[2:]...)
	cmd.main(args)
}
