package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"golang.org/x/exp/slices"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/cpu/riscv"
	"github.com/lunixbochs/difftest/go/debug"
	dcmd "github.com/lunixbochs/difftest/go/debug/cmd"
	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/difftest/trace"
	"github.com/lunixbochs/difftest/go/difftest/wire"
	"github.com/lunixbochs/difftest/go/loader"
	"github.com/lunixbochs/difftest/go/models"
	"github.com/lunixbochs/difftest/go/models/cpu"
)

// Engines builds reference engines by -ref name.
var Engines = map[string]func(isa *rv.Isa) cpu.Builder{
	"riscv": func(isa *rv.Isa) cpu.Builder { return &riscv.Builder{Isa: isa} },
}

const defaultsFile = "difftest.json"

type strslice []string

func (s *strslice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *strslice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// LoadDefaults reads difftest.json from the first user or system config folder holding one.
func LoadDefaults() (*models.Config, error) {
	config := &models.Config{}
	folder := configdir.New("difftest", "difftest").QueryFolderContainsFile(defaultsFile)
	if folder != nil {
		data, err := folder.ReadFile(defaultsFile)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", defaultsFile)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "parsing %s in %s", defaultsFile, folder.Path)
		}
	}
	return config.Init(), nil
}

type DifftestCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet

	Layout difftest.Layout
	Image  *loader.Image
	Entry  uint32
	// Engine builds the reference engine. The DUT always runs on the pure-Go interpreter.
	Engine cpu.Builder
}

func NewDifftestCmd() *DifftestCmd {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	return &DifftestCmd{Flags: fs}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *DifftestCmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if err, ok := err.(stackTracer); ok {
		var frames [][]string
		for _, f := range err.StackTrace() {
			fullpath := ""
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)

			frame := fmt.Sprintf("%+s", f)
			tmp := strings.SplitN(frame, "\n", 3)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			frames = append(frames, []string{fullpath, fileline, method})
			if method == "main.main" {
				break
			}
		}
		widths := make([]int, 2)
		for _, f := range frames {
			for i := range widths {
				widths[i] = max(widths[i], len(f[i]))
			}
		}
		for _, f := range frames {
			for i, w := range widths {
				if w > 0 {
					fmt.Fprintf(os.Stderr, "%s%s | ", f[i], strings.Repeat(" ", w-len(f[i])))
				}
			}
			fmt.Fprintf(os.Stderr, "%s()\n", f[2])
		}
	}
}

// NewRef builds an instance over the command's layout and loads the image into it.
// A nil builder selects the pure-Go interpreter.
func (c *DifftestCmd) NewRef(b cpu.Builder) (*difftest.Ref, error) {
	opts := []difftest.Option{
		difftest.WithOutput(c.Config.Output),
		difftest.WithVerbose(c.Config.Verbose),
	}
	if b != nil {
		opts = append(opts, difftest.WithEngine(b))
	}
	ref, err := difftest.New(c.Layout, c.Entry, nil, c.Config.Isa, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Image.LoadInto(ref); err != nil {
		ref.Close()
		return nil, err
	}
	return ref, nil
}

// parseLayout builds the layout from -mem, falling back to one region around the image.
func parseLayout(mem []string, img *loader.Image) (difftest.Layout, error) {
	if len(mem) == 0 {
		if layout := img.Layout(); layout != nil {
			return layout, nil
		}
		return nil, errors.New("image is empty and no -mem was given")
	}
	var layout difftest.Layout
	for _, s := range mem {
		r, err := difftest.ParseRegion(s)
		if err != nil {
			return nil, err
		}
		layout = append(layout, r)
	}
	return layout, nil
}

func (c *DifftestCmd) serve(port int) error {
	l, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return errors.Wrap(err, "error listening for thin binding")
	}
	defer l.Close()
	fmt.Fprintf(os.Stderr, "Serving reference model on %s\n", l.Addr())
	srv := &wire.Server{
		New: func() (*difftest.Ref, error) { return c.NewRef(c.Engine) },
		Out: c.Config.Output,
	}
	return srv.Serve(l)
}

// run drives the DUT and reference in lockstep and returns the process exit code.
func (c *DifftestCmd) run(watches []string, interactive bool, remote int, restore, save string) (int, error) {
	dut, err := c.NewRef(nil)
	if err != nil {
		return 1, errors.Wrap(err, "error creating DUT")
	}
	defer dut.Close()
	ref, err := c.NewRef(c.Engine)
	if err != nil {
		return 1, errors.Wrap(err, "error creating reference")
	}
	defer ref.Close()

	if restore != "" {
		snap, err := os.ReadFile(restore)
		if err != nil {
			return 1, errors.Wrap(err, "error reading snapshot")
		}
		for _, r := range []*difftest.Ref{dut, ref} {
			if err := difftest.LoadSnapshot(r, snap); err != nil {
				return 1, err
			}
		}
	}

	m := difftest.NewManager(dut, ref)
	m.Out = c.Config.Output
	m.Color = c.Config.Color
	for _, w := range watches {
		r, err := difftest.ParseRegion(w)
		if err != nil {
			// a bare address watches one word
			addr, perr := strconv.ParseUint(w, 0, 64)
			if perr != nil {
				return 1, errors.Wrapf(err, "bad -watch %q", w)
			}
			r = difftest.Region{Base: addr, Size: 4}
		}
		if err := m.Watch(r.Base, int(r.Size)); err != nil {
			return 1, err
		}
	}
	if c.Config.TraceFile != "" {
		f, err := os.Create(c.Config.TraceFile)
		if err != nil {
			return 1, errors.Wrap(err, "error creating trace file")
		}
		tw, err := trace.NewWriter(f, c.Config.Isa, c.Entry)
		if err != nil {
			f.Close()
			return 1, err
		}
		defer tw.Close()
		m.Trace = tw
	}

	code := 0
	if interactive || remote > 0 {
		ctx := dcmd.NewContext(c.Config.Output, m, &riscv.Dis{})
		ctx.Color = c.Config.Color
		var cerr error
		if remote > 0 {
			conn, err := debug.Accept("localhost", strconv.Itoa(remote))
			if err != nil {
				return 1, errors.Wrapf(err, "error accepting conn on port %d", remote)
			}
			cerr = debug.RunRemote(conn, ctx)
		} else {
			cerr = debug.NewConsole(ctx).Run(nil, nil)
		}
		if cerr != nil {
			return 1, cerr
		}
		if ctx.Last != nil {
			code = 1
		}
	} else {
		out, mm := m.Run(c.Config.MaxSteps)
		switch {
		case mm != nil:
			fmt.Fprintf(c.Config.Output, "%v\n", mm)
			code = 1
		case out == difftest.Exit:
			status := ref.ExitStatus()
			fmt.Fprintf(c.Config.Output, "%s after %d steps\n", status.String(), m.Steps())
			code = exitCode(status)
		case out == difftest.Fault:
			fmt.Fprintf(c.Config.Output, "stopped on %v after %d steps\n", ref.LastTrap(), m.Steps())
			code = 1
		default:
			fmt.Fprintf(c.Config.Output, "step limit reached after %d steps\n", m.Steps())
		}
	}
	if save != "" {
		snap, err := difftest.SaveSnapshot(ref)
		if err != nil {
			return 1, err
		}
		if err := os.WriteFile(save, snap, 0644); err != nil {
			return 1, errors.Wrap(err, "error writing snapshot")
		}
	}
	return code, nil
}

// exitCode maps a guest exit status to a process exit code.
// The OS keeps only the low byte, so a nonzero status that truncates to 0 becomes 1.
func exitCode(status models.ExitStatus) int {
	code := int(status) & 0xff
	if status != 0 && code == 0 {
		return 1
	}
	return code
}

func (c *DifftestCmd) Run(argv []string) {
	config, err := LoadDefaults()
	if err != nil {
		c.PrintError(err)
		os.Exit(1)
	}
	c.Config = config

	fs := c.Flags
	isa := fs.String("isa", config.Isa, "reference ISA string, e.g. rv32imf_zicsr or rv32i_zve32x_zvl128b")
	refName := fs.String("ref", config.Ref, "reference engine")
	var mem strslice
	fs.Var(&mem, "mem", "map a memory region as base:size (repeatable, default covers the image)")
	base := fs.Uint64("base", 0x80000000, "load address for raw images")
	entry := fs.Int64("entry", -1, "override the start pc")
	steps := fs.Uint64("n", config.MaxSteps, "stop after this many steps (0 runs until exit)")
	var watches strslice
	fs.Var(&watches, "watch", "compare memory at addr or base:size after every step (repeatable)")
	tracefile := fs.String("trace", config.TraceFile, "write a binary step trace to <file>")
	save := fs.String("save", "", "save reference state to <file> after the run")
	restore := fs.String("restore", "", "load state saved with -save into both models before running")
	listen := fs.Int("listen", -1, "serve the thin binding on localhost:<port> instead of running")
	interactive := fs.Bool("i", false, "step interactively from a console")
	remote := fs.Int("debug", -1, "serve the console on localhost:<port>")
	connect := fs.Int("connect", -1, "connect to a console on localhost:<port>")
	verbose := fs.Bool("v", config.Verbose, "verbose output")
	outfile := fs.String("o", "", "redirect output to file (default stderr)")
	color := fs.Bool("color", config.Color || isatty.IsTerminal(os.Stderr.Fd()), "colorize register and mismatch output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <image>\n\nOptions:\n", argv[0])
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(os.Stderr, flags)
		var names []string
		for name := range Engines {
			names = append(names, name)
		}
		slices.Sort(names)
		fmt.Fprintf(os.Stderr, "\nEngines: %s\n", strings.Join(names, ", "))
		fmt.Fprintf(os.Stderr, "\nConsole Client:\n  %s -connect <port>\n", argv[0])
		fmt.Fprintf(os.Stderr, "\nExample:\n  %s -isa rv32imf -mem 0x80000000:0x100000 -n 100000 bins/rv32.elf\n", argv[0])
	}
	fs.Parse(argv[1:])

	if *connect > 0 {
		addr := net.JoinHostPort("localhost", strconv.Itoa(*connect))
		if err := debug.RunClient(addr); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return
	}
	args := fs.Args()
	if len(args) < 1 {
		fs.Usage()
		os.Exit(1)
	}

	config.Isa = *isa
	config.Ref = *refName
	config.MaxSteps = *steps
	config.TraceFile = *tracefile
	config.Verbose = *verbose
	config.Color = *color
	config.Output = colorable.NewColorableStderr()
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			c.PrintError(errors.Wrap(err, "error opening output file"))
			os.Exit(1)
		}
		config.Output = out
	}
	if len(mem) == 0 {
		mem = config.Mem
	}

	parsed, err := rv.ParseIsa(config.Isa)
	if err != nil {
		c.PrintError(err)
		os.Exit(1)
	}
	newEngine, ok := Engines[config.Ref]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown engine %q\n", config.Ref)
		os.Exit(1)
	}
	c.Engine = newEngine(parsed)

	if len(mem) > 0 {
		if r, err := difftest.ParseRegion(mem[0]); err == nil && !isFlagSet(fs, "base") {
			*base = r.Base
		}
	}
	c.Image, err = loader.LoadFile(args[0], *base)
	if err != nil {
		c.PrintError(err)
		os.Exit(1)
	}
	if c.Layout, err = parseLayout(mem, c.Image); err != nil {
		c.PrintError(err)
		os.Exit(1)
	}
	c.Entry = uint32(c.Image.Entry)
	if *entry >= 0 {
		c.Entry = uint32(*entry)
	}

	if *listen > 0 {
		if err := c.serve(*listen); err != nil {
			c.PrintError(err)
			os.Exit(1)
		}
		return
	}
	code, err := c.run(watches, *interactive, *remote, *restore, *save)
	if err != nil {
		c.PrintError(err)
	}
	if closer, ok := config.Output.(io.Closer); ok && *outfile != "" {
		closer.Close()
	}
	os.Exit(code)
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
