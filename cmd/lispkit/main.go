// lispkit runs LispKit Lisp programs on the SECD machine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lispkit/console"
	"github.com/chazu/lispkit/manifest"
	"github.com/chazu/lispkit/pipeline"
	"github.com/chazu/lispkit/secd"
	"github.com/chazu/lispkit/sexp"
)

var log = commonlog.GetLogger("lispkit")

// countFlag counts repetitions of a boolean flag (-v -v).
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }

func (c *countFlag) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if b {
		*c++
	}
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var verbose countFlag
	compilerPath := flag.String("compiler", "", "Bootstrap compiler bytecode (default from lispkit.toml, else compiler.secd)")
	skipCompile := flag.Bool("S", false, "Program is already compiled bytecode; run it directly")
	assemble := flag.Bool("asm", false, "Assemble symbolic mnemonics in the code before running")
	disasm := flag.Bool("disasm", false, "Print a mnemonic listing of the code before running")
	trace := flag.Bool("trace", false, "Print the registers before every instruction")
	maxSteps := flag.Int("max-steps", -1, "Stop a run after this many instructions (0 = no limit, default from lispkit.toml)")
	width := flag.Int("width", 0, "Output line width (default from lispkit.toml, else 60)")
	configPath := flag.String("config", "", "Configuration file (default: lispkit.toml found from the working directory)")
	flag.Var(&verbose, "v", "Verbose logging; repeat for more")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lispkit [options] [program [arguments]]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles a LispKit program with the bootstrap compiler, then runs it on an\n")
		fmt.Fprintf(os.Stderr, "argument list. Program and arguments are read interactively when no files are given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lispkit fac.lsp fac.args            # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  lispkit -S fac.secd fac.args        # Run compiled bytecode\n")
		fmt.Fprintf(os.Stderr, "  lispkit -S -asm -disasm prog.asm    # Assemble, list and run\n")
		fmt.Fprintf(os.Stderr, "  lispkit -compiler APENDIX2 -trace   # Interactive, with register trace\n")
	}
	flag.Parse()

	m, err := loadManifest(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	commonlog.Configure(m.Log.Verbosity+int(verbose), m.LogFile())

	if *width > 0 {
		m.Writer.Width = *width
	}
	if *maxSteps >= 0 {
		m.Machine.MaxSteps = *maxSteps
	}
	if *trace {
		m.Machine.Trace = true
	}

	out := sexp.NewWriter(os.Stdout)
	out.Width = m.Writer.Width
	out.BlankNil = m.Writer.BlankNil

	opts := pipeline.Options{
		SkipCompile: *skipCompile,
		Assemble:    *assemble,
		MaxSteps:    m.Machine.MaxSteps,
	}
	if *disasm {
		opts.Listing = os.Stdout
	}
	if m.Machine.Trace {
		opts.Trace = os.Stdout
	}

	var bootstrap sexp.Value
	if !*skipCompile {
		path := *compilerPath
		if path == "" {
			path = m.CompilerPath()
		}
		log.Info("loading compiler", "path", path)
		if bootstrap, err = pipeline.ReadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	progs, args, closeInput, err := openInput(flag.Args(), m, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeInput()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.New(bootstrap, out, opts)
	if _, err := p.Run(ctx, progs, args); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

func loadManifest(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil || m != nil {
		return m, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return manifest.Default(wd), nil
}

// openInput builds the program and argument readers. Files are used when
// given; the rest is read from stdin. Each expression read from stdin gets
// its own reader over one line source, so the empty line that ends an
// interactive program does not end the arguments too.
func openInput(files []string, m *manifest.Manifest, stdin *os.File) (progs, args *sexp.Reader, closeFn func(), err error) {
	if len(files) > 2 {
		return nil, nil, nil, fmt.Errorf("expected at most 2 files (program, arguments), got %d", len(files))
	}

	closeFn = func() {}
	var interactive sexp.LineSource
	terminal := func() *sexp.Reader {
		if interactive == nil {
			if isTerminal(stdin) {
				cs := console.New(m.Reader.History)
				closeFn = func() {
					if err := cs.Close(); err != nil {
						log.Warningf("closing console: %s", err)
					}
				}
				interactive = cs
			} else {
				interactive = sexp.NewPromptSource(stdin, os.Stderr)
			}
		}
		r := sexp.NewReader(interactive)
		r.Prompt = m.Reader.Prompt
		return r
	}

	readers := make([]*sexp.Reader, 2)
	for i := range readers {
		if i < len(files) {
			src, err := sexp.NewFileSource(files[i])
			if err != nil {
				return nil, nil, nil, err
			}
			readers[i] = sexp.NewReader(src)
		} else {
			readers[i] = terminal()
		}
	}
	return readers[0], readers[1], closeFn, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// reportError prints err on stderr; machine faults also get a register dump.
func reportError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if f, ok := secd.IsFault(err); ok {
		if perr := f.Regs.Print(os.Stderr); perr != nil {
			log.Errorf("printing registers: %s", perr)
		}
	}
}
