// Package pipeline runs LispKit programs the way the lispkit command does:
// compile the program with a bootstrap compiler running on the SECD machine,
// then run the compiled code on an argument list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/lispkit/secd"
	"github.com/chazu/lispkit/sexp"
)

var log = commonlog.GetLogger("lispkit.pipeline")

// Options control a Pipeline.
type Options struct {
	// SkipCompile treats the program as bytecode and runs it directly.
	SkipCompile bool

	// Assemble translates symbolic mnemonics in the code before running it.
	Assemble bool

	// Listing, when non-nil, receives a disassembly of the code to run.
	Listing io.Writer

	// Trace, when non-nil, receives the register trace of every machine.
	Trace io.Writer

	// MaxSteps bounds each machine run; zero means no limit.
	MaxSteps int
}

// Pipeline wires a reader, the machine and a writer together.
type Pipeline struct {
	Bootstrap sexp.Value // compiler bytecode; unused with SkipCompile
	Out       *sexp.Writer
	Options
}

// New creates a pipeline that compiles with bootstrap and prints to out.
func New(bootstrap sexp.Value, out *sexp.Writer, opts Options) *Pipeline {
	return &Pipeline{Bootstrap: bootstrap, Out: out, Options: opts}
}

// ReadFile reads the first expression in a file, typically a compiler or
// a compiled program.
func ReadFile(path string) (sexp.Value, error) {
	src, err := sexp.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	v, err := sexp.NewReader(src).GetExp()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("pipeline: %s contains no expression", path)
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", path, err)
	}
	return v, nil
}

// Run reads a program from progs and an argument list from args, which may
// be the same reader. The program, its compiled code, the arguments and
// the result are printed in that order, each flushed as soon as it is
// known, so a fault leaves everything before it on the output.
func (p *Pipeline) Run(ctx context.Context, progs, args *sexp.Reader) (sexp.Value, error) {
	program, err := read(progs, "program")
	if err != nil {
		return nil, err
	}
	if err := p.Out.Println(program); err != nil {
		return nil, err
	}

	code, err := p.Compile(ctx, program)
	if err != nil {
		return nil, err
	}

	arguments, err := read(args, "arguments")
	if err != nil {
		return nil, err
	}
	if err := p.Out.Println(arguments); err != nil {
		return nil, err
	}

	result, err := p.Exec(ctx, "run", code, arguments)
	if err != nil {
		return nil, err
	}
	if err := p.Out.Println(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Compile turns a program into runnable bytecode and prints it. The
// bootstrap compiler is applied unless SkipCompile is set; Assemble and
// Listing then apply to its output.
func (p *Pipeline) Compile(ctx context.Context, program sexp.Value) (sexp.Value, error) {
	code := program
	if !p.SkipCompile {
		if p.Bootstrap == nil {
			return nil, errors.New("pipeline: no bootstrap compiler loaded")
		}
		var err error
		if code, err = p.Exec(ctx, "compile", p.Bootstrap, sexp.List(program)); err != nil {
			return nil, err
		}
	}

	if p.Assemble {
		var err error
		if code, err = secd.Assemble(code); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	if !p.SkipCompile || p.Assemble {
		if err := p.Out.Println(code); err != nil {
			return nil, err
		}
	}

	if p.Listing != nil {
		if _, err := io.WriteString(p.Listing, secd.DisassembleWithName(code, "program")); err != nil {
			return nil, err
		}
	}
	return code, nil
}

// Exec runs code on args in a fresh machine. stage names the run in logs
// and errors.
func (p *Pipeline) Exec(ctx context.Context, stage string, code, args sexp.Value) (sexp.Value, error) {
	m := secd.NewMachine(code, args)
	m.Trace = p.Trace
	m.MaxSteps = p.MaxSteps

	log.Info("starting", "stage", stage, "run", m.ID().String())
	result, err := m.Run(ctx)
	if err != nil {
		log.Error("failed", "stage", stage, "run", m.ID().String(), "error", err.Error())
		return nil, fmt.Errorf("pipeline: %s: %w", stage, err)
	}
	log.Info("finished", "stage", stage, "run", m.ID().String(), "steps", m.Steps())
	return result, nil
}

func read(r *sexp.Reader, what string) (sexp.Value, error) {
	v, err := r.GetExp()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("pipeline: no %s: %w", what, err)
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: reading %s: %w", what, err)
	}
	return v, nil
}
