package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lispkit/secd"
	"github.com/chazu/lispkit/sexp"
)

// The identity bootstrap returns its argument, so "compiling" a program
// yields the program unchanged. Real compilers are external files.
func identityBootstrap(t *testing.T) sexp.Value {
	t.Helper()
	v, err := ReadFile(filepath.Join("testdata", "identity.secd"))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func readerFor(text string) *sexp.Reader {
	return sexp.NewReader(sexp.NewStringSource(text))
}

func fileReader(t *testing.T, name string) *sexp.Reader {
	t.Helper()
	src, err := sexp.NewFileSource(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return sexp.NewReader(src)
}

// newPipeline prints with NIL by name so the output reads back exactly.
func newPipeline(t *testing.T, opts Options) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	w := sexp.NewWriter(&out)
	w.BlankNil = false
	return New(identityBootstrap(t), w, opts), &out
}

// printed reads back every expression the pipeline printed.
func printed(t *testing.T, out string) []sexp.Value {
	t.Helper()
	r := readerFor(out)
	var vs []sexp.Value
	for {
		v, err := r.GetExp()
		if errors.Is(err, io.EOF) {
			return vs
		}
		if err != nil {
			t.Fatalf("reading output: %v", err)
		}
		vs = append(vs, v)
	}
}

func TestFactorialEndToEnd(t *testing.T) {
	p, out := newPipeline(t, Options{})

	result, err := p.Run(context.Background(), fileReader(t, "factorial.secd"), fileReader(t, "factorial.args"))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result != sexp.Value(sexp.Integer(120)) {
		t.Errorf("result = %s, want 120", sexp.Format(result))
	}

	vs := printed(t, out.String())
	if len(vs) != 4 {
		t.Fatalf("printed %d expressions, want program, code, arguments, result:\n%s", len(vs), out.String())
	}
	if !sexp.Equal(vs[0], vs[1]) {
		t.Error("identity bootstrap should print the program as its compiled code")
	}
	if !sexp.Equal(vs[2], sexp.MustRead("(5)")) {
		t.Errorf("arguments printed as %s", sexp.Format(vs[2]))
	}
	if !strings.HasSuffix(out.String(), "\n120 \n") {
		t.Errorf("output does not end with the result line:\n%s", out.String())
	}
}

func TestOutputWrapsAtWidth(t *testing.T) {
	p, out := newPipeline(t, Options{})
	if _, err := p.Run(context.Background(), fileReader(t, "factorial.secd"), readerFor("(3)")); err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		if len(line) > sexp.DefaultWidth {
			t.Errorf("line longer than %d: %q", sexp.DefaultWidth, line)
		}
	}
}

func TestSkipCompile(t *testing.T) {
	p, out := newPipeline(t, Options{SkipCompile: true})
	p.Bootstrap = nil

	// CAR of the argument list, minus one.
	code := "(10 2 1 16 21)"
	r := readerFor(code + " (43)")
	result, err := p.Run(context.Background(), r, r)
	if err != nil {
		t.Fatal(err)
	}
	if result != sexp.Value(sexp.Integer(42)) {
		t.Errorf("result = %s, want 42", sexp.Format(result))
	}
	if vs := printed(t, out.String()); len(vs) != 3 {
		t.Errorf("printed %d expressions, want program, arguments, result", len(vs))
	}
}

func TestInteractiveBlankLineBeforeArguments(t *testing.T) {
	p, out := newPipeline(t, Options{SkipCompile: true})

	// The empty line ends the program; the arguments come after it.
	src := sexp.NewPromptSource(strings.NewReader("(2 5 21)\n\n(7)\n"), nil)
	result, err := p.Run(context.Background(), sexp.NewReader(src), sexp.NewReader(src))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result != sexp.Value(sexp.Integer(5)) {
		t.Errorf("result = %s, want 5", sexp.Format(result))
	}
	vs := printed(t, out.String())
	if len(vs) != 3 || !sexp.Equal(vs[1], sexp.MustRead("(7)")) {
		t.Errorf("arguments not read after the blank line:\n%s", out.String())
	}
}

func TestAssembleAndListing(t *testing.T) {
	var listing bytes.Buffer
	p, out := newPipeline(t, Options{SkipCompile: true, Assemble: true, Listing: &listing})

	r := readerFor("(CAR LDC 1 SUB STOP) (43)")
	result, err := p.Run(context.Background(), r, r)
	if err != nil {
		t.Fatal(err)
	}
	if result != sexp.Value(sexp.Integer(42)) {
		t.Errorf("result = %s, want 42", sexp.Format(result))
	}

	vs := printed(t, out.String())
	if len(vs) != 4 || !sexp.Equal(vs[1], sexp.MustRead("(10 2 1 16 21)")) {
		t.Errorf("assembled code not printed:\n%s", out.String())
	}
	if !strings.Contains(listing.String(), "; === program ===") || !strings.Contains(listing.String(), "0001  LDC 1") {
		t.Errorf("listing:\n%s", listing.String())
	}
}

func TestFaultKeepsEarlierOutput(t *testing.T) {
	p, out := newPipeline(t, Options{SkipCompile: true})

	r := readerFor("(2 1 2 0 18 21) NIL")
	_, err := p.Run(context.Background(), r, r)
	if !errors.Is(err, secd.ErrArithmetic) {
		t.Fatalf("err = %v, want arithmetic fault", err)
	}
	f, ok := secd.IsFault(err)
	if !ok {
		t.Fatal("fault not extractable from pipeline error")
	}
	if f.Op != secd.OpDIV {
		t.Errorf("fault op = %s, want DIV", f.Op)
	}
	if !strings.Contains(err.Error(), "pipeline: run:") {
		t.Errorf("error %q does not name the stage", err)
	}
	if vs := printed(t, out.String()); len(vs) != 2 {
		t.Errorf("want program and arguments printed before the fault:\n%s", out.String())
	}
}

func TestCompileFault(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	p.Bootstrap = secd.MustAssemble("(CAR CAR CAR STOP)")

	_, err := p.Run(context.Background(), readerFor("(1 2)"), readerFor("NIL"))
	if !errors.Is(err, secd.ErrType) {
		t.Fatalf("err = %v, want type fault", err)
	}
	if !strings.Contains(err.Error(), "pipeline: compile:") {
		t.Errorf("error %q does not name the stage", err)
	}
}

func TestMissingInput(t *testing.T) {
	p, _ := newPipeline(t, Options{})

	if _, err := p.Run(context.Background(), readerFor(""), readerFor("(1)")); !errors.Is(err, io.EOF) {
		t.Errorf("no program: err = %v, want io.EOF", err)
	}
	_, err := p.Run(context.Background(), readerFor("(21)"), readerFor(""))
	if !errors.Is(err, io.EOF) || !strings.Contains(err.Error(), "arguments") {
		t.Errorf("no arguments: err = %v", err)
	}
}

func TestNoBootstrap(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	p.Bootstrap = nil
	if _, err := p.Run(context.Background(), readerFor("(21)"), readerFor("NIL")); err == nil {
		t.Error("expected error without a bootstrap compiler")
	}
}

func TestTraceAndStepLimit(t *testing.T) {
	var trace bytes.Buffer
	p, _ := newPipeline(t, Options{Trace: &trace, MaxSteps: 50})

	_, err := p.Run(context.Background(), fileReader(t, "factorial.secd"), fileReader(t, "factorial.args"))
	if !errors.Is(err, secd.ErrStepLimit) {
		t.Fatalf("err = %v, want step limit", err)
	}
	if !strings.Contains(trace.String(), "op: 6 DUM") {
		t.Error("trace missing DUM step")
	}
}

func TestReadFileErrors(t *testing.T) {
	if _, err := ReadFile(filepath.Join("testdata", "missing.secd")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ReadFile(filepath.Join("testdata", "empty.secd")); err == nil {
		t.Error("expected error for empty file")
	}
}
