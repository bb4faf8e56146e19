package secd

import (
	"errors"
	"fmt"
	"io"

	"github.com/chazu/lispkit/sexp"
)

// Fault kinds. A *Fault unwraps to exactly one of these.
var (
	// ErrType: an operand of the wrong kind (CAR of an integer, arithmetic
	// on a symbol, SEL on a pair, a non-integer opcode, missing code).
	ErrType = errors.New("type fault")

	// ErrArithmetic: DIV or REM with a zero divisor.
	ErrArithmetic = errors.New("arithmetic fault")

	// ErrUnderflow: an instruction needs more stack or dump entries than
	// exist.
	ErrUnderflow = errors.New("stack or dump underflow")

	// ErrUnknownOpcode: an opcode outside 1-21.
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// Errors that are not machine faults.
var (
	// ErrHalted is returned by Step after STOP.
	ErrHalted = errors.New("secd: machine halted")

	// ErrStepLimit is returned by Run when MaxSteps is exceeded.
	ErrStepLimit = errors.New("secd: step limit exceeded")
)

// Registers is a snapshot of the four machine registers.
type Registers struct {
	S sexp.Value // stack
	E sexp.Value // environment
	C sexp.Value // control
	D sexp.Value // dump
}

// Print writes the registers to out, each under its label, in the
// machine's textual syntax.
func (r Registers) Print(out io.Writer) error {
	w := sexp.NewWriter(out)
	for _, reg := range []struct {
		label string
		v     sexp.Value
	}{
		{"s:", r.S},
		{"e:", r.E},
		{"c:", r.C},
		{"d:", r.D},
	} {
		if _, err := fmt.Fprintln(out, reg.label); err != nil {
			return err
		}
		if err := w.Println(reg.v); err != nil {
			return err
		}
	}
	return nil
}

// Fault is a machine error. The registers are captured as they were before
// the faulting instruction started.
type Fault struct {
	Kind   error  // ErrType, ErrArithmetic, ErrUnderflow or ErrUnknownOpcode
	Op     Opcode // instruction being executed; 0 if none was decoded
	Step   int    // number of instructions completed before the fault
	Detail string
	Regs   Registers
}

func (f *Fault) Error() string {
	if f.Op == 0 {
		return fmt.Sprintf("secd: %v at step %d: %s", f.Kind, f.Step, f.Detail)
	}
	return fmt.Sprintf("secd: %v in %s at step %d: %s", f.Kind, f.Op, f.Step, f.Detail)
}

func (f *Fault) Unwrap() error {
	return f.Kind
}

// IsFault extracts a *Fault from err.
func IsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
