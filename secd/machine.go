package secd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/lispkit/sexp"
)

var log = commonlog.GetLogger("lispkit.secd")

// cancelCheckInterval is how many steps Run executes between context checks.
const cancelCheckInterval = 1024

// ---------------------------------------------------------------------------
// Machine: register state
// ---------------------------------------------------------------------------

// Machine is one SECD machine. All of its state is in the four registers;
// machines share nothing, so separate machines may run concurrently. A
// single machine must not be used from more than one goroutine.
type Machine struct {
	regs   Registers
	halted bool
	steps  int
	op     Opcode // instruction being executed, for faults
	id     uuid.UUID

	// Trace, when non-nil, receives the opcode and all four registers before
	// every instruction.
	Trace io.Writer

	// MaxSteps bounds Run; zero means no limit.
	MaxSteps int
}

// NewMachine creates a machine ready to run program on args:
// S = (args), E = NIL, C = program, D = NIL.
func NewMachine(program, args sexp.Value) *Machine {
	return Resume(Registers{
		S: sexp.List(args),
		E: sexp.Nil,
		C: program,
		D: sexp.Nil,
	})
}

// Resume creates a machine in an arbitrary register state.
func Resume(regs Registers) *Machine {
	return &Machine{regs: regs, id: uuid.New()}
}

// Exec runs program on args to completion and returns the value on top of
// the stack at STOP.
func Exec(program, args sexp.Value) (sexp.Value, error) {
	return NewMachine(program, args).Run(context.Background())
}

// ID identifies this machine in log output.
func (m *Machine) ID() uuid.UUID { return m.id }

// Registers returns a snapshot of the registers.
func (m *Machine) Registers() Registers { return m.regs }

// Halted reports whether STOP has executed.
func (m *Machine) Halted() bool { return m.halted }

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() int { return m.steps }

// DumpDepth counts the entries on the dump. Each AP or RAP adds one, as
// does each SEL; RTN and JOIN remove one.
func (m *Machine) DumpDepth() int { return sexp.Len(m.regs.D) }

// Result returns the value on top of the stack once the machine has halted.
func (m *Machine) Result() (sexp.Value, error) {
	if !m.halted {
		return nil, fmt.Errorf("secd: machine %s has not halted", m.id)
	}
	top, ok := m.regs.S.(*sexp.Pair)
	if !ok {
		return nil, m.fault(ErrUnderflow, "stack is empty at STOP")
	}
	return top.First(), nil
}

// Run steps the machine until STOP, a fault, cancellation of ctx, or the
// MaxSteps limit.
func (m *Machine) Run(ctx context.Context) (sexp.Value, error) {
	log.Debug("machine started", "run", m.id.String())

	for !m.halted {
		if m.MaxSteps > 0 && m.steps >= m.MaxSteps {
			return nil, fmt.Errorf("secd: run %s: %w after %d steps", m.id, ErrStepLimit, m.steps)
		}
		if m.steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("secd: run %s cancelled after %d steps: %w", m.id, m.steps, err)
			}
		}
		if err := m.Step(); err != nil {
			log.Debug("machine faulted", "run", m.id.String(), "error", err.Error())
			return nil, err
		}
	}

	log.Debug("machine halted", "run", m.id.String(), "steps", m.steps)
	return m.Result()
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.halted {
		return ErrHalted
	}
	m.op = 0

	cell, ok := m.regs.C.(*sexp.Pair)
	if !ok {
		return m.fault(ErrType, "control ended without STOP: %s", sexp.Format(m.regs.C))
	}
	code, ok := cell.First().(sexp.Integer)
	if !ok {
		return m.fault(ErrType, "opcode %s is not an integer", sexp.Format(cell.First()))
	}
	if code < sexp.Integer(minOpcode) || code > sexp.Integer(maxOpcode) {
		return m.fault(ErrUnknownOpcode, "opcode %d", int64(code))
	}
	m.op = Opcode(code)

	if m.Trace != nil {
		if err := m.trace(); err != nil {
			return fmt.Errorf("secd: trace: %w", err)
		}
	}

	if need := GetOpcodeInfo(m.op).StackPop; !hasDepth(m.regs.S, need) {
		return m.fault(ErrUnderflow, "%s needs %d stack values", m.op, need)
	}

	if err := m.exec(m.op, cell.Second()); err != nil {
		return err
	}
	m.steps++
	return nil
}

// exec performs op. rest is the control list after the opcode cell.
//
// Every instruction works on local copies of the registers and commits them
// only once nothing can fail, so a fault leaves the machine exactly as it
// was before the instruction.
func (m *Machine) exec(op Opcode, rest sexp.Value) error {
	s, e, d := m.regs.S, m.regs.E, m.regs.D

	switch op {
	case OpLD:
		addr, err := m.operand(&rest)
		if err != nil {
			return err
		}
		v, err := m.locate(e, addr)
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(v, s)
		m.regs.C = rest

	case OpLDC:
		lit, err := m.operand(&rest)
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(lit, s)
		m.regs.C = rest

	case OpLDF:
		body, err := m.operand(&rest)
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(sexp.NewPair(body, e), s)
		m.regs.C = rest

	case OpAP:
		closure, args, below, err := m.popCall(s)
		if err != nil {
			return err
		}
		m.regs.D = sexp.NewPair(sexp.List(below, e, rest), d)
		m.regs.E = sexp.NewPair(args, closure.Second())
		m.regs.C = closure.First()
		m.regs.S = sexp.Nil

	case OpRTN:
		result, _, err := m.pop(s, "return value")
		if err != nil {
			return err
		}
		frame, below, err := m.popDump(d)
		if err != nil {
			return err
		}
		savedS, savedE, savedC, err := m.callFrame(frame)
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(result, savedS)
		m.regs.E = savedE
		m.regs.C = savedC
		m.regs.D = below

	case OpDUM:
		m.regs.E = sexp.NewPair(sexp.Nil, e)
		m.regs.C = rest

	case OpRAP:
		closure, args, below, err := m.popCall(s)
		if err != nil {
			return err
		}
		placeholder, ok := closure.Second().(*sexp.Pair)
		if !ok {
			return m.fault(ErrType, "closure environment %s has no frame to complete", sexp.Format(closure.Second()))
		}
		outer, ok := e.(*sexp.Pair)
		if !ok {
			return m.fault(ErrUnderflow, "environment has no DUM frame")
		}
		m.regs.D = sexp.NewPair(sexp.List(below, outer.Second(), rest), d)
		placeholder.SetFirst(args)
		m.regs.E = placeholder
		m.regs.C = closure.First()
		m.regs.S = sexp.Nil

	case OpSEL:
		then, err := m.operand(&rest)
		if err != nil {
			return err
		}
		otherwise, err := m.operand(&rest)
		if err != nil {
			return err
		}
		test, below, err := m.pop(s, "condition")
		if err != nil {
			return err
		}
		sym, ok := test.(sexp.Symbol)
		if !ok {
			return m.fault(ErrType, "condition is %s %s, want symbol", sexp.KindOf(test), sexp.Format(test))
		}
		m.regs.D = sexp.NewPair(rest, d)
		if isTrue(sym) {
			m.regs.C = then
		} else {
			m.regs.C = otherwise
		}
		m.regs.S = below

	case OpJOIN:
		cont, below, err := m.popDump(d)
		if err != nil {
			return err
		}
		m.regs.C = cont
		m.regs.D = below

	case OpCAR, OpCDR:
		top, below, err := m.pop(s, "operand")
		if err != nil {
			return err
		}
		p, ok := top.(*sexp.Pair)
		if !ok {
			return m.fault(ErrType, "operand is %s %s, want pair", sexp.KindOf(top), sexp.Format(top))
		}
		v := p.First()
		if op == OpCDR {
			v = p.Second()
		}
		m.regs.S = sexp.NewPair(v, below)
		m.regs.C = rest

	case OpATOM:
		top, below, err := m.pop(s, "operand")
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(sexp.Bool(sexp.IsAtom(top)), below)
		m.regs.C = rest

	case OpCONS:
		a, s1, err := m.pop(s, "first component")
		if err != nil {
			return err
		}
		b, below, err := m.pop(s1, "second component")
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(sexp.NewPair(a, b), below)
		m.regs.C = rest

	case OpEQ:
		a, s1, err := m.pop(s, "operand")
		if err != nil {
			return err
		}
		b, below, err := m.pop(s1, "operand")
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(sexp.Bool(eq(a, b)), below)
		m.regs.C = rest

	case OpADD, OpSUB, OpMUL, OpDIV, OpREM, OpLEQ:
		top, second, below, err := m.popIntegers(s)
		if err != nil {
			return err
		}
		v, err := m.arith(op, second, top)
		if err != nil {
			return err
		}
		m.regs.S = sexp.NewPair(v, below)
		m.regs.C = rest

	case OpSTOP:
		m.halted = true

	default:
		return m.fault(ErrUnknownOpcode, "opcode %d", int(op))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Instruction helpers
// ---------------------------------------------------------------------------

// operand takes the next cell of code as an operand and advances code.
func (m *Machine) operand(code *sexp.Value) (sexp.Value, error) {
	p, ok := (*code).(*sexp.Pair)
	if !ok {
		return nil, m.fault(ErrType, "missing operand")
	}
	*code = p.Second()
	return p.First(), nil
}

// pop splits a stack into its top value and the rest.
func (m *Machine) pop(s sexp.Value, what string) (sexp.Value, sexp.Value, error) {
	p, ok := s.(*sexp.Pair)
	if !ok {
		return nil, nil, m.fault(ErrUnderflow, "stack empty, need %s", what)
	}
	return p.First(), p.Second(), nil
}

// hasDepth reports whether stack s holds at least n values.
func hasDepth(s sexp.Value, n int) bool {
	for ; n > 0; n-- {
		p, ok := s.(*sexp.Pair)
		if !ok {
			return false
		}
		s = p.Second()
	}
	return true
}

// popDump splits the dump into its top entry and the rest.
func (m *Machine) popDump(d sexp.Value) (sexp.Value, sexp.Value, error) {
	p, ok := d.(*sexp.Pair)
	if !ok {
		return nil, nil, m.fault(ErrUnderflow, "dump is empty")
	}
	return p.First(), p.Second(), nil
}

// popCall pops a closure and its argument list for AP and RAP.
func (m *Machine) popCall(s sexp.Value) (*sexp.Pair, sexp.Value, sexp.Value, error) {
	top, s1, err := m.pop(s, "closure")
	if err != nil {
		return nil, nil, nil, err
	}
	args, below, err := m.pop(s1, "argument list")
	if err != nil {
		return nil, nil, nil, err
	}
	closure, ok := top.(*sexp.Pair)
	if !ok {
		return nil, nil, nil, m.fault(ErrType, "closure is %s %s, want pair", sexp.KindOf(top), sexp.Format(top))
	}
	return closure, args, below, nil
}

// callFrame unpacks a dump entry pushed by AP or RAP.
func (m *Machine) callFrame(frame sexp.Value) (s, e, c sexp.Value, err error) {
	p1, ok1 := frame.(*sexp.Pair)
	if ok1 {
		if p2, ok2 := p1.Second().(*sexp.Pair); ok2 {
			if p3, ok3 := p2.Second().(*sexp.Pair); ok3 && sexp.IsNil(p3.Second()) {
				return p1.First(), p2.First(), p3.First(), nil
			}
		}
	}
	return nil, nil, nil, m.fault(ErrType, "dump entry %s is not a call frame", sexp.Format(frame))
}

// popIntegers pops the two integer operands of an arithmetic instruction.
func (m *Machine) popIntegers(s sexp.Value) (top, second sexp.Integer, below sexp.Value, err error) {
	v1, s1, err := m.pop(s, "integer operand")
	if err != nil {
		return 0, 0, nil, err
	}
	v2, below, err := m.pop(s1, "integer operand")
	if err != nil {
		return 0, 0, nil, err
	}
	top, ok := v1.(sexp.Integer)
	if !ok {
		return 0, 0, nil, m.fault(ErrType, "top operand is %s %s, want integer", sexp.KindOf(v1), sexp.Format(v1))
	}
	second, ok = v2.(sexp.Integer)
	if !ok {
		return 0, 0, nil, m.fault(ErrType, "second operand is %s %s, want integer", sexp.KindOf(v2), sexp.Format(v2))
	}
	return top, second, below, nil
}

// arith computes second op top. Overflow wraps.
func (m *Machine) arith(op Opcode, second, top sexp.Integer) (sexp.Value, error) {
	switch op {
	case OpADD:
		return second + top, nil
	case OpSUB:
		return second - top, nil
	case OpMUL:
		return second * top, nil
	case OpDIV:
		if top == 0 {
			return nil, m.fault(ErrArithmetic, "division of %d by zero", int64(second))
		}
		return second / top, nil
	case OpREM:
		if top == 0 {
			return nil, m.fault(ErrArithmetic, "remainder of %d by zero", int64(second))
		}
		return second % top, nil
	default: // OpLEQ
		return sexp.Bool(second <= top), nil
	}
}

// locate resolves an LD address (n . m) against environment e. Walking
// past the end of a frame or the environment yields NIL.
func (m *Machine) locate(e, addr sexp.Value) (sexp.Value, error) {
	p, ok := addr.(*sexp.Pair)
	if !ok {
		return nil, m.fault(ErrType, "address %s is not a pair", sexp.Format(addr))
	}
	frame, ok1 := p.First().(sexp.Integer)
	slot, ok2 := p.Second().(sexp.Integer)
	if !ok1 || !ok2 {
		return nil, m.fault(ErrType, "address %s is not (integer . integer)", sexp.Format(addr))
	}

	w := e
	for i := sexp.Integer(0); i < frame && sexp.IsPair(w); i++ {
		w = sexp.Second(w)
	}
	w = sexp.First(w)
	for i := sexp.Integer(0); i < slot && sexp.IsPair(w); i++ {
		w = sexp.Second(w)
	}
	return sexp.First(w), nil
}

// isTrue reports whether a SEL condition selects the then-branch.
func isTrue(s sexp.Symbol) bool {
	return len(s) == 1 && (s[0] == 't' || s[0] == 'T')
}

// eq implements EQ. Atoms of the same kind compare by value; pairs never
// compare equal; two absent or empty values are equal.
func eq(a, b sexp.Value) bool {
	absentA := a == nil || sexp.IsEmpty(a)
	absentB := b == nil || sexp.IsEmpty(b)
	if absentA || absentB {
		return absentA && absentB
	}
	switch x := a.(type) {
	case sexp.Symbol:
		y, ok := b.(sexp.Symbol)
		return ok && x == y
	case sexp.Integer:
		y, ok := b.(sexp.Integer)
		return ok && x == y
	default:
		return false
	}
}

// fault builds a *Fault for the current instruction with a snapshot of the
// registers.
func (m *Machine) fault(kind error, format string, args ...any) *Fault {
	return &Fault{
		Kind:   kind,
		Op:     m.op,
		Step:   m.steps,
		Detail: fmt.Sprintf(format, args...),
		Regs:   m.regs,
	}
}
