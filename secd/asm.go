package secd

import (
	"fmt"
	"strings"

	"github.com/chazu/lispkit/sexp"
)

// Assemble translates symbolic control lists into bytecode. Mnemonics may
// be written in any case and may be mixed with numeric opcodes:
//
//	(LDC 10 LDC 3 SUB STOP)  =>  (2 10 2 3 16 21)
//
// LDF bodies and SEL branches are assembled recursively; LD addresses and
// LDC literals are copied untouched.
func Assemble(code sexp.Value) (sexp.Value, error) {
	var out []sexp.Value
	var pos int
	for ; sexp.IsPair(code); pos++ {
		head := sexp.First(code)
		code = sexp.Second(code)

		op, err := opcodeOf(head)
		if err != nil {
			return nil, fmt.Errorf("secd: assemble instruction %d: %w", pos, err)
		}
		out = append(out, sexp.Integer(op))

		info := GetOpcodeInfo(op)
		for i := 0; i < info.Operands; i++ {
			if !sexp.IsPair(code) {
				return nil, fmt.Errorf("secd: assemble instruction %d: %s is missing operand %d", pos, op, i+1)
			}
			operand := sexp.First(code)
			code = sexp.Second(code)

			if info.Operand == OperandCode {
				if operand, err = Assemble(operand); err != nil {
					return nil, err
				}
			}
			out = append(out, operand)
		}
	}
	if !sexp.IsNil(code) {
		return nil, fmt.Errorf("secd: assemble: code ends in %s, want NIL", sexp.Format(code))
	}
	return sexp.List(out...), nil
}

// MustAssemble parses and assembles symbolic code, panicking on error.
// For tests and fixed programs.
func MustAssemble(text string) sexp.Value {
	code, err := Assemble(sexp.MustRead(text))
	if err != nil {
		panic(err)
	}
	return code
}

func opcodeOf(v sexp.Value) (Opcode, error) {
	switch x := v.(type) {
	case sexp.Integer:
		if op := Opcode(x); sexp.Integer(op) == x && op.Valid() {
			return op, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrUnknownOpcode, int64(x))
	case sexp.Symbol:
		if op, ok := LookupOpcode(string(x)); ok {
			return op, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrUnknownOpcode, string(x))
	default:
		return 0, fmt.Errorf("%w: %s is not an opcode", ErrType, sexp.Format(v))
	}
}

// Disassemble returns a human-readable listing of bytecode. Nested bodies
// are indented under the instruction that owns them.
func Disassemble(code sexp.Value) string {
	return DisassembleWithName(code, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(code sexp.Value, name string) string {
	var sb strings.Builder
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	disassemble(&sb, code, 0)
	return sb.String()
}

func disassemble(sb *strings.Builder, code sexp.Value, depth int) {
	indent := strings.Repeat("    ", depth)
	for pos := 0; sexp.IsPair(code); pos++ {
		head := sexp.First(code)
		code = sexp.Second(code)

		n, ok := head.(sexp.Integer)
		op := Opcode(n)
		if !ok || sexp.Integer(op) != n || !op.Valid() {
			sb.WriteString(fmt.Sprintf("%s%04d  ?? %s\n", indent, pos, sexp.Format(head)))
			continue
		}

		info := GetOpcodeInfo(op)
		if info.Operand == OperandCode {
			sb.WriteString(fmt.Sprintf("%s%04d  %s\n", indent, pos, info.Name))
			labels := []string{"", ""}
			if op == OpSEL {
				labels = []string{"then:", "else:"}
			}
			for i := 0; i < info.Operands && sexp.IsPair(code); i++ {
				if labels[i] != "" {
					sb.WriteString(fmt.Sprintf("%s      %s\n", indent, labels[i]))
				}
				disassemble(sb, sexp.First(code), depth+1)
				code = sexp.Second(code)
			}
			continue
		}

		line := info.Name
		for i := 0; i < info.Operands && sexp.IsPair(code); i++ {
			line += " " + sexp.Format(sexp.First(code))
			code = sexp.Second(code)
		}
		sb.WriteString(fmt.Sprintf("%s%04d  %s\n", indent, pos, line))
	}
	if !sexp.IsNil(code) {
		sb.WriteString(fmt.Sprintf("%s. %s\n", indent, sexp.Format(code)))
	}
}
