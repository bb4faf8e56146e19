package secd

import (
	"fmt"
	"sort"
	"strings"
)

// Opcode is an SECD instruction code. In bytecode it appears as an Integer
// at the head of the control list.
type Opcode int

const (
	// ========================================================================
	// Loads (1-3)
	// ========================================================================

	OpLD  Opcode = 1 // Push element m of frame n of E: LD (n . m)
	OpLDC Opcode = 2 // Push a literal: LDC <value>
	OpLDF Opcode = 3 // Push closure (body . E): LDF <body>

	// ========================================================================
	// Calls (4-7)
	// ========================================================================

	OpAP  Opcode = 4 // Apply closure on top of S to the argument list below it
	OpRTN Opcode = 5 // Return top of S to the caller saved in D
	OpDUM Opcode = 6 // Push a placeholder frame onto E
	OpRAP Opcode = 7 // Recursive apply: fill the placeholder frame, then AP

	// ========================================================================
	// Control (8-9)
	// ========================================================================

	OpSEL  Opcode = 8 // Branch on top of S: SEL <then> <else>
	OpJOIN Opcode = 9 // Resume the code saved by SEL

	// ========================================================================
	// Lists and predicates (10-14)
	// ========================================================================

	OpCAR  Opcode = 10 // Replace top pair with its first component
	OpCDR  Opcode = 11 // Replace top pair with its second component
	OpATOM Opcode = 12 // t if top is an Integer or Symbol
	OpCONS Opcode = 13 // Pop a, b; push (a . b)
	OpEQ   Opcode = 14 // Pop two atoms; push t if equal

	// ========================================================================
	// Arithmetic (15-20): second op top
	// ========================================================================

	OpADD Opcode = 15
	OpSUB Opcode = 16
	OpMUL Opcode = 17
	OpDIV Opcode = 18
	OpREM Opcode = 19
	OpLEQ Opcode = 20

	// ========================================================================
	// Halt (21)
	// ========================================================================

	OpSTOP Opcode = 21
)

// Range of defined opcodes.
const (
	minOpcode = OpLD
	maxOpcode = OpSTOP
)

// Operand kinds.
const (
	OperandLiteral = iota // copied as is (LD address, LDC value)
	OperandCode           // nested control list (LDF body, SEL branches)
)

// OpcodeInfo provides metadata about each opcode for tracing, assembly and
// disassembly.
type OpcodeInfo struct {
	Name     string // Mnemonic
	StackPop int    // Values S must hold before the instruction runs
	Operands int    // Operand cells following the opcode in C
	Operand  int    // OperandLiteral or OperandCode
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpLD:  {"LD", 0, 1, OperandLiteral},
	OpLDC: {"LDC", 0, 1, OperandLiteral},
	OpLDF: {"LDF", 0, 1, OperandCode},

	OpAP:  {"AP", 2, 0, OperandLiteral},
	OpRTN: {"RTN", 1, 0, OperandLiteral},
	OpDUM: {"DUM", 0, 0, OperandLiteral},
	OpRAP: {"RAP", 2, 0, OperandLiteral},

	OpSEL:  {"SEL", 1, 2, OperandCode},
	OpJOIN: {"JOIN", 0, 0, OperandLiteral},

	OpCAR:  {"CAR", 1, 0, OperandLiteral},
	OpCDR:  {"CDR", 1, 0, OperandLiteral},
	OpATOM: {"ATOM", 1, 0, OperandLiteral},
	OpCONS: {"CONS", 2, 0, OperandLiteral},
	OpEQ:   {"EQ", 2, 0, OperandLiteral},

	OpADD: {"ADD", 2, 0, OperandLiteral},
	OpSUB: {"SUB", 2, 0, OperandLiteral},
	OpMUL: {"MUL", 2, 0, OperandLiteral},
	OpDIV: {"DIV", 2, 0, OperandLiteral},
	OpREM: {"REM", 2, 0, OperandLiteral},
	OpLEQ: {"LEQ", 2, 0, OperandLiteral},

	OpSTOP: {"STOP", 0, 0, OperandLiteral},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo named "UNKNOWN(n)" if the opcode is not defined.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", int(op))}
}

// LookupOpcode finds an opcode by mnemonic, ignoring case.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[strings.ToUpper(name)]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is one of the 21 defined instructions.
func (op Opcode) Valid() bool {
	return op >= minOpcode && op <= maxOpcode
}

// Operands returns the number of operand cells following the opcode.
func (op Opcode) Operands() int {
	return GetOpcodeInfo(op).Operands
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	sort.Slice(opcodes, func(i, j int) bool { return opcodes[i] < opcodes[j] })
	return opcodes
}
