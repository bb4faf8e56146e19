package secd

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode %d has no metadata", int(op))
		}
	}
}

func TestOpcodeNumbering(t *testing.T) {
	all := AllOpcodes()
	if len(all) != 21 {
		t.Fatalf("got %d opcodes, want 21", len(all))
	}
	for i, op := range all {
		if int(op) != i+1 {
			t.Errorf("opcode %d at position %d, want contiguous 1-21", int(op), i)
		}
		if !op.Valid() {
			t.Errorf("%s reports invalid", op)
		}
	}
	for _, op := range []Opcode{0, 22, -1} {
		if op.Valid() {
			t.Errorf("Opcode(%d).Valid() = true", int(op))
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpLD, "LD"},
		{OpLDC, "LDC"},
		{OpAP, "AP"},
		{OpRAP, "RAP"},
		{OpSEL, "SEL"},
		{OpCONS, "CONS"},
		{OpLEQ, "LEQ"},
		{OpSTOP, "STOP"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(%d).String() = %q, want %q", int(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	if got := Opcode(99).String(); got != "UNKNOWN(99)" {
		t.Errorf("Opcode(99).String() = %q", got)
	}
}

func TestOpcodeOperands(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpLD, 1},   // (n . m)
		{OpLDC, 1},  // literal
		{OpLDF, 1},  // body
		{OpSEL, 2},  // then, else
		{OpAP, 0},
		{OpJOIN, 0},
		{OpADD, 0},
		{OpSTOP, 0},
	}

	for _, tt := range tests {
		if got := tt.op.Operands(); got != tt.want {
			t.Errorf("%s.Operands() = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestOpcodeStackPop(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpLD, 0},
		{OpLDF, 0},
		{OpAP, 2},
		{OpRTN, 1},
		{OpRAP, 2},
		{OpSEL, 1},
		{OpCAR, 1},
		{OpATOM, 1},
		{OpCONS, 2},
		{OpEQ, 2},
		{OpDIV, 2},
		{OpLEQ, 2},
		{OpJOIN, 0},
		{OpSTOP, 0},
	}

	for _, tt := range tests {
		if got := GetOpcodeInfo(tt.op).StackPop; got != tt.want {
			t.Errorf("%s StackPop = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestLookupOpcode(t *testing.T) {
	for _, op := range AllOpcodes() {
		for _, name := range []string{op.String(), strings.ToLower(op.String())} {
			got, ok := LookupOpcode(name)
			if !ok || got != op {
				t.Errorf("LookupOpcode(%q) = %v, %v; want %s", name, got, ok, op)
			}
		}
	}
	if _, ok := LookupOpcode("NOP"); ok {
		t.Error("LookupOpcode(NOP) should fail")
	}
}
