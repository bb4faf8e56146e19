package sexp

import "fmt"

// Value is an S-expression: one of Empty, *Pair, Symbol or Integer.
//
// The set of kinds is closed. A nil Value is the "absent" value; it never
// comes out of the reader or the machine, but code handling untrusted
// structures should be prepared for it.
type Value interface {
	// Kind reports which of the four kinds the value is.
	Kind() Kind
	sexp()
}

// Kind identifies the kind of a Value.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindPair
	KindSymbol
	KindInteger
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindPair:
		return "pair"
	case KindSymbol:
		return "symbol"
	case KindInteger:
		return "integer"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// KindOf returns the kind of v, treating the absent value as Empty.
func KindOf(v Value) Kind {
	if v == nil {
		return KindEmpty
	}
	return v.Kind()
}

// ---------------------------------------------------------------------------
// Kinds
// ---------------------------------------------------------------------------

// Empty is the "no value" sentinel. It is not the list terminator.
type Empty struct{}

func (Empty) Kind() Kind { return KindEmpty }
func (Empty) sexp()      {}

// Pair is a mutable cons cell. Pairs are compared by identity and may be
// shared between any number of structures, including themselves.
type Pair struct {
	first  Value
	second Value
}

// NewPair allocates a new pair.
func NewPair(first, second Value) *Pair {
	return &Pair{first: first, second: second}
}

func (*Pair) Kind() Kind { return KindPair }
func (*Pair) sexp()      {}

// First returns the first component (car).
func (p *Pair) First() Value { return p.first }

// Second returns the second component (cdr).
func (p *Pair) Second() Value { return p.second }

// SetFirst replaces the first component in place.
func (p *Pair) SetFirst(v Value) { p.first = v }

// SetSecond replaces the second component in place.
func (p *Pair) SetSecond(v Value) { p.second = v }

// Symbol is a case-sensitive name.
type Symbol string

func (Symbol) Kind() Kind { return KindSymbol }
func (Symbol) sexp()      {}

// Integer is a signed 64-bit machine integer.
type Integer int64

func (Integer) Kind() Kind { return KindInteger }
func (Integer) sexp()      {}

// Well-known symbols.
const (
	Nil   Symbol = "NIL"
	True  Symbol = "t"
	False Symbol = "f"
)

// Bool returns True or False.
func Bool(b bool) Symbol {
	if b {
		return True
	}
	return False
}

// ---------------------------------------------------------------------------
// Accessors and predicates
// ---------------------------------------------------------------------------

// First returns the first component of v, or Nil if v is not a pair.
func First(v Value) Value {
	if p, ok := v.(*Pair); ok && p != nil {
		return p.first
	}
	return Nil
}

// Second returns the second component of v, or Nil if v is not a pair.
func Second(v Value) Value {
	if p, ok := v.(*Pair); ok && p != nil {
		return p.second
	}
	return Nil
}

func IsInteger(v Value) bool {
	_, ok := v.(Integer)
	return ok
}

func IsSymbol(v Value) bool {
	_, ok := v.(Symbol)
	return ok
}

func IsPair(v Value) bool {
	p, ok := v.(*Pair)
	return ok && p != nil
}

func IsEmpty(v Value) bool {
	_, ok := v.(Empty)
	return ok
}

// IsNil reports whether v is the symbol NIL.
func IsNil(v Value) bool {
	s, ok := v.(Symbol)
	return ok && s == Nil
}

// IsAtom reports whether v is an Integer or a Symbol (NIL included).
func IsAtom(v Value) bool {
	return IsInteger(v) || IsSymbol(v)
}

// ---------------------------------------------------------------------------
// List helpers
// ---------------------------------------------------------------------------

// List builds a NIL-terminated list of vs.
func List(vs ...Value) Value {
	var out Value = Nil
	for i := len(vs) - 1; i >= 0; i-- {
		out = NewPair(vs[i], out)
	}
	return out
}

// Len counts the pairs along the second chain of v. Cycles are not detected.
func Len(v Value) int {
	n := 0
	for IsPair(v) {
		n++
		v = v.(*Pair).second
	}
	return n
}


// Equal reports whether a and b are structurally equal. Both must be acyclic.
func Equal(a, b Value) bool {
	for {
		if KindOf(a) != KindOf(b) {
			return false
		}
		switch x := a.(type) {
		case *Pair:
			y := b.(*Pair)
			if x == y {
				return true
			}
			if x == nil || y == nil {
				return false
			}
			if !Equal(x.first, y.first) {
				return false
			}
			a, b = x.second, y.second
		case Symbol:
			return x == b.(Symbol)
		case Integer:
			return x == b.(Integer)
		default:
			return true
		}
	}
}
