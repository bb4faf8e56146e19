package sexp

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// DefaultPrompt is shown by interactive sources before each line.
const DefaultPrompt = "> "

// eof is the scanner's end-of-input character.
const eof rune = -1

// ---------------------------------------------------------------------------
// Reader: tokenizer and recursive-descent parser
// ---------------------------------------------------------------------------

// Reader parses S-expressions from a LineSource.
//
// The reader keeps one token of lookahead: when GetExp returns, the token
// after the expression has already been scanned. Once the source runs dry
// (io.EOF or an empty line) every further token reads as ")", so an
// unfinished list is closed instead of reported as an error.
type Reader struct {
	// Prompt is passed to the source for every line requested.
	Prompt string

	src  LineSource
	line []rune // current line, with one trailing blank
	pos  int    // next rune in line
	ch   rune   // current character
	done bool   // input exhausted
	tok  Token  // lookahead
	err  error  // first error from the source

	primed bool
}

// NewReader creates a reader over src. No input is consumed until the first
// call to GetExp.
func NewReader(src LineSource) *Reader {
	return &Reader{
		Prompt: DefaultPrompt,
		src:    src,
		ch:     ' ',
	}
}

// ReadString parses the first expression in text.
func ReadString(text string) (Value, error) {
	return NewReader(NewStringSource(text)).GetExp()
}

// MustRead parses text and panics on error. For tests and fixed literals.
func MustRead(text string) Value {
	v, err := ReadString(text)
	if err != nil {
		panic(err)
	}
	return v
}

// Token returns the current lookahead token.
func (r *Reader) Token() Token {
	return r.tok
}

// GetExp reads one complete expression and scans the token after it.
// It returns io.EOF if the input ends before an expression starts.
func (r *Reader) GetExp() (Value, error) {
	if !r.primed {
		r.primed = true
		r.readChar()
		r.scan()
	}
	if r.tok.Type == TokenEOF {
		if r.err != nil {
			return nil, r.err
		}
		return nil, io.EOF
	}
	v, err := r.exp()
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return v, nil
}

// exp parses an expression starting at the current token.
func (r *Reader) exp() (Value, error) {
	switch {
	case r.tok.Literal == "(":
		r.scan()
		if r.tok.Literal == ")" {
			// "()" is the empty list.
			r.scan()
			return Nil, nil
		}
		v, err := r.list()
		if err != nil {
			return nil, err
		}
		r.scan()
		return v, nil

	case r.tok.Type == TokenNumeric && r.tok.Literal != "-":
		n, err := strconv.ParseInt(r.tok.Literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sexp: integer literal %q: %w", r.tok.Literal, errors.Unwrap(err))
		}
		r.scan()
		return Integer(n), nil

	default:
		s := Symbol(r.tok.Literal)
		r.scan()
		return s, nil
	}
}

// list parses list elements up to, but not past, the closing ")".
func (r *Reader) list() (Value, error) {
	var items []Value
	var tail Value = Nil
	for {
		v, err := r.exp()
		if err != nil {
			return nil, err
		}
		items = append(items, v)

		if r.tok.Literal == "." {
			r.scan()
			if tail, err = r.exp(); err != nil {
				return nil, err
			}
			break
		}
		if r.tok.Literal == ")" {
			break
		}
	}

	out := tail
	for i := len(items) - 1; i >= 0; i-- {
		out = NewPair(items[i], out)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Scanner
// ---------------------------------------------------------------------------

// scan advances the lookahead, substituting ")" at end of input.
func (r *Reader) scan() {
	r.tok = r.nextToken()
	if r.tok.Type == TokenEOF {
		r.tok.Literal = ")"
	}
}

func (r *Reader) nextToken() Token {
	for r.ch != eof && unicode.IsSpace(r.ch) {
		r.readChar()
	}

	var sb strings.Builder
	switch {
	case r.ch == eof:
		return Token{Type: TokenEOF}

	case unicode.IsDigit(r.ch) || r.ch == '-':
		sb.WriteRune(r.ch)
		r.readChar()
		for unicode.IsDigit(r.ch) {
			sb.WriteRune(r.ch)
			r.readChar()
		}
		return Token{Type: TokenNumeric, Literal: sb.String()}

	case unicode.IsLetter(r.ch):
		sb.WriteRune(r.ch)
		r.readChar()
		for unicode.IsLetter(r.ch) || unicode.IsDigit(r.ch) {
			sb.WriteRune(r.ch)
			r.readChar()
		}
		return Token{Type: TokenAlpha, Literal: sb.String()}

	default:
		ch := r.ch
		r.readChar()
		return Token{Type: TokenDelimiter, Literal: string(ch)}
	}
}

// readChar moves to the next character, pulling a new line from the source
// when the current one is used up.
func (r *Reader) readChar() {
	if r.done {
		r.ch = eof
		return
	}
	if r.pos >= len(r.line) {
		text, err := r.src.ReadLine(r.Prompt)
		if err != nil && !errors.Is(err, io.EOF) {
			r.err = fmt.Errorf("sexp: read line: %w", err)
		}
		if err != nil || text == "" {
			r.done = true
			r.ch = eof
			return
		}
		r.line = []rune(text + " ")
		r.pos = 0
	}
	r.ch = r.line[r.pos]
	r.pos++
}
