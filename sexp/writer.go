package sexp

import (
	"io"
	"strconv"
	"strings"
)

// DefaultWidth is the writer's default line length.
const DefaultWidth = 60

// cycleMarker is written in place of a pair already being printed.
const cycleMarker = "..."

// Writer prints S-expressions in the machine's textual syntax, wrapping
// output at a fixed column width.
//
// Every token is followed by a single blank, so a list prints as
// "( a b c ) ". Output accumulates in a line buffer; the line is written out
// before a token that would overflow it (a token longer than Width gets a
// line of its own), and Flush writes the partial line. Callers flush between
// logical print operations.
type Writer struct {
	// Width is the number of characters per output line.
	Width int

	// BlankNil prints the symbol NIL as a blank, like the empty value.
	// With BlankNil false, NIL is written by name and can be read back.
	BlankNil bool

	out  io.Writer
	line []byte
	err  error

	// pairs on the current print path, for the cycle guard
	path map[*Pair]bool
}

// NewWriter creates a writer with the default width and blank NIL.
func NewWriter(out io.Writer) *Writer {
	return &Writer{
		Width:    DefaultWidth,
		BlankNil: true,
		out:      out,
		path:     make(map[*Pair]bool),
	}
}

// Put appends the textual form of v to the line buffer.
func (w *Writer) Put(v Value) error {
	w.put(v)
	return w.err
}

// Flush writes the pending line followed by a newline. A flush with nothing
// pending writes an empty line.
func (w *Writer) Flush() error {
	w.forceLineOut()
	return w.err
}

// Println writes v and flushes.
func (w *Writer) Println(v Value) error {
	w.put(v)
	w.forceLineOut()
	return w.err
}

// Err returns the first error from the underlying writer.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) put(v Value) {
	switch x := v.(type) {
	case Integer:
		w.putToken(strconv.FormatInt(int64(x), 10))

	case Symbol:
		if x == Nil && w.BlankNil {
			w.putChar(' ')
			return
		}
		w.putToken(string(x))

	case *Pair:
		if x == nil {
			w.putChar(' ')
			return
		}
		w.putList(x)

	default:
		// Empty or absent
		w.putChar(' ')
	}
}

func (w *Writer) putList(p *Pair) {
	if w.path == nil {
		w.path = make(map[*Pair]bool)
	}
	if w.path[p] {
		w.putToken(cycleMarker)
		return
	}

	w.putChar('(')
	w.putChar(' ')

	var visited []*Pair
	var v Value = p
	for {
		cell, ok := v.(*Pair)
		if !ok || cell == nil {
			break
		}
		if w.path[cell] {
			// The spine loops back on itself.
			w.putToken(".")
			w.putToken(cycleMarker)
			v = Nil
			break
		}
		w.path[cell] = true
		visited = append(visited, cell)
		w.put(cell.first)
		v = cell.second
	}
	if !IsNil(v) {
		w.putToken(".")
		w.put(v)
	}
	w.putToken(")")

	for _, cell := range visited {
		delete(w.path, cell)
	}
}

func (w *Writer) putToken(s string) {
	// Break between tokens so a wrapped line still reads back the same.
	if len(w.line) > 0 && len(w.line)+len(s) > w.width() {
		w.forceLineOut()
	}
	w.line = append(w.line, s...)
	w.putChar(' ')
}

func (w *Writer) putChar(ch byte) {
	if len(w.line) >= w.width() {
		w.forceLineOut()
	}
	w.line = append(w.line, ch)
}

func (w *Writer) width() int {
	if w.Width <= 0 {
		return DefaultWidth
	}
	return w.Width
}

func (w *Writer) forceLineOut() {
	w.line = append(w.line, '\n')
	if w.err == nil {
		_, w.err = w.out.Write(w.line)
	}
	w.line = w.line[:0]
}

// Format renders v on a single line without wrapping. NIL is written by
// name so the result can be read back.
func Format(v Value) string {
	var sb strings.Builder
	w := &Writer{
		Width: int(^uint(0) >> 1),
		out:   &sb,
		path:  make(map[*Pair]bool),
	}
	w.put(v)
	return strings.TrimRight(string(w.line), " ")
}
