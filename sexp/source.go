package sexp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineSource supplies the reader with input one line at a time.
//
// ReadLine shows prompt (if the source is interactive) and returns the next
// line without its terminator. An empty line or io.EOF ends the input for
// the reader that asked: any list still open is closed.
type LineSource interface {
	ReadLine(prompt string) (string, error)
}

// stringSource delivers a fixed text as a single line.
type stringSource struct {
	text string
	done bool
}

// NewStringSource returns a source that yields text once, then io.EOF.
// Newlines inside text are ordinary whitespace to the tokenizer.
func NewStringSource(text string) LineSource {
	return &stringSource{text: text}
}

func (s *stringSource) ReadLine(string) (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	if s.text == "" {
		return "", io.EOF
	}
	return s.text, nil
}

// NewFileSource reads the whole file at path and returns it as a string
// source, the way the reader consumes program and argument files.
func NewFileSource(path string) (LineSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sexp: read %s: %w", path, err)
	}
	return NewStringSource(string(data)), nil
}

// promptSource reads lines from r, writing the prompt to w before each one.
type promptSource struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptSource returns an interactive source over plain streams. It is
// the fallback used when no terminal line editor is available.
func NewPromptSource(r io.Reader, w io.Writer) LineSource {
	return &promptSource{in: bufio.NewReader(r), out: w}
}

func (p *promptSource) ReadLine(prompt string) (string, error) {
	if p.out != nil && prompt != "" {
		if _, err := io.WriteString(p.out, prompt); err != nil {
			return "", err
		}
	}
	line, err := p.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
