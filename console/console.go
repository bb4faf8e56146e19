// Package console reads LispKit input lines from an interactive terminal
// with line editing and history.
package console

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lispkit.console")

// Source is a sexp.LineSource backed by a liner terminal. Interrupting a
// prompt with Ctrl-C ends input the same way Ctrl-D does.
type Source struct {
	ln      *liner.State
	history string
}

// New opens the terminal. If historyPath is non-empty, previous history is
// loaded from it and Close saves the session's lines back.
func New(historyPath string) *Source {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)

	s := &Source{ln: ln, history: ExpandHome(historyPath)}
	if s.history != "" {
		if f, err := os.Open(s.history); err == nil {
			if _, err := ln.ReadHistory(f); err != nil {
				log.Warningf("read history %s: %s", s.history, err)
			}
			_ = f.Close()
		}
	}
	return s
}

// ReadLine prompts for one line. Non-empty lines are added to the history.
func (s *Source) ReadLine(prompt string) (string, error) {
	line, err := s.ln.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		s.ln.AppendHistory(line)
	}
	return line, nil
}

// Close saves history and restores the terminal.
func (s *Source) Close() error {
	if s.history != "" {
		if f, err := os.Create(s.history); err == nil {
			if _, err := s.ln.WriteHistory(f); err != nil {
				log.Warningf("write history %s: %s", s.history, err)
			}
			_ = f.Close()
		} else {
			log.Warningf("write history: %s", err)
		}
	}
	return s.ln.Close()
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
