// Package manifest handles lispkit.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/lispkit/sexp"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "lispkit.toml"

// Defaults.
const (
	DefaultCompiler = "compiler.secd"
	DefaultHistory  = "~/.lispkit_history"
)

// Manifest represents a lispkit.toml configuration.
type Manifest struct {
	Bootstrap Bootstrap     `toml:"bootstrap"`
	Writer    WriterConfig  `toml:"writer"`
	Reader    ReaderConfig  `toml:"reader"`
	Machine   MachineConfig `toml:"machine"`
	Log       LogConfig     `toml:"log"`

	// Dir is the directory containing the lispkit.toml file (set at load time).
	Dir string `toml:"-"`
}

// Bootstrap names the compiler that turns LispKit source into bytecode.
type Bootstrap struct {
	Compiler string `toml:"compiler"`
}

// WriterConfig configures output layout.
type WriterConfig struct {
	Width    int  `toml:"width"`
	BlankNil bool `toml:"blank-nil"`
}

// ReaderConfig configures interactive input.
type ReaderConfig struct {
	Prompt  string `toml:"prompt"`
	History string `toml:"history"`
}

// MachineConfig configures program execution.
type MachineConfig struct {
	Trace    bool `toml:"trace"`
	MaxSteps int  `toml:"max-steps"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no lispkit.toml exists,
// rooted at dir.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults(nil)
	return m
}

// Load parses a lispkit.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file at an explicit path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("manifest: unknown key %s in %s", undecoded[0], path)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("manifest: cannot resolve path %s: %w", path, err)
	}
	m.applyDefaults(&md)

	if m.Writer.Width < 0 {
		return nil, fmt.Errorf("manifest: %s: writer width %d is negative", path, m.Writer.Width)
	}
	if m.Machine.MaxSteps < 0 {
		return nil, fmt.Errorf("manifest: %s: machine max-steps %d is negative", path, m.Machine.MaxSteps)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a lispkit.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// applyDefaults fills unset fields. md is nil when nothing was decoded.
func (m *Manifest) applyDefaults(md *toml.MetaData) {
	defined := func(key ...string) bool {
		return md != nil && md.IsDefined(key...)
	}

	if m.Bootstrap.Compiler == "" {
		m.Bootstrap.Compiler = DefaultCompiler
	}
	if m.Writer.Width == 0 {
		m.Writer.Width = sexp.DefaultWidth
	}
	if !defined("writer", "blank-nil") {
		m.Writer.BlankNil = true
	}
	if !defined("reader", "prompt") {
		m.Reader.Prompt = sexp.DefaultPrompt
	}
	if !defined("reader", "history") {
		m.Reader.History = DefaultHistory
	}
}

// CompilerPath returns the bootstrap compiler path, resolved against the
// manifest directory when relative.
func (m *Manifest) CompilerPath() string {
	if filepath.IsAbs(m.Bootstrap.Compiler) || m.Dir == "" {
		return m.Bootstrap.Compiler
	}
	return filepath.Join(m.Dir, m.Bootstrap.Compiler)
}

// LogFile returns the log file path resolved against the manifest
// directory, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
