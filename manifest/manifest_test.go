package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lispkit/sexp"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[bootstrap]
compiler = "lib/APENDIX2"

[writer]
width = 72
blank-nil = false

[reader]
prompt = "lk> "
history = ""

[machine]
trace = true
max-steps = 100000

[log]
verbosity = 2
file = "lispkit.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Bootstrap.Compiler != "lib/APENDIX2" {
		t.Errorf("compiler = %q, want lib/APENDIX2", m.Bootstrap.Compiler)
	}
	if m.Writer.Width != 72 {
		t.Errorf("writer width = %d, want 72", m.Writer.Width)
	}
	if m.Writer.BlankNil {
		t.Error("writer blank-nil = true, want false")
	}
	if m.Reader.Prompt != "lk> " {
		t.Errorf("reader prompt = %q, want \"lk> \"", m.Reader.Prompt)
	}
	if m.Reader.History != "" {
		t.Errorf("reader history = %q, want empty", m.Reader.History)
	}
	if !m.Machine.Trace {
		t.Error("machine trace = false, want true")
	}
	if m.Machine.MaxSteps != 100000 {
		t.Errorf("machine max-steps = %d, want 100000", m.Machine.MaxSteps)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}

	abs, _ := filepath.Abs(dir)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
	if got := m.CompilerPath(); got != filepath.Join(abs, "lib", "APENDIX2") {
		t.Errorf("compiler path = %q", got)
	}
	if got := m.LogFile(); got == nil || *got != filepath.Join(abs, "lispkit.log") {
		t.Errorf("log file = %v", got)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[machine]
trace = false
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Bootstrap.Compiler != DefaultCompiler {
		t.Errorf("default compiler = %q, want %q", m.Bootstrap.Compiler, DefaultCompiler)
	}
	if m.Writer.Width != sexp.DefaultWidth {
		t.Errorf("default width = %d, want %d", m.Writer.Width, sexp.DefaultWidth)
	}
	if !m.Writer.BlankNil {
		t.Error("default blank-nil = false, want true")
	}
	if m.Reader.Prompt != sexp.DefaultPrompt {
		t.Errorf("default prompt = %q", m.Reader.Prompt)
	}
	if m.Reader.History != DefaultHistory {
		t.Errorf("default history = %q", m.Reader.History)
	}
	if m.Machine.MaxSteps != 0 {
		t.Errorf("default max-steps = %d, want 0", m.Machine.MaxSteps)
	}
	if m.LogFile() != nil {
		t.Error("default log file should be nil (stderr)")
	}
}

func TestDefault(t *testing.T) {
	m := Default("/work")
	if m.CompilerPath() != filepath.Join("/work", DefaultCompiler) {
		t.Errorf("compiler path = %q", m.CompilerPath())
	}
	if !m.Writer.BlankNil || m.Writer.Width != sexp.DefaultWidth {
		t.Errorf("writer = %+v", m.Writer)
	}
}

func TestAbsoluteCompilerPath(t *testing.T) {
	m := &Manifest{Dir: "/work", Bootstrap: Bootstrap{Compiler: "/opt/lispkit/compiler.secd"}}
	if got := m.CompilerPath(); got != "/opt/lispkit/compiler.secd" {
		t.Errorf("compiler path = %q", got)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[writer\nwidth = 1", "parse error"},
		{"unknown key", "[writer]\ncolour = true", "unknown key writer.colour"},
		{"wrong type", "[writer]\nwidth = \"wide\"", "parse error"},
		{"negative width", "[writer]\nwidth = -1", "negative"},
		{"negative steps", "[machine]\nmax-steps = -5", "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing lispkit.toml")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[bootstrap]
compiler = "found.secd"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Bootstrap.Compiler != "found.secd" {
		t.Errorf("compiler = %q, want found.secd", m.Bootstrap.Compiler)
	}
	abs, _ := filepath.Abs(dir)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no lispkit.toml exists")
	}
}
