package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wsLang/ws/pkg/config"
	"github.com/wsLang/ws/pkg/trace"
)

// Helper to lay out root/ws.toml and root/progs/<name> and return the program path
func project(t *testing.T, toml, name, src string) (root, path string) {
	t.Helper()
	root = t.TempDir()
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(root, "progs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path = filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, path
}

func setFlag(t *testing.T, name, value string) {
	t.Helper()
	old := flag.Lookup(name).Value.String()
	if err := flag.Set(name, value); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { flag.Set(name, old) })
}

func TestTraceFlagIsRelativeToWorkingDir(t *testing.T) {
	root, path := project(t, "[trace]\ncompress = false\n", "hi.wsa", "print \"Hi\\n\"\nend\n")
	chdir(t, t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	setFlag(t, "trace", "run.trace")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if err := applyFlags(cfg); err != nil {
		t.Fatalf("applyFlags error: %v", err)
	}

	var out bytes.Buffer
	if err := run(cfg, path, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if out.String() != "Hi\n" {
		t.Errorf("Expected %q, got %q", "Hi\n", out.String())
	}

	if _, err := os.Stat(filepath.Join(root, "run.trace")); err == nil {
		t.Errorf("Trace was written next to the config file")
	}
	f, err := os.Open(filepath.Join(wd, "run.trace"))
	if err != nil {
		t.Fatalf("Expected trace in working directory: %v", err)
	}
	defer f.Close()
	tr, records, err := trace.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if tr.Compressed {
		t.Errorf("Expected compress=false from the config file")
	}
	if sum := tr.Summary(); sum == nil || sum.State != "HALTED" || int(sum.Steps) != len(records) {
		t.Errorf("Unexpected summary %+v for %d records", sum, len(records))
	}
}

func TestConfigTraceIsRelativeToConfigFile(t *testing.T) {
	root, path := project(t, "[trace]\noutput = \"cfg.trace\"\n", "hi.wsa", "push 1\nend\n")
	chdir(t, t.TempDir())

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if err := run(cfg, path, strings.NewReader(""), &bytes.Buffer{}); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cfg.trace")); err != nil {
		t.Errorf("Expected trace next to the config file: %v", err)
	}
}

func TestStackFlag(t *testing.T) {
	_, path := project(t, "", "p.wsa", "push 1\npush 2\nend\n")
	setFlag(t, "s", "true")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if err := applyFlags(cfg); err != nil {
		t.Fatalf("applyFlags error: %v", err)
	}
	if !cfg.Run.Stack {
		t.Fatalf("Expected -s to enable stack dumps")
	}

	var out bytes.Buffer
	if err := run(cfg, path, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(out.String(), "Stack: [1, 2]\n") {
		t.Errorf("Expected a stack dump, got %q", out.String())
	}
}

func TestRunWhitespaceFile(t *testing.T) {
	// push 65, outc, end with comment text in between
	_, path := project(t, "", "a.ws", "A:   \t     \t\n\t\n  end\n\n\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	var out bytes.Buffer
	if err := run(cfg, path, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if out.String() != "A" {
		t.Errorf("Expected %q, got %q", "A", out.String())
	}
}

func TestRunReportsErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		src  string
		want string
	}{
		{"runtime", "div.wsa", "push 1\npush 0\ndiv\nend\n", "runtime error in"},
		{"assembly", "bad.wsa", "frobnicate\n", "assembly error in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, path := project(t, "", tt.file, tt.src)
			cfg, err := loadConfig(path)
			if err != nil {
				t.Fatalf("loadConfig error: %v", err)
			}
			err = run(cfg, path, strings.NewReader(""), &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q, got %v", tt.want, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
