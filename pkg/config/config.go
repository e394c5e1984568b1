// Package config handles ws.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/wsLang/ws/pkg/vm"
)

// FileName is the configuration file looked up next to programs.
const FileName = "ws.toml"

// Config represents a ws.toml file.
type Config struct {
	Run   Run   `toml:"run"`
	Input Input `toml:"input"`
	Trace Trace `toml:"trace"`
	Log   Log   `toml:"log"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

// Run configures the interpreter.
type Run struct {
	Verbose     bool `toml:"verbose"`
	Stack       bool `toml:"stack"`
	Pause       bool `toml:"pause"`
	MemorySlack int  `toml:"memory-slack"`
}

// Input configures number input.
type Input struct {
	Prompt string `toml:"prompt"`
}

// Trace configures the binary execution trace.
type Trace struct {
	Output   string `toml:"output"`
	Compress bool   `toml:"compress"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no ws.toml exists.
func Default() *Config {
	return &Config{
		Run:   Run{MemorySlack: vm.DefaultSlack},
		Input: Input{Prompt: vm.DefaultPrompt},
		Trace: Trace{Compress: true},
	}
}

// Load parses the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s in %s", undecoded[0], path)
	}
	if c.Run.MemorySlack < 0 {
		return nil, fmt.Errorf("run.memory-slack must not be negative in %s", path)
	}
	c.Path = path
	return c, nil
}

// FindAndLoad walks up from startDir to find a ws.toml file, then loads
// it. Returns the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// VM builds the engine configuration. Streams and hooks are left to the
// caller.
func (c *Config) VM() vm.Config {
	cfg := vm.DefaultConfig()
	cfg.MemorySlack = c.Run.MemorySlack
	cfg.PromptText = c.Input.Prompt
	return cfg
}

// LogPath returns the log file as commonlog.Configure expects it.
func (c *Config) LogPath() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	if c.Path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(c.Path), path)
	}
	return &path
}

// SetTraceOutput sets the trace file from a path given on the command
// line. Such paths are relative to the working directory, not to the
// config file, so they are stored absolute.
func (c *Config) SetTraceOutput(path string) error {
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("trace output %s: %w", path, err)
		}
		path = abs
	}
	c.Trace.Output = path
	return nil
}

// TracePath returns the trace output resolved against the config file.
func (c *Config) TracePath() string {
	path := c.Trace.Output
	if path != "" && c.Path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(c.Path), path)
	}
	return path
}
