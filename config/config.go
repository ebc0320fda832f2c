// Package config loads and saves the toolprobe YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tomyedwab/toolprobe/errors"
)

// DefaultFileName is the config file looked up in the working directory
const DefaultFileName = "toolprobe.yml"

// CurrentVersion is the config format version written by Save
const CurrentVersion = "1.0"

// Config represents the toolprobe.yml file structure
type Config struct {
	// Version of the configuration format
	Version string `yaml:"version"`

	// Program is the agent CLI to invoke
	Program string `yaml:"program"`

	// SchemasDir is where schema records are written
	SchemasDir string `yaml:"schemas_dir"`

	// TestFilesDir is where scenario fixtures are created
	TestFilesDir string `yaml:"test_files_dir"`

	// HistoryDB is the SQLite run history; empty disables history
	HistoryDB string `yaml:"history_db"`

	// WorkDir is the directory the agent CLI runs in
	WorkDir string `yaml:"work_dir,omitempty"`

	// ExtraArgs are appended to every invocation
	ExtraArgs []string `yaml:"extra_args,omitempty"`

	// Scenarios limits the run to these keys; empty runs all of them
	Scenarios []string `yaml:"scenarios,omitempty"`

	// LogFile additionally writes log lines to this file
	LogFile string `yaml:"log_file,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Version:      CurrentVersion,
		Program:      "claude",
		SchemasDir:   "schemas",
		TestFilesDir: "test_files",
		HistoryDB:    filepath.Join("schemas", "history.db"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New(errors.ErrConfigInvalid, "configuration version is required")
	}
	if strings.TrimSpace(c.Program) == "" {
		return errors.New(errors.ErrConfigInvalid, "program is required")
	}
	if c.SchemasDir == "" {
		return errors.New(errors.ErrConfigInvalid, "schemas_dir is required")
	}
	if c.TestFilesDir == "" {
		return errors.New(errors.ErrConfigInvalid, "test_files_dir is required")
	}

	for i, arg := range c.ExtraArgs {
		if arg == "" {
			return errors.Newf(errors.ErrConfigInvalid, "extra_args[%d] is empty", i)
		}
	}

	seen := make(map[string]bool)
	for _, key := range c.Scenarios {
		if key == "" {
			return errors.New(errors.ErrConfigInvalid, "scenario keys cannot be empty")
		}
		if seen[key] {
			return errors.Newf(errors.ErrConfigInvalid, "scenario '%s' listed more than once", key)
		}
		seen[key] = true
	}

	return nil
}

// HistoryEnabled reports whether outcomes are recorded to the history database
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDB != ""
}

// Load reads the configuration at path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(errors.ErrConfigInvalid, err, "failed to read %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrConfigInvalid, err, "failed to parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(errors.ErrConfigInvalid, err, "invalid configuration in %s", path)
	}

	return cfg, nil
}

// Save validates the configuration and writes it to path
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(errors.ErrConfigInvalid, err, "failed to create directory for %s", path)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(errors.ErrConfigInvalid, err, "failed to write %s", path)
	}

	return nil
}
