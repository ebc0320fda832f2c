package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tomyedwab/toolprobe/errors"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing version",
			modify:  func(c *Config) { c.Version = "" },
			wantErr: true,
			errMsg:  "configuration version is required",
		},
		{
			name:    "blank program",
			modify:  func(c *Config) { c.Program = "  " },
			wantErr: true,
			errMsg:  "program is required",
		},
		{
			name:    "missing schemas dir",
			modify:  func(c *Config) { c.SchemasDir = "" },
			wantErr: true,
			errMsg:  "schemas_dir is required",
		},
		{
			name:    "missing test files dir",
			modify:  func(c *Config) { c.TestFilesDir = "" },
			wantErr: true,
			errMsg:  "test_files_dir is required",
		},
		{
			name:    "empty extra arg",
			modify:  func(c *Config) { c.ExtraArgs = []string{"--model", ""} },
			wantErr: true,
			errMsg:  "extra_args[1] is empty",
		},
		{
			name:    "duplicate scenario",
			modify:  func(c *Config) { c.Scenarios = []string{"edit", "write", "edit"} },
			wantErr: true,
			errMsg:  "scenario 'edit' listed more than once",
		},
		{
			name:    "history disabled",
			modify:  func(c *Config) { c.HistoryDB = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
				}
				if !errors.IsErrorType(err, errors.ErrConfigInvalid) {
					t.Errorf("Expected ErrConfigInvalid, got %v", err)
				}
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if !cfg.HistoryEnabled() {
		t.Error("Expected history to be enabled by default")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	content := `version: "1.0"
program: /opt/bin/claude
extra_args:
  - --model
  - sonnet
scenarios: [edit, write]
history_db: ""
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Program != "/opt/bin/claude" {
		t.Errorf("Expected program '/opt/bin/claude', got '%s'", cfg.Program)
	}
	if cfg.SchemasDir != "schemas" || cfg.TestFilesDir != "test_files" {
		t.Errorf("Expected default directories, got %s and %s", cfg.SchemasDir, cfg.TestFilesDir)
	}
	if !reflect.DeepEqual(cfg.ExtraArgs, []string{"--model", "sonnet"}) {
		t.Errorf("Unexpected extra args: %v", cfg.ExtraArgs)
	}
	if !reflect.DeepEqual(cfg.Scenarios, []string{"edit", "write"}) {
		t.Errorf("Unexpected scenarios: %v", cfg.Scenarios)
	}
	if cfg.HistoryEnabled() {
		t.Error("Expected an explicit empty history_db to disable history")
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(badYAML, []byte("program: [unterminated"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(badYAML); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected parse error, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yml")
	if err := os.WriteFile(invalid, []byte("program: \"\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	_, err := Load(invalid)
	if err == nil || !strings.Contains(err.Error(), "program is required") {
		t.Errorf("Expected validation error, got %v", err)
	}
	if errors.ExitCode(err) != 3 {
		t.Errorf("Expected exit code 3 for config errors, got %d", errors.ExitCode(err))
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	cfg := Default()
	cfg.WorkDir = "/tmp/work"
	cfg.LogFile = "toolprobe.log"
	cfg.ExtraArgs = []string{"--max-turns", "5"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Saved config is not valid YAML: %v", err)
	}
	if raw["schemas_dir"] != "schemas" {
		t.Errorf("Expected schemas_dir key in saved YAML, got %v", raw)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("Loaded config %+v does not match saved %+v", loaded, cfg)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Version = ""
	path := filepath.Join(t.TempDir(), DefaultFileName)

	if err := cfg.Save(path); err == nil {
		t.Fatal("Expected Save to fail for invalid config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file to be written for invalid config")
	}
}
