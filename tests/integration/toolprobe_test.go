package integration

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

type binaries struct {
	toolprobe string
	examine   string
	fakeCLI   string
}

// buildBinaries builds the two commands and the fake agent CLI into a temp
// directory, skipping the test when the toolchain is unavailable
func buildBinaries(t *testing.T) binaries {
	t.Helper()

	binDir := t.TempDir()
	b := binaries{
		toolprobe: filepath.Join(binDir, "toolprobe-test"),
		examine:   filepath.Join(binDir, "examine-test"),
		fakeCLI:   filepath.Join(binDir, "fake-cli"),
	}

	for out, pkg := range map[string]string{
		b.toolprobe: "../../cmd/toolprobe",
		b.examine:   "../../cmd/examine",
		b.fakeCLI:   "./fake-cli",
	} {
		if err := exec.Command("go", "build", "-o", out, pkg).Run(); err != nil {
			t.Skipf("Cannot build %s", pkg)
		}
	}
	return b
}

func run(t *testing.T, dir, binary string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	output, err := cmd.CombinedOutput()
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			t.Fatalf("Failed to run %s: %v", binary, err)
		}
		return string(output), exitErr.ExitCode()
	}
	return string(output), 0
}

// TestToolprobeAllScenariosPass runs every scenario against the fake CLI and
// checks the archived files, the history ledger and the examine summary
func TestToolprobeAllScenariosPass(t *testing.T) {
	b := buildBinaries(t)
	workDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(workDir, ".env"), []byte("FAKE_CLI_MODEL=model-from-dotenv\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	output, code := run(t, workDir, b.toolprobe, "--program", b.fakeCLI)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nOutput: %s", code, output)
	}

	for _, want := range []string{
		"Test Results Summary:",
		"  edit: ✓ PASSED",
		"  write: ✓ PASSED",
		"  multiedit: ✓ PASSED",
		"  notebook_edit: ✓ PASSED",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}

	for _, name := range []string{"edit_tool", "write_tool", "multiedit_tool", "notebook_edit_tool"} {
		path := filepath.Join(workDir, "schemas", name+"_schema.json")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Expected schema file %s: %v", path, err)
			continue
		}

		var record map[string]interface{}
		if err := json.Unmarshal(data, &record); err != nil {
			t.Errorf("Schema file %s is not valid JSON: %v", path, err)
			continue
		}
		for _, key := range []string{"tool_name", "test_scenario", "success", "messages", "stderr"} {
			if _, ok := record[key]; !ok {
				t.Errorf("Schema file %s is missing key %s", path, key)
			}
		}
		if messages, _ := record["messages"].([]interface{}); len(messages) != 3 {
			t.Errorf("Expected 3 messages in %s (malformed line dropped), got %d", name, len(messages))
		}
	}

	fixture, err := os.ReadFile(filepath.Join(workDir, "test_files", "edit_test.py"))
	if err != nil || !strings.Contains(string(fixture), "def hello():") {
		t.Errorf("Expected edit fixture to be written, got %q (%v)", fixture, err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(workDir, "schemas", "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history database: %v", err)
	}
	defer db.Close()

	var total, passed int
	if err := db.QueryRow("SELECT COUNT(*), SUM(success) FROM runs").Scan(&total, &passed); err != nil {
		t.Fatalf("Failed to query history: %v", err)
	}
	if total != 4 || passed != 4 {
		t.Errorf("Expected 4 passing history entries, got %d of %d", passed, total)
	}

	output, code = run(t, workDir, b.examine)
	if code != 0 {
		t.Fatalf("examine failed with exit code %d\nOutput: %s", code, output)
	}
	for _, want := range []string{
		"Found 4 schema files:",
		"Schema File: edit_tool_schema.json",
		"Model: model-from-dotenv",
		"Is Error: false",
		"Num Turns: 2",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected examine output to contain %q, got:\n%s", want, output)
		}
	}

	output, code = run(t, workDir, b.examine, "show", "notebook_edit_tool", "--transcript")
	if code != 0 {
		t.Fatalf("examine show failed with exit code %d\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "# NotebookEdit: Add markdown cell to notebook") {
		t.Errorf("Unexpected transcript:\n%s", output)
	}

	output, code = run(t, workDir, b.examine, "history", "--limit", "2")
	if code != 0 {
		t.Fatalf("examine history failed with exit code %d\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "SCENARIO") || strings.Count(output, "PASSED") != 2 || !strings.Contains(output, "$0.0042") {
		t.Errorf("Unexpected history output:\n%s", output)
	}
}

// TestToolprobeFailingScenario checks the exit code and summary when one
// scenario's invocation exits non-zero
func TestToolprobeFailingScenario(t *testing.T) {
	b := buildBinaries(t)
	workDir := t.TempDir()

	cmd := exec.Command(b.toolprobe, "--program", b.fakeCLI, "--only", "edit,write", "--no-history")
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "FAKE_CLI_FAIL=Write")
	out, err := cmd.CombinedOutput()
	output := string(out)

	exitErr, ok := err.(*exec.ExitError)
	if !ok || exitErr.ExitCode() != 1 {
		t.Fatalf("Expected exit code 1, got %v\nOutput: %s", err, output)
	}

	for _, want := range []string{
		"  edit: ✓ PASSED",
		"  write: ✗ FAILED",
		"Error: 1 scenario(s) failed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "multiedit:") {
		t.Errorf("Expected --only to limit the run, got:\n%s", output)
	}

	data, err := os.ReadFile(filepath.Join(workDir, "schemas", "write_tool_schema.json"))
	if err != nil {
		t.Fatalf("Expected the failed scenario to be archived: %v", err)
	}
	if !strings.Contains(string(data), `"success": false`) || !strings.Contains(string(data), "Write tool failed") {
		t.Errorf("Unexpected write record:\n%s", data)
	}

	if _, err := os.Stat(filepath.Join(workDir, "schemas", "history.db")); !os.IsNotExist(err) {
		t.Error("Expected --no-history to skip the history database")
	}
}

// TestToolprobeMissingProgram checks that a missing agent CLI fails every
// scenario without aborting the batch
func TestToolprobeMissingProgram(t *testing.T) {
	b := buildBinaries(t)
	workDir := t.TempDir()

	output, code := run(t, workDir, b.toolprobe, "--program", filepath.Join(workDir, "no-such-cli"), "--quiet")
	if code != 1 {
		t.Fatalf("Expected exit code 1, got %d\nOutput: %s", code, output)
	}
	if strings.Count(output, "✗ FAILED") != 4 {
		t.Errorf("Expected all 4 scenarios to fail, got:\n%s", output)
	}
}

// TestToolprobeUnknownScenario checks input validation of --only
func TestToolprobeUnknownScenario(t *testing.T) {
	b := buildBinaries(t)
	workDir := t.TempDir()

	output, code := run(t, workDir, b.toolprobe, "--program", b.fakeCLI, "--only", "bash")
	if code != 1 {
		t.Fatalf("Expected exit code 1, got %d\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "unknown scenario 'bash'") || !strings.Contains(output, "Suggestion:") {
		t.Errorf("Unexpected output:\n%s", output)
	}
	if _, err := os.Stat(filepath.Join(workDir, "schemas")); !os.IsNotExist(err) {
		t.Error("Expected no schemas directory for a rejected run")
	}
}

// TestExamineWithoutSchemas checks the reporter on a fresh directory
func TestExamineWithoutSchemas(t *testing.T) {
	b := buildBinaries(t)
	workDir := t.TempDir()

	output, code := run(t, workDir, b.examine)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nOutput: %s", code, output)
	}
	if strings.TrimSpace(output) != "Schemas directory not found!" {
		t.Errorf("Unexpected output: %q", output)
	}

	output, code = run(t, workDir, b.examine, "show", "edit_tool")
	if code != 2 {
		t.Errorf("Expected exit code 2 for a missing archive, got %d\nOutput: %s", code, output)
	}
}

// TestInitConfig checks that init-config writes a loadable file and refuses
// to overwrite it
func TestInitConfig(t *testing.T) {
	b := buildBinaries(t)
	workDir := t.TempDir()

	output, code := run(t, workDir, b.toolprobe, "init-config")
	if code != 0 {
		t.Fatalf("init-config failed with exit code %d\nOutput: %s", code, output)
	}
	data, err := os.ReadFile(filepath.Join(workDir, "toolprobe.yml"))
	if err != nil {
		t.Fatalf("Expected toolprobe.yml: %v", err)
	}
	if !strings.Contains(string(data), "schemas_dir: schemas") {
		t.Errorf("Unexpected config:\n%s", data)
	}

	output, code = run(t, workDir, b.toolprobe, "init-config")
	if code == 0 || !strings.Contains(output, "already exists") {
		t.Errorf("Expected init-config to refuse overwriting, got exit %d\nOutput: %s", code, output)
	}

	output, code = run(t, workDir, b.toolprobe, "list")
	if code != 0 || !strings.Contains(output, "notebook_edit") {
		t.Errorf("Unexpected list output (exit %d):\n%s", code, output)
	}
}
