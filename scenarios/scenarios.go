// Package scenarios defines the tool scenarios toolprobe exercises and the
// driver that runs them.
package scenarios

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tomyedwab/toolprobe/errors"
)

// Fixture is what a scenario prepared on disk before invoking the agent
type Fixture struct {
	// Path is the file the prompt refers to
	Path string
	// Prompt is sent to the agent CLI
	Prompt string
}

// Scenario is one named test case exercising one tool
type Scenario struct {
	// Key selects the scenario on the command line
	Key string
	// ToolName is the agent tool the scenario exercises
	ToolName string
	// StorageKey names the schema record, <StorageKey>_schema.json
	StorageKey string
	// Description is stored as the record's test_scenario
	Description string
	// Prepare writes the fixture into dir and returns it
	Prepare func(dir string) (Fixture, error)
}

// Default returns the built-in scenarios in run order
func Default() []Scenario {
	return []Scenario{
		{
			Key:         "edit",
			ToolName:    "Edit",
			StorageKey:  "edit_tool",
			Description: "Add docstring to function",
			Prepare:     prepareEdit,
		},
		{
			Key:         "write",
			ToolName:    "Write",
			StorageKey:  "write_tool",
			Description: "Create new JavaScript React component file",
			Prepare:     prepareWrite,
		},
		{
			Key:         "multiedit",
			ToolName:    "MultiEdit",
			StorageKey:  "multiedit_tool",
			Description: "Add docstrings to multiple functions",
			Prepare:     prepareMultiEdit,
		},
		{
			Key:         "notebook_edit",
			ToolName:    "NotebookEdit",
			StorageKey:  "notebook_edit_tool",
			Description: "Add markdown cell to notebook",
			Prepare:     prepareNotebookEdit,
		},
	}
}

// Keys returns the keys of the given scenarios in order
func Keys(all []Scenario) []string {
	keys := make([]string, 0, len(all))
	for _, s := range all {
		keys = append(keys, s.Key)
	}
	return keys
}

// Select returns the scenarios named by keys, keeping the order of all.
// No keys selects everything.
func Select(all []Scenario, keys []string) ([]Scenario, error) {
	if len(keys) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		found := false
		for _, s := range all {
			if s.Key == key {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown scenario '%s' (available: %s)", key, strings.Join(Keys(all), ", ")))
		}
		wanted[key] = true
	}

	var selected []Scenario
	for _, s := range all {
		if wanted[s.Key] {
			selected = append(selected, s)
		}
	}
	return selected, nil
}

func writeFixture(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrapf(errors.ErrUnknown, err, "failed to write fixture %s", path)
	}
	return nil
}

func prepareEdit(dir string) (Fixture, error) {
	path := filepath.Join(dir, "edit_test.py")
	if err := writeFixture(path, "def hello():\n    print('Hello, World!')"); err != nil {
		return Fixture{}, err
	}
	return Fixture{
		Path:   path,
		Prompt: fmt.Sprintf("Edit the file %s to add a docstring to the hello function. Use the Edit tool to make this change.", path),
	}, nil
}

// prepareWrite picks a fresh file name so every run creates a new file
func prepareWrite(dir string) (Fixture, error) {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	path := filepath.Join(dir, fmt.Sprintf("write_test_%s.js", suffix))
	return Fixture{
		Path:   path,
		Prompt: fmt.Sprintf("Create a new JavaScript file at %s with a simple React component. Use the Write tool to create this file.", path),
	}, nil
}

const multiEditSource = `def add(a, b):
    return a + b

def subtract(a, b):
    return a - b

def multiply(a, b):
    return a * b
`

func prepareMultiEdit(dir string) (Fixture, error) {
	path := filepath.Join(dir, "multiedit_test.py")
	if err := writeFixture(path, multiEditSource); err != nil {
		return Fixture{}, err
	}
	return Fixture{
		Path:   path,
		Prompt: fmt.Sprintf("Use the MultiEdit tool to add docstrings to all three functions in %s. Make multiple edits in a single operation.", path),
	}, nil
}

type notebookCell struct {
	CellType       string                 `json:"cell_type"`
	ExecutionCount *int                   `json:"execution_count"`
	Metadata       map[string]interface{} `json:"metadata"`
	Outputs        []interface{}          `json:"outputs"`
	Source         []string               `json:"source"`
}

type notebook struct {
	Cells    []notebookCell `json:"cells"`
	Metadata struct {
		KernelSpec struct {
			DisplayName string `json:"display_name"`
			Language    string `json:"language"`
			Name        string `json:"name"`
		} `json:"kernelspec"`
	} `json:"metadata"`
	NBFormat      int `json:"nbformat"`
	NBFormatMinor int `json:"nbformat_minor"`
}

func prepareNotebookEdit(dir string) (Fixture, error) {
	nb := notebook{
		Cells: []notebookCell{{
			CellType: "code",
			Metadata: map[string]interface{}{},
			Outputs:  []interface{}{},
			Source:   []string{"print('Hello from notebook')"},
		}},
		NBFormat:      4,
		NBFormatMinor: 4,
	}
	nb.Metadata.KernelSpec.DisplayName = "Python 3"
	nb.Metadata.KernelSpec.Language = "python"
	nb.Metadata.KernelSpec.Name = "python3"

	data, err := json.Marshal(nb)
	if err != nil {
		return Fixture{}, errors.Wrap(errors.ErrUnknown, err, "failed to encode notebook fixture")
	}

	path := filepath.Join(dir, "notebook_test.ipynb")
	if err := writeFixture(path, string(data)); err != nil {
		return Fixture{}, err
	}
	return Fixture{
		Path:   path,
		Prompt: fmt.Sprintf(`Use the NotebookEdit tool to add a new markdown cell to the notebook %s with a title "# Test Notebook".`, path),
	}, nil
}
