package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Fake agent CLI that prints a short stream-json session for integration
// testing. FAKE_CLI_FAIL selects a tool name whose prompts fail; FAKE_CLI_MODEL
// is reported as the session model.
func main() {
	prompt := ""
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		if args[i] == "-p" && i+1 < len(args) {
			prompt = args[i+1]
			i++
		}
	}

	if prompt == "" {
		fmt.Fprintln(os.Stderr, "Error: -p is required")
		os.Exit(2)
	}

	model := os.Getenv("FAKE_CLI_MODEL")
	if model == "" {
		model = "fake-model"
	}
	cwd, _ := os.Getwd()

	emit(map[string]interface{}{
		"type":           "system",
		"subtype":        "init",
		"cwd":            cwd,
		"session_id":     "fake-session",
		"tools":          []string{"Edit", "Write", "MultiEdit", "NotebookEdit"},
		"model":          model,
		"permissionMode": "default",
	})
	emit(map[string]interface{}{
		"type": "assistant",
		"message": map[string]interface{}{
			"content": []interface{}{
				map[string]interface{}{"type": "text", "text": "Working on: " + prompt},
			},
		},
	})
	fmt.Println("this line is not json")

	failTool := os.Getenv("FAKE_CLI_FAIL")
	if failTool != "" && strings.Contains(prompt, "the "+failTool+" tool") {
		emit(map[string]interface{}{
			"type":     "result",
			"subtype":  "error_during_execution",
			"is_error": true,
		})
		fmt.Fprintf(os.Stderr, "%s tool failed\n", failTool)
		os.Exit(1)
	}

	emit(map[string]interface{}{
		"type":        "result",
		"subtype":     "success",
		"is_error":    false,
		"num_turns":   2,
		"duration_ms": 1500,
		"result":      "Done.",
		"usage": map[string]interface{}{
			"input_tokens":  120,
			"output_tokens": 30,
		},
		"total_cost_usd": 0.0042,
	})
}

func emit(msg map[string]interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode message: %v\n", err)
		os.Exit(3)
	}
	fmt.Println(string(data))
}
