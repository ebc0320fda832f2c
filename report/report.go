// Package report prints human-readable summaries of archived schema records.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tomyedwab/toolprobe/archive"
	"github.com/tomyedwab/toolprobe/errors"
)

var separator = strings.Repeat("=", 60)

// Summarize writes the summary of one record. fileName is the name shown in
// the header, normally the record's file name.
func Summarize(w io.Writer, fileName string, record archive.Record) {
	writeHeader(w, fileName)
	writeRecord(w, record)
}

// SummaryText returns the summary of one record as a string
func SummaryText(fileName string, record archive.Record) string {
	var sb strings.Builder
	Summarize(&sb, fileName, record)
	return sb.String()
}

// SummarizeFile loads and summarizes one record file. A read or parse error
// is printed in place of the record and also returned.
func SummarizeFile(w io.Writer, path string) error {
	writeHeader(w, filepath.Base(path))

	record, err := archive.LoadFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error reading %s: %v\n", path, errors.Cause(err))
		return err
	}
	writeRecord(w, record)
	return nil
}

// SummarizeAll summarizes every record in dir in name order. A missing
// directory or an empty one is reported as a message, not an error. Files
// that cannot be read are reported individually and do not stop the scan;
// the number of such files is returned.
func SummarizeAll(w io.Writer, dir string) (int, error) {
	store, err := archive.OpenStore(dir)
	if err != nil {
		if errors.IsErrorType(err, errors.ErrArchiveNotFound) {
			fmt.Fprintln(w, "Schemas directory not found!")
			return 0, nil
		}
		return 0, err
	}

	files, err := store.Files()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "No schema files found!")
		return 0, nil
	}

	fmt.Fprintf(w, "Found %d schema files:\n", len(files))
	failed := 0
	for _, file := range files {
		if err := SummarizeFile(w, file); err != nil {
			failed++
		}
	}
	return failed, nil
}

func writeHeader(w io.Writer, fileName string) {
	fmt.Fprintf(w, "\n%s\n", separator)
	fmt.Fprintf(w, "Schema File: %s\n", fileName)
	fmt.Fprintf(w, "%s\n", separator)
}

func writeRecord(w io.Writer, record archive.Record) {
	fmt.Fprintf(w, "Tool Name: %s\n", orDefault(record.ToolName, "Unknown"))
	fmt.Fprintf(w, "Test Scenario: %s\n", orDefault(record.TestScenario, "Unknown"))
	fmt.Fprintf(w, "Success: %t\n", record.Success)

	if record.Stderr != "" {
		fmt.Fprintf(w, "Stderr: %s\n", record.Stderr)
	}
	if record.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", record.Error)
	}

	fmt.Fprintf(w, "\nNumber of messages: %d\n", len(record.Messages))

	for i, msg := range record.Messages {
		fmt.Fprintf(w, "\nMessage %d:\n", i+1)
		writeMessage(w, asView(msg))
	}
}

// writeMessage prints the fields relevant to the message's type. Unknown
// types only get their type and subtype.
func writeMessage(w io.Writer, v view) {
	fmt.Fprintf(w, "  Type: %s\n", v.text("type", defaultType))
	if v.has("subtype") {
		fmt.Fprintf(w, "  Subtype: %s\n", v.text("subtype", ""))
	}

	msgType := v.str("type", "")
	switch {
	case msgType == "system" && v.str("subtype", "") == "init":
		fmt.Fprintf(w, "  Tools: %s\n", v.listText("tools"))
		fmt.Fprintf(w, "  Model: %s\n", v.text("model", defaultModel))
		fmt.Fprintf(w, "  Permission Mode: %s\n", permissionMode(v))

	case msgType == "assistant":
		inner := v.object("message")
		if inner == nil {
			return
		}
		if content, ok := inner["content"]; ok && !isEmpty(content) {
			fmt.Fprintf(w, "  Content preview: %s...\n", truncate(render(content), previewLength))
		}

	case msgType == "result":
		fmt.Fprintf(w, "  Is Error: %t\n", v.boolean("is_error", defaultIsError))
		fmt.Fprintf(w, "  Num Turns: %d\n", v.integer("num_turns", defaultNumTurns))
		fmt.Fprintf(w, "  Duration MS: %d\n", v.integer("duration_ms", defaultDurationMS))
		if v.has("result") {
			fmt.Fprintf(w, "  Result preview: %s...\n", truncate(v.text("result", ""), previewLength))
		}
	}
}

// permissionMode reads the camelCase key and falls back to snake_case
func permissionMode(v view) string {
	if v.has("permissionMode") {
		return v.text("permissionMode", defaultPermissionMode)
	}
	return v.text("permission_mode", defaultPermissionMode)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
