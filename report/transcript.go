package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tomyedwab/toolprobe/archive"
	"github.com/tomyedwab/toolprobe/streamjson"
)

// maxToolResultLines is the size above which tool results are elided
const maxToolResultLines = 100

// formatToolParams picks the most telling parameter of a tool call
func formatToolParams(input view) string {
	if len(input) == 0 {
		return ""
	}

	for _, key := range []string{"file_path", "notebook_path", "command", "pattern", "path", "url", "description"} {
		if val, ok := input[key]; ok {
			valStr := render(val)
			if utf8.RuneCountInString(valStr) > 60 {
				valStr = truncate(valStr, 57) + "..."
			}
			return valStr
		}
	}

	if edits, ok := input.array("edits"); ok {
		return fmt.Sprintf("%d edits", len(edits))
	}
	return fmt.Sprintf("%d params", len(input))
}

// FormatTranscript renders a record's messages as compact markdown: a
// session header, assistant text, one line per tool call, tool errors and
// results, and the final result summary.
func FormatTranscript(record archive.Record) string {
	var out strings.Builder

	fmt.Fprintf(&out, "# %s: %s\n\n", orDefault(record.ToolName, "Unknown"), orDefault(record.TestScenario, "Unknown"))
	if record.Error != "" {
		fmt.Fprintf(&out, "> run error: %s\n\n", record.Error)
	}
	if len(record.Messages) == 0 {
		out.WriteString("_(no messages captured)_\n")
		return out.String()
	}

	writeTranscript(&out, record.Messages)
	return out.String()
}

func writeTranscript(out *strings.Builder, messages []streamjson.Message) {
	for _, msg := range messages {
		v := asView(msg)
		switch v.str("type", "") {
		case "system":
			if v.str("subtype", "") == "init" {
				fmt.Fprintf(out, "## Session (%s)\n", v.text("model", defaultModel))
				fmt.Fprintf(out, "`%s` • Session: `%s` • Permission mode: `%s`\n", v.text("cwd", "?"), v.text("session_id", "?"), permissionMode(v))
				if tools := v.list("tools"); len(tools) > 0 {
					fmt.Fprintf(out, "Tools: %s\n", joinRendered(tools))
				}
				out.WriteString("\n")
			}

		case "assistant":
			writeAssistant(out, v.object("message"))

		case "user":
			writeToolResults(out, v.object("message"))

		case "result":
			writeResult(out, v)
		}
	}
}

func writeAssistant(out *strings.Builder, inner view) {
	if inner == nil {
		return
	}
	wrote := false
	for _, item := range inner.list("content") {
		block := asView(item)
		switch block.str("type", "") {
		case "text":
			if text := block.str("text", ""); text != "" {
				out.WriteString(text)
				out.WriteString("\n")
				wrote = true
			}
		case "tool_use":
			name := block.str("name", "tool")
			if params := formatToolParams(block.object("input")); params != "" {
				fmt.Fprintf(out, "> %s (%s)\n", name, params)
			} else {
				fmt.Fprintf(out, "> %s\n", name)
			}
			wrote = true
		}
	}
	if wrote {
		out.WriteString("\n")
	}
}

func writeToolResults(out *strings.Builder, inner view) {
	if inner == nil {
		return
	}
	for _, item := range inner.list("content") {
		block := asView(item)
		if block.str("type", "") != "tool_result" {
			continue
		}
		content := block.text("content", "")
		if block.boolean("is_error", false) {
			fmt.Fprintf(out, "⚠️  Tool error: %s\n\n", unwrapToolError(content))
			continue
		}
		if content == "" {
			continue
		}
		lines := strings.Split(content, "\n")
		if len(lines) <= maxToolResultLines {
			fmt.Fprintf(out, "**Tool result:**\n```\n%s\n```\n\n", content)
			continue
		}
		head := strings.Join(lines[:maxToolResultLines/2], "\n")
		tail := strings.Join(lines[len(lines)-maxToolResultLines/2:], "\n")
		fmt.Fprintf(out, "**Tool result** _(truncated, %d lines total)_:\n```\n%s\n\n... [%d lines truncated] ...\n\n%s\n```\n\n",
			len(lines), head, len(lines)-maxToolResultLines, tail)
	}
}

// unwrapToolError strips the <tool_use_error> wrapper the CLI puts around
// tool failures
func unwrapToolError(content string) string {
	const open, closeTag = "<tool_use_error>", "</tool_use_error>"
	start := strings.Index(content, open)
	end := strings.Index(content, closeTag)
	if start >= 0 && end > start {
		return content[start+len(open) : end]
	}
	return content
}

func writeResult(out *strings.Builder, v view) {
	var parts []string
	if v.boolean("is_error", defaultIsError) {
		parts = append(parts, "❌ Error")
	} else {
		parts = append(parts, "✅ Success")
	}
	if subtype := v.str("subtype", ""); subtype != "" && subtype != "success" {
		parts = append(parts, subtype)
	}
	if turns := v.integer("num_turns", defaultNumTurns); turns > 0 {
		parts = append(parts, fmt.Sprintf("%d turns", turns))
	}
	if ms := v.integer("duration_ms", defaultDurationMS); ms > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", float64(ms)/1000))
	}
	if cost := v.text("total_cost_usd", ""); cost != "" {
		parts = append(parts, "$"+cost)
	}

	out.WriteString("---\n")
	out.WriteString(strings.Join(parts, " • "))
	out.WriteString("\n")

	if result := v.str("result", ""); result != "" {
		out.WriteString("\n")
		out.WriteString(result)
		out.WriteString("\n")
	}
}

func joinRendered(values []json.RawMessage) string {
	parts := make([]string, 0, len(values))
	for _, val := range values {
		parts = append(parts, render(val))
	}
	return strings.Join(parts, ", ")
}
