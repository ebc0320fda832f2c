// Package streamjson decodes the line-delimited JSON ("stream-json") output
// of agent CLIs.
//
// Every non-blank line is decoded on its own. Lines that are not valid JSON
// are dropped and counted; they never abort decoding of the remaining lines.
package streamjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Message is one decoded line held as compact JSON. Keys stay in the order
// the tool printed them and numbers keep their literal form.
type Message = json.RawMessage

// Stats counts what happened to each scanned line
type Stats struct {
	ScannedLines int `json:"scanned_lines"`
	BlankLines   int `json:"blank_lines"`
	ParsedLines  int `json:"parsed_lines"`
	IgnoredLines int `json:"ignored_lines"`
}

// Decode reads r to EOF and returns the decoded messages in line order.
// The returned error is only ever a read error from r.
func Decode(r io.Reader) ([]Message, Stats, error) {
	var (
		messages = []Message{}
		stats    Stats
	)

	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			stats.ScannedLines++
			if msg, ok := decodeLine(line); ok {
				stats.ParsedLines++
				messages = append(messages, msg)
			} else if len(bytes.TrimSpace(line)) == 0 {
				stats.BlankLines++
			} else {
				stats.IgnoredLines++
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return messages, stats, readErr
		}
	}

	return messages, stats, nil
}

// DecodeString is Decode over an in-memory string
func DecodeString(s string) ([]Message, Stats) {
	messages, stats, _ := Decode(strings.NewReader(s))
	return messages, stats
}

// decodeLine accepts a line holding exactly one JSON document and returns
// it compacted. Trailing data after the document makes the line invalid.
func decodeLine(line []byte) (Message, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !json.Valid(line) {
		return nil, false
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, line); err != nil {
		return nil, false
	}
	return Message(buf.Bytes()), true
}
