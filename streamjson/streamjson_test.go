package streamjson

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecode_PreservesLineOrder(t *testing.T) {
	input := `{"type":"system","subtype":"init"}
{"type":"assistant","message":{"content":[]}}
{"type":"result","is_error":false,"num_turns":2}`

	messages, stats := DecodeString(input)

	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}

	wantTypes := []string{"system", "assistant", "result"}
	for i, want := range wantTypes {
		var obj struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(messages[i], &obj); err != nil {
			t.Fatalf("Message %d is not an object: %v", i, err)
		}
		if obj.Type != want {
			t.Errorf("Message %d type = %v, want %s", i, obj.Type, want)
		}
	}

	if stats.ScannedLines != 3 || stats.ParsedLines != 3 || stats.IgnoredLines != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestDecode_ToleratesMalformedAndBlankLines(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantParsed  int
		wantIgnored int
		wantBlank   int
	}{
		{
			name:       "empty input",
			input:      "",
			wantParsed: 0,
		},
		{
			name:        "only garbage",
			input:       "not json\nstill not json\n",
			wantIgnored: 2,
		},
		{
			name:        "interleaved diagnostics",
			input:       "{\"type\":\"a\"}\nnot json\n\n   \n{\"type\":\"b\"}\n[1,2]\n42\n",
			wantParsed:  4,
			wantIgnored: 1,
			wantBlank:   2,
		},
		{
			name:        "truncated last line",
			input:       "{\"type\":\"a\"}\n{\"type\":\"b\"",
			wantParsed:  1,
			wantIgnored: 1,
		},
		{
			name:        "two documents on one line",
			input:       "{\"a\":1} {\"b\":2}\n",
			wantIgnored: 1,
		},
		{
			name:       "windows line endings",
			input:      "{\"a\":1}\r\n{\"b\":2}\r\n",
			wantParsed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, stats := DecodeString(tt.input)
			if len(messages) != tt.wantParsed {
				t.Errorf("Expected %d messages, got %d", tt.wantParsed, len(messages))
			}
			if stats.ParsedLines != tt.wantParsed {
				t.Errorf("Expected ParsedLines %d, got %d", tt.wantParsed, stats.ParsedLines)
			}
			if stats.IgnoredLines != tt.wantIgnored {
				t.Errorf("Expected IgnoredLines %d, got %d", tt.wantIgnored, stats.IgnoredLines)
			}
			if stats.BlankLines != tt.wantBlank {
				t.Errorf("Expected BlankLines %d, got %d", tt.wantBlank, stats.BlankLines)
			}
		})
	}
}

func TestDecode_NumbersRoundTrip(t *testing.T) {
	messages, _ := DecodeString(`{"duration_ms":12345678901234567,"cost":0.1}`)
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}

	encoded, err := json.Marshal(messages[0])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(encoded) != `{"duration_ms":12345678901234567,"cost":0.1}` {
		t.Errorf("Unexpected re-encoding: %s", encoded)
	}
}

func TestDecode_KeepsKeyOrderAndCompacts(t *testing.T) {
	messages, _ := DecodeString(`{"type": "assistant", "message": {"content": [{"type": "tool_use", "name": "Edit", "id": "x"}]}, "note": "<a> & b"}`)
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}

	want := `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Edit","id":"x"}]},"note":"<a> & b"}`
	if string(messages[0]) != want {
		t.Errorf("Decoded message = %s, want %s", messages[0], want)
	}
}

func TestDecode_LongLine(t *testing.T) {
	long := strings.Repeat("x", 256*1024)
	messages, stats := DecodeString(`{"result":"` + long + `"}` + "\n")
	if len(messages) != 1 || stats.IgnoredLines != 0 {
		t.Fatalf("Expected long line to decode, stats %+v", stats)
	}
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "{\"type\":\"a\"}\n"), nil
	}
	return 0, errors.New("pipe closed")
}

func TestDecode_ReadError(t *testing.T) {
	messages, _, err := Decode(&failingReader{})
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("Expected read error, got %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("Expected messages read before the error to be kept, got %d", len(messages))
	}
}
