package report

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Defaults used when a field is absent from a message. A field holding a
// value of the wrong JSON type is treated as absent.
const (
	defaultType           = "unknown"
	defaultModel          = "unknown"
	defaultPermissionMode = "unknown"
	// A result without is_error is assumed to have failed.
	defaultIsError    = true
	defaultNumTurns   = 0
	defaultDurationMS = 0

	previewLength = 200
)

// view gives defensive access to the fields of a message object. Values stay
// raw so nested documents render with the keys in their original order.
type view map[string]json.RawMessage

// asView returns the message as a view, or nil when it is not a JSON object
func asView(msg json.RawMessage) view {
	if kind(msg) != '{' {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(msg, &obj); err != nil {
		return nil
	}
	return view(obj)
}

// kind returns the first byte of a raw value, which identifies its JSON type
func kind(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func (v view) has(key string) bool {
	_, ok := v[key]
	return ok
}

// str returns the string value of key or def
func (v view) str(key, def string) string {
	raw := v[key]
	if kind(raw) != '"' {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return def
	}
	return s
}

// text renders the value of key for display: strings as-is, anything else
// as compact JSON, def when absent or null
func (v view) text(key, def string) string {
	raw, ok := v[key]
	if !ok || kind(raw) == 'n' {
		return def
	}
	return render(raw)
}

// boolean returns the boolean value of key or def
func (v view) boolean(key string, def bool) bool {
	switch kind(v[key]) {
	case 't':
		return true
	case 'f':
		return false
	}
	return def
}

// number returns the value of key when it is a JSON number
func (v view) number(key string) (json.Number, bool) {
	raw := v[key]
	if c := kind(raw); c != '-' && (c < '0' || c > '9') {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n, true
}

// integer returns the integral value of key or def. Fractions are truncated.
func (v view) integer(key string, def int64) int64 {
	n, ok := v.number(key)
	if !ok {
		return def
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return def
}

// float returns the numeric value of key
func (v view) float(key string) (float64, bool) {
	n, ok := v.number(key)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	return f, err == nil
}

// array returns the elements of key when it holds a JSON array
func (v view) array(key string) ([]json.RawMessage, bool) {
	raw := v[key]
	if kind(raw) != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// list returns the array value of key, or an empty list
func (v view) list(key string) []json.RawMessage {
	items, _ := v.array(key)
	return items
}

// listText renders the array value of key, or [] when it is not an array
func (v view) listText(key string) string {
	if kind(v[key]) != '[' {
		return "[]"
	}
	return render(v[key])
}

// object returns the nested object at key, or nil
func (v view) object(key string) view {
	return asView(v[key])
}

// render formats a raw JSON value for display: strings unquoted, anything
// else as compact JSON in its original key order
func render(raw json.RawMessage) string {
	if kind(raw) == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// isEmpty reports whether a raw value carries no content
func isEmpty(raw json.RawMessage) bool {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return len(bytes.TrimSpace(raw)) == 0
	}
	switch buf.String() {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}

// truncate returns the first n characters of s
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
