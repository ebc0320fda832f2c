package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomyedwab/toolprobe/errors"
	"github.com/tomyedwab/toolprobe/streamjson"
)

// DefaultDir is the directory schema records are written to
const DefaultDir = "schemas"

// FileSuffix is appended to the tool name to form a record's filename
const FileSuffix = "_schema.json"

// Record is the persisted capture of one scenario. Files holding records
// are read by tools outside toolprobe, so field names are stable.
type Record struct {
	ToolName     string               `json:"tool_name"`
	TestScenario string               `json:"test_scenario"`
	Success      bool                 `json:"success"`
	Messages     []streamjson.Message `json:"messages"`
	Stderr       string               `json:"stderr"`
	Error        string               `json:"error,omitempty"`
}

// Store keeps one pretty-printed JSON file per tool name in a directory
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating the directory if needed
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(errors.ErrArchiveWriteFailed, err, "failed to create schemas directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

// OpenStore returns a store for an existing directory without creating it
func OpenStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrArchiveNotFound, "schemas directory %s not found", dir).
				WithContext("dir", dir)
		}
		return nil, errors.Wrapf(errors.ErrArchiveReadFailed, err, "failed to stat %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrArchiveReadFailed, "%s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a record for toolName is stored in
func (s *Store) Path(toolName string) string {
	return filepath.Join(s.dir, toolName+FileSuffix)
}

func validateToolName(toolName string) error {
	if strings.TrimSpace(toolName) == "" {
		return errors.NewInvalidInputError("tool name cannot be empty")
	}
	if strings.ContainsAny(toolName, `/\`) || toolName == "." || toolName == ".." {
		return errors.NewInvalidInputError(fmt.Sprintf("tool name %q must not contain path separators", toolName))
	}
	return nil
}

// Save overwrites the record for toolName and returns the file path
func (s *Store) Save(toolName string, record Record) (string, error) {
	if err := validateToolName(toolName); err != nil {
		return "", err
	}

	data, err := Encode(record)
	if err != nil {
		return "", errors.Wrapf(errors.ErrArchiveWriteFailed, err, "failed to encode %s schema", toolName)
	}

	path := s.Path(toolName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(errors.ErrArchiveWriteFailed, err, "failed to write %s", path)
	}
	return path, nil
}

// Load reads the record stored for toolName
func (s *Store) Load(toolName string) (Record, error) {
	if err := validateToolName(toolName); err != nil {
		return Record{}, err
	}
	path := s.Path(toolName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Record{}, errors.NewArchiveNotFoundError(toolName)
	}
	return LoadFile(path)
}

// List returns the tool names with a stored record, sorted by name
func (s *Store) List() ([]string, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(file), FileSuffix))
	}
	return names, nil
}

// Files returns the paths of all record files, sorted by name
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrArchiveReadFailed, err, "failed to list %s", s.dir)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, FileSuffix) || name == FileSuffix {
			continue
		}
		files = append(files, filepath.Join(s.dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile decodes a record file
func LoadFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, errors.Wrapf(errors.ErrArchiveReadFailed, err, "failed to read %s", path)
	}
	record, err := Decode(data)
	if err != nil {
		return Record{}, errors.Wrapf(errors.ErrArchiveReadFailed, err, "failed to parse %s", path)
	}
	return record, nil
}

// Encode renders a record as indented JSON with a trailing newline. Messages
// are written as captured, so object keys keep the tool's order.
func Encode(record Record) ([]byte, error) {
	if record.Messages == nil {
		record.Messages = []streamjson.Message{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses record JSON. Messages come back compacted with their key
// order and number literals as stored.
func Decode(data []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, err
	}
	if record.Messages == nil {
		record.Messages = []streamjson.Message{}
	}
	for i, msg := range record.Messages {
		var buf bytes.Buffer
		if err := json.Compact(&buf, msg); err != nil {
			return Record{}, err
		}
		record.Messages[i] = buf.Bytes()
	}
	return record, nil
}
