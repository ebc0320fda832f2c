// Package history keeps an append-only SQLite ledger of scenario outcomes.
package history

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/toolprobe/errors"
)

// TokenUsage is the token count and cost reported by the agent for one invocation
type TokenUsage struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	TotalTokens         int     `json:"total_tokens"`
	CostUSD             float64 `json:"cost_usd"`
}

// Entry is one scenario outcome
type Entry struct {
	ID           int64
	RunID        string
	Scenario     string
	ToolName     string
	Success      bool
	ExitCode     int
	MessageCount int
	IgnoredLines int
	DurationMS   int64
	SchemaPath   string
	Error        string
	TokenUsage   TokenUsage
	StartedAt    time.Time
}

// DB provides database operations for the run history
type DB struct {
	db *sql.DB
}

// Open opens the history database at path, creating it and its schema if needed
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrHistoryFailed, err, "failed to create history directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrHistoryFailed, err, "failed to open history database")
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrHistoryFailed, err, "failed to create history schema")
	}

	return &DB{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		scenario TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		exit_code INTEGER NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		ignored_lines INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		schema_path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		token_usage_json TEXT NOT NULL DEFAULT '{}',
		started_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario);`

	_, err := db.Exec(schema)
	return err
}

// Record appends an entry and sets its ID
func (h *DB) Record(entry *Entry) error {
	if entry == nil {
		return errors.New(errors.ErrInvalidInput, "entry cannot be nil")
	}
	if entry.RunID == "" {
		return errors.New(errors.ErrInvalidInput, "run_id is required")
	}
	if entry.Scenario == "" {
		return errors.New(errors.ErrInvalidInput, "scenario is required")
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}

	tokenUsageJSON, err := json.Marshal(entry.TokenUsage)
	if err != nil {
		return errors.Wrap(errors.ErrHistoryFailed, err, "failed to serialize token usage")
	}

	result, err := h.db.Exec(`
		INSERT INTO runs (
			run_id, scenario, tool_name, success, exit_code, message_count,
			ignored_lines, duration_ms, schema_path, error, token_usage_json, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Scenario, entry.ToolName, entry.Success, entry.ExitCode, entry.MessageCount,
		entry.IgnoredLines, entry.DurationMS, entry.SchemaPath, entry.Error, string(tokenUsageJSON), entry.StartedAt.UTC())
	if err != nil {
		return errors.Wrap(errors.ErrHistoryFailed, err, "failed to insert history entry")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(errors.ErrHistoryFailed, err, "failed to get last insert id")
	}
	entry.ID = id
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (h *DB) Recent(limit int) ([]Entry, error) {
	return h.query(`
		SELECT id, run_id, scenario, tool_name, success, exit_code, message_count,
		       ignored_lines, duration_ms, schema_path, error, token_usage_json, started_at
		FROM runs
		ORDER BY id DESC
		LIMIT ?`, normalizeLimit(limit))
}

// ForScenario returns up to limit entries for one scenario, newest first
func (h *DB) ForScenario(scenario string, limit int) ([]Entry, error) {
	return h.query(`
		SELECT id, run_id, scenario, tool_name, success, exit_code, message_count,
		       ignored_lines, duration_ms, schema_path, error, token_usage_json, started_at
		FROM runs
		WHERE scenario = ?
		ORDER BY id DESC
		LIMIT ?`, scenario, normalizeLimit(limit))
}

// normalizeLimit maps "no limit" to SQLite's -1
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func (h *DB) query(query string, args ...interface{}) ([]Entry, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrHistoryFailed, err, "failed to query history")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var tokenUsageJSON string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Scenario, &e.ToolName, &e.Success, &e.ExitCode,
			&e.MessageCount, &e.IgnoredLines, &e.DurationMS, &e.SchemaPath, &e.Error, &tokenUsageJSON, &e.StartedAt); err != nil {
			return nil, errors.Wrap(errors.ErrHistoryFailed, err, "failed to scan history entry")
		}
		if err := json.Unmarshal([]byte(tokenUsageJSON), &e.TokenUsage); err != nil {
			return nil, errors.Wrap(errors.ErrHistoryFailed, err, "failed to parse token usage")
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrHistoryFailed, err, "error iterating history")
	}

	return entries, nil
}

// Close closes the database connection
func (h *DB) Close() error {
	return h.db.Close()
}
