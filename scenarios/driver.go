package scenarios

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tomyedwab/toolprobe/archive"
	"github.com/tomyedwab/toolprobe/capture"
	"github.com/tomyedwab/toolprobe/errors"
	"github.com/tomyedwab/toolprobe/history"
	"github.com/tomyedwab/toolprobe/logging"
	"github.com/tomyedwab/toolprobe/report"
)

// Outcome is the result of running one scenario
type Outcome struct {
	Scenario   Scenario
	Success    bool
	SchemaPath string
	Result     capture.Result
	// Err is set when the scenario could not complete: fixture preparation
	// or saving the record failed
	Err error
}

// Driver runs scenarios one after another, archiving every capture
type Driver struct {
	Runner       *capture.Runner
	Store        *archive.Store
	TestFilesDir string
	ExtraArgs    []string
	// History is optional; when set every outcome is appended to it
	History *history.DB
	Log     *logging.RunLogger
}

// Run executes the scenarios in order. A failing scenario does not stop the
// batch; only an unusable test files directory aborts the run.
func (d *Driver) Run(list []Scenario) ([]Outcome, error) {
	if d.Log == nil {
		d.Log = logging.NewRunLogger(logging.GetLogger(), logging.GenerateRunID())
	}

	if err := os.MkdirAll(d.TestFilesDir, 0755); err != nil {
		return nil, errors.Wrapf(errors.ErrUnknown, err, "failed to create test files directory %s", d.TestFilesDir)
	}

	wd, _ := os.Getwd()
	d.Log.LogRunStart(wd, d.Store.Dir(), Keys(list))

	outcomes := make([]Outcome, 0, len(list))
	passed := 0
	for _, s := range list {
		outcome := d.runOne(s)
		if outcome.Success {
			passed++
		}
		outcomes = append(outcomes, outcome)
	}

	d.Log.LogRunEnd(passed, len(list)-passed)
	return outcomes, nil
}

func (d *Driver) runOne(s Scenario) Outcome {
	started := time.Now()
	d.Log.LogScenarioStart(s.Key, s.ToolName)

	outcome := Outcome{Scenario: s}
	record := archive.Record{
		ToolName:     s.ToolName,
		TestScenario: s.Description,
	}

	fixture, err := s.Prepare(d.TestFilesDir)
	if err != nil {
		d.Log.LogError("fixture", "Failed to prepare fixture", err, nil)
		outcome.Err = err
		outcome.Result = capture.Result{ExitCode: -1, Error: err.Error()}
		record.Error = err.Error()
	} else {
		d.Log.LogFixture(fixture.Path)
		outcome.Result = d.Runner.Run(capture.Request{
			Prompt:    fixture.Prompt,
			ExtraArgs: d.ExtraArgs,
		})
		outcome.Success = outcome.Result.Success
		record.Success = outcome.Result.Success
		record.Messages = outcome.Result.Messages
		record.Stderr = outcome.Result.Stderr
		record.Error = outcome.Result.Error
	}

	path, err := d.Store.Save(s.StorageKey, record)
	if err != nil {
		d.Log.LogError("archive", fmt.Sprintf("Failed to save %s schema", s.ToolName), err, nil)
		outcome.Success = false
		if outcome.Err == nil {
			outcome.Err = err
		}
	} else {
		outcome.SchemaPath = path
		d.Log.LogArchive(s.ToolName, path)
	}

	d.recordHistory(outcome, started)
	d.Log.LogScenarioEnd(outcome.Success, time.Since(started))
	return outcome
}

func (d *Driver) recordHistory(outcome Outcome, started time.Time) {
	if d.History == nil {
		return
	}

	entry := &history.Entry{
		RunID:        d.Log.RunID(),
		Scenario:     outcome.Scenario.Key,
		ToolName:     outcome.Scenario.ToolName,
		Success:      outcome.Success,
		ExitCode:     outcome.Result.ExitCode,
		MessageCount: len(outcome.Result.Messages),
		IgnoredLines: outcome.Result.Stats.IgnoredLines,
		DurationMS:   outcome.Result.Duration.Milliseconds(),
		SchemaPath:   outcome.SchemaPath,
		TokenUsage:   report.ExtractUsage(outcome.Result.Messages),
		StartedAt:    started,
	}
	switch {
	case outcome.Err != nil:
		entry.Error = outcome.Err.Error()
	case outcome.Result.Error != "":
		entry.Error = outcome.Result.Error
	}

	if err := d.History.Record(entry); err != nil {
		d.Log.LogWarning("history", "Failed to record scenario outcome", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// FailedKeys returns the keys of the failed outcomes in run order
func FailedKeys(outcomes []Outcome) []string {
	var failed []string
	for _, o := range outcomes {
		if !o.Success {
			failed = append(failed, o.Scenario.Key)
		}
	}
	return failed
}

// WriteSummary prints the pass/fail table shown at the end of a run
func WriteSummary(w io.Writer, outcomes []Outcome, schemasDir string) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 50))
	fmt.Fprintln(w, "Test Results Summary:")
	for _, o := range outcomes {
		status := "✓ PASSED"
		if !o.Success {
			status = "✗ FAILED"
		}
		fmt.Fprintf(w, "  %s: %s\n", o.Scenario.Key, status)
	}
	fmt.Fprintf(w, "\nSchema files saved to: %s\n", schemasDir)
}
