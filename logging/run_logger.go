package logging

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunLogger provides specialized logging for a toolprobe run and its scenarios
type RunLogger struct {
	logger    *Logger
	runID     string
	scenario  string
	startTime time.Time
}

// NewRunLogger creates a new run logger
func NewRunLogger(logger *Logger, runID string) *RunLogger {
	logger.SetRunID(runID)
	return &RunLogger{
		logger:    logger,
		runID:     runID,
		startTime: time.Now(),
	}
}

// Logger returns the underlying logger
func (rl *RunLogger) Logger() *Logger {
	return rl.logger
}

// RunID returns the identifier of the run
func (rl *RunLogger) RunID() string {
	return rl.runID
}

// LogRunStart logs the beginning of a run
func (rl *RunLogger) LogRunStart(workDir, schemasDir string, scenarios []string) {
	rl.logger.Info("run", "Starting toolprobe run", map[string]interface{}{
		"work_dir":    workDir,
		"schemas_dir": schemasDir,
		"scenarios":   scenarios,
		"timestamp":   rl.startTime.Format(time.RFC3339),
	})
}

// LogRunEnd logs the completion of a run
func (rl *RunLogger) LogRunEnd(passed, failed int) {
	status := "completed"
	if failed > 0 {
		status = "failed"
	}
	rl.logger.Info("run", fmt.Sprintf("toolprobe run %s", status), map[string]interface{}{
		"passed":   passed,
		"failed":   failed,
		"duration": time.Since(rl.startTime),
	})
}

// LogScenarioStart switches the logging context to a scenario
func (rl *RunLogger) LogScenarioStart(scenario, toolName string) {
	rl.scenario = scenario
	rl.logger.SetScenario(scenario)
	rl.logger.Info("scenario", fmt.Sprintf("Testing %s tool", toolName), map[string]interface{}{
		"tool_name": toolName,
	})
}

// LogScenarioEnd logs the scenario outcome and clears the scenario context
func (rl *RunLogger) LogScenarioEnd(success bool, duration time.Duration) {
	status := "passed"
	if !success {
		status = "failed"
	}
	rl.logger.Info("scenario", fmt.Sprintf("Scenario %s", status), map[string]interface{}{
		"success":  success,
		"duration": duration,
	})
	rl.scenario = ""
	rl.logger.SetScenario("")
}

// LogFixture logs creation of a scenario fixture file
func (rl *RunLogger) LogFixture(path string) {
	rl.logger.Debug("fixture", "Prepared fixture", map[string]interface{}{
		"path": path,
	})
}

// LogArchive logs a schema record written to disk
func (rl *RunLogger) LogArchive(toolName, path string) {
	rl.logger.Info("archive", fmt.Sprintf("Saved %s schema to %s", toolName, path), map[string]interface{}{
		"tool_name": toolName,
		"path":      path,
	})
}

// LogError logs an error that occurred during the run
func (rl *RunLogger) LogError(component, message string, err error, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	if rl.scenario != "" {
		metadata["scenario"] = rl.scenario
	}
	rl.logger.Error(component, message, err, metadata)
}

// LogWarning logs a warning during the run
func (rl *RunLogger) LogWarning(component, message string, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	if rl.scenario != "" {
		metadata["scenario"] = rl.scenario
	}
	rl.logger.Warn(component, message, metadata)
}

// GenerateRunID generates a unique, roughly time-ordered run ID
func GenerateRunID() string {
	return fmt.Sprintf("R%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}
