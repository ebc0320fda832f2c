package capture

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/tomyedwab/toolprobe/errors"
	"github.com/tomyedwab/toolprobe/logging"
	"github.com/tomyedwab/toolprobe/streamjson"
)

// DefaultProgram is the agent CLI invoked when none is configured
const DefaultProgram = "claude"

// Request describes one agent CLI invocation
type Request struct {
	Prompt    string
	ExtraArgs []string
}

// Result is the aggregate outcome of one invocation
type Result struct {
	Success  bool
	Messages []streamjson.Message
	Stderr   string
	// Error is set only when the process could not be started or waited on
	Error    string
	ExitCode int
	Duration time.Duration
	Stats    streamjson.Stats
}

// Runner invokes the agent CLI and captures its stream-json output
type Runner struct {
	// Program is the executable name or path, DefaultProgram when empty
	Program string
	// WorkDir is the directory the process runs in, the current one when empty
	WorkDir string
	Logger  *logging.Logger
}

// NewRunner creates a runner for program
func NewRunner(program string, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Runner{Program: program, Logger: logger}
}

func (r *Runner) program() string {
	if r.Program == "" {
		return DefaultProgram
	}
	return r.Program
}

func (r *Runner) logger() *logging.Logger {
	if r.Logger == nil {
		return logging.GetLogger()
	}
	return r.Logger
}

// BuildArgs returns the argument vector passed to the program for req
func BuildArgs(req Request) []string {
	args := []string{
		"-p", req.Prompt,
		"--output-format", "stream-json",
		"--verbose",
	}
	return append(args, req.ExtraArgs...)
}

// Run executes the program synchronously and decodes its stdout. It never
// returns an error: launch failures are reported through Result.Error.
func (r *Runner) Run(req Request) Result {
	program := r.program()
	args := BuildArgs(req)
	logger := r.logger()

	workDir := r.WorkDir
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}

	logger.Debug("capture", fmt.Sprintf("Running %s", program), map[string]interface{}{
		"work_dir":   workDir,
		"extra_args": req.ExtraArgs,
		"prompt_len": len(req.Prompt),
	})

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(program, args...)
	cmd.Dir = workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			launchErr := errors.NewProcessLaunchError(runErr, program)
			logger.Error("capture", "Agent CLI could not be started", launchErr, map[string]interface{}{
				"program": program,
			})
			return Result{
				Success:  false,
				Messages: []streamjson.Message{},
				Error:    launchErr.Error(),
				ExitCode: -1,
				Duration: duration,
			}
		}
		exitCode = exitErr.ExitCode()
	}

	messages, stats, _ := streamjson.Decode(&stdout)

	logger.Info("capture", fmt.Sprintf("%s exited with code %d", program, exitCode), map[string]interface{}{
		"exit_code":     exitCode,
		"messages":      len(messages),
		"stderr_length": stderr.Len(),
		"duration":      duration,
	})
	if stats.IgnoredLines > 0 {
		logger.Debug("capture", "Dropped lines that were not valid JSON", map[string]interface{}{
			"scanned": stats.ScannedLines,
			"parsed":  stats.ParsedLines,
			"ignored": stats.IgnoredLines,
		})
	}

	return Result{
		Success:  exitCode == 0,
		Messages: messages,
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
		Stats:    stats,
	}
}
