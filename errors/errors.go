package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur in toolprobe
type ErrorType int

const (
	// General errors
	ErrUnknown ErrorType = iota
	ErrInvalidInput
	ErrNotFound

	// Configuration errors
	ErrConfigInvalid

	// Agent CLI errors
	ErrProcessLaunchFailed

	// Archive errors
	ErrArchiveNotFound
	ErrArchiveReadFailed
	ErrArchiveWriteFailed

	// History errors
	ErrHistoryFailed

	// Scenario errors
	ErrScenarioFailed
)

// ProbeError represents a toolprobe error with additional context
type ProbeError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the cause of the error
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ProbeError of the same type
func (e *ProbeError) Is(target error) bool {
	targetErr, ok := target.(*ProbeError)
	if !ok {
		return false
	}
	return e.Type == targetErr.Type
}

// WithContext adds context to the error
func (e *ProbeError) WithContext(key string, value interface{}) *ProbeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new ProbeError
func New(errType ErrorType, message string) *ProbeError {
	return &ProbeError{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new ProbeError with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *ProbeError {
	return &ProbeError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with ProbeError context
func Wrap(errType ErrorType, cause error, message string) *ProbeError {
	return &ProbeError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(errType ErrorType, cause error, format string, args ...interface{}) *ProbeError {
	return &ProbeError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsErrorType checks if an error is of a specific ProbeError type
func IsErrorType(err error, errType ErrorType) bool {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Type == errType
	}
	return false
}

// Cause returns the underlying cause of a ProbeError, or err itself
func Cause(err error) error {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) && probeErr.Cause != nil {
		return probeErr.Cause
	}
	return err
}

// ExitCode returns the process exit code for an error
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		switch probeErr.Type {
		case ErrInvalidInput, ErrScenarioFailed:
			return 1
		case ErrNotFound, ErrArchiveNotFound:
			return 2
		case ErrConfigInvalid:
			return 3
		case ErrProcessLaunchFailed:
			return 10
		case ErrArchiveReadFailed, ErrArchiveWriteFailed:
			return 20
		case ErrHistoryFailed:
			return 30
		default:
			return 1
		}
	}

	return 1
}

// UserFriendlyMessage returns a message suitable for the terminal
func UserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		switch probeErr.Type {
		case ErrInvalidInput:
			return fmt.Sprintf("Invalid input: %s", probeErr.Message)
		case ErrNotFound, ErrArchiveNotFound:
			return probeErr.Message
		case ErrConfigInvalid:
			return fmt.Sprintf("Configuration is invalid: %v", probeErr.Error())
		case ErrProcessLaunchFailed:
			return "The agent CLI could not be started."
		case ErrArchiveReadFailed:
			return fmt.Sprintf("Failed to read schema archive: %v", probeErr.Error())
		case ErrArchiveWriteFailed:
			return fmt.Sprintf("Failed to write schema archive: %v", probeErr.Error())
		case ErrHistoryFailed:
			return fmt.Sprintf("Run history is unavailable: %v", probeErr.Error())
		case ErrScenarioFailed:
			return probeErr.Message
		default:
			return probeErr.Error()
		}
	}

	return err.Error()
}

// Suggestion returns a hint for resolving the error
func Suggestion(err error) string {
	if err == nil {
		return ""
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		switch probeErr.Type {
		case ErrInvalidInput:
			return "Use '--help' to see available commands and options."
		case ErrConfigInvalid:
			return "Run 'toolprobe init-config' to write a fresh configuration file."
		case ErrProcessLaunchFailed:
			return "Check that the agent CLI is installed and on PATH, or set 'program' in the config."
		case ErrArchiveNotFound:
			return "Run 'toolprobe' first to capture schema files."
		case ErrScenarioFailed:
			return "Inspect the captured records with 'examine'."
		default:
			if probeErr.Cause != nil {
				return fmt.Sprintf("Underlying error: %v", probeErr.Cause)
			}
			return ""
		}
	}

	return ""
}

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(message string) *ProbeError {
	return New(ErrInvalidInput, message)
}

// NewNotFoundError creates an error for not found resources
func NewNotFoundError(resource, identifier string) *ProbeError {
	return Newf(ErrNotFound, "%s '%s' not found", resource, identifier)
}

// NewArchiveNotFoundError creates an error for a missing schema record
func NewArchiveNotFoundError(toolName string) *ProbeError {
	return Newf(ErrArchiveNotFound, "schema record '%s' not found", toolName).
		WithContext("tool_name", toolName)
}

// NewProcessLaunchError creates an error for an agent CLI that could not start
func NewProcessLaunchError(cause error, program string) *ProbeError {
	return Wrapf(ErrProcessLaunchFailed, cause, "failed to run %s", program).
		WithContext("program", program)
}

// NewScenarioFailedError creates the batch-level error for failed scenarios
func NewScenarioFailedError(failed []string) *ProbeError {
	return Newf(ErrScenarioFailed, "%d scenario(s) failed", len(failed)).
		WithContext("failed", failed)
}
