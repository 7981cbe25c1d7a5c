// Package errors provides centralized error definitions and handling
// utilities for gpulease. It defines domain-specific error types with
// context builders, semantic sentinels, and classification helpers.
//
// Only session-protocol violations (double acquire, release without hold)
// are allowed to abort a calling flow. Collaborator failures (a missing or
// unparsable diagnostic tool) and housekeeping failures (losing an
// eviction race) are absorbed at the boundary that detects them and never
// surface as faults.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions so callers can import only this
// package for error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// General sentinel errors.
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrLockDirUnavailable indicates the shared lock directory could not
	// be created. The directory is a precondition, so this is fatal.
	ErrLockDirUnavailable = New("lock directory unavailable")
)

// Severity represents the severity level of an error.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// baseError provides common functionality for the domain error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// classified is implemented by all domain error types.
type classified interface {
	error
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

// LeaseError represents errors from the claim registry protocol.
//
// Example:
//
//	err := errors.NewLeaseError("acquire failed", cause).WithGroup("alpha")
type LeaseError struct {
	baseError
	Group string
	Path  string
}

// NewLeaseError creates a new LeaseError.
func NewLeaseError(message string, cause error) *LeaseError {
	return &LeaseError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithGroup adds the claim group to the error context.
func (e *LeaseError) WithGroup(group string) *LeaseError {
	e.Group = group
	return e
}

// WithPath adds the claim file path to the error context.
func (e *LeaseError) WithPath(path string) *LeaseError {
	e.Path = path
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *LeaseError) WithRetryable(r bool) *LeaseError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *LeaseError) Error() string {
	var parts []string
	if e.Group != "" {
		parts = append(parts, fmt.Sprintf("group=%s", e.Group))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("claim=%s", e.Path))
	}

	prefix := "lease error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("lease error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LeaseError) Is(target error) bool {
	if _, ok := target.(*LeaseError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CommandError represents a wrapped child process that could not be
// started or failed in a way the wrapper itself must report. A child that
// ran and exited nonzero is NOT a CommandError; its exit code passes
// through unmodified.
type CommandError struct {
	baseError
	Command string
}

// NewCommandError creates a new CommandError.
func NewCommandError(message string, cause error) *CommandError {
	return &CommandError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithCommand adds the command name to the error context.
func (e *CommandError) WithCommand(cmd string) *CommandError {
	e.Command = cmd
	return e
}

// Error returns the formatted error message.
func (e *CommandError) Error() string {
	prefix := "command error"
	if e.Command != "" {
		prefix = fmt.Sprintf("command error [command=%s]", e.Command)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *CommandError) Is(target error) bool {
	if _, ok := target.(*CommandError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or configuration.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// IsRetryable reports whether the error represents a transient condition
// that may succeed on retry, such as an admission refusal under load.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var c classified
	if As(err, &c) {
		return c.IsRetryable()
	}
	return false
}

// IsUserFacing reports whether the error message is safe to display to
// end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var c classified
	if As(err, &c) {
		return c.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error, defaulting to
// SeverityError for unclassified errors.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var c classified
	if As(err, &c) {
		return c.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with an additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
