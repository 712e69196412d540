// Package checkerr defines the structured error taxonomy for validation runs.
//
// Only conditions that stop a run are represented here: unreadable targets,
// invalid source encoding, resource limits, tokenization failures, timeouts
// and configuration problems. Structural diagnostics and missing features are
// report content, not errors.
package checkerr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// ErrorCategory represents the category of a check error.
type ErrorCategory string

const (
	// ErrorCategoryIO covers missing or unreadable targets.
	ErrorCategoryIO ErrorCategory = "io"

	// ErrorCategoryEncoding covers non UTF-8 input and null bytes.
	ErrorCategoryEncoding ErrorCategory = "encoding"

	// ErrorCategoryResourceLimit covers oversized targets.
	ErrorCategoryResourceLimit ErrorCategory = "resource_limit"

	// ErrorCategoryParse covers input that cannot be tokenized at all.
	ErrorCategoryParse ErrorCategory = "parse"

	// ErrorCategoryTimeout covers deadline and cancellation.
	ErrorCategoryTimeout ErrorCategory = "timeout"

	// ErrorCategoryConfig covers invalid configuration and rule files.
	ErrorCategoryConfig ErrorCategory = "config"
)

// ErrorSeverity represents the severity level of an error.
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityCritical ErrorSeverity = "critical"
)

// CheckError is a structured error with the context needed to report it.
type CheckError struct {
	Message  string        `json:"message"`
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`

	Path       string `json:"path,omitempty"`
	Operation  string `json:"operation,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`

	Details     map[string]any `json:"details,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	Cause error `json:"-"`
}

// NewCheckError creates a new error with the given category and message.
func NewCheckError(category ErrorCategory, message string) *CheckError {
	return &CheckError{
		Message:   message,
		Category:  category,
		Severity:  ErrorSeverityHigh,
		Timestamp: time.Now(),
	}
}

// NewIOError creates an error for a target that cannot be read.
func NewIOError(path string, cause error) *CheckError {
	msg := "cannot read target"
	if errors.Is(cause, fs.ErrNotExist) {
		msg = "target does not exist"
	}
	return NewCheckError(ErrorCategoryIO, msg).
		WithPath(path).
		WithCause(cause).
		WithSeverity(ErrorSeverityCritical).
		WithSuggestion("Check the target path and its permissions")
}

// NewEncodingError creates an encoding error.
func NewEncodingError(message string) *CheckError {
	return NewCheckError(ErrorCategoryEncoding, message).
		WithSuggestion("Ensure the file is saved as UTF-8 text")
}

// NewResourceLimitError creates a resource limit error.
func NewResourceLimitError(message string) *CheckError {
	return NewCheckError(ErrorCategoryResourceLimit, message).
		WithSeverity(ErrorSeverityCritical).
		WithSuggestion("Raise source.max_file_size or split the document")
}

// NewParseError creates an error for input that cannot be tokenized.
func NewParseError(message string, line int) *CheckError {
	return NewCheckError(ErrorCategoryParse, message).
		WithLine(line).
		WithSeverity(ErrorSeverityCritical).
		WithSuggestion("Look for an unterminated tag, comment or attribute near the reported line")
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string, duration time.Duration) *CheckError {
	return NewCheckError(ErrorCategoryTimeout, message).
		WithDetails("timeout_duration", duration.String()).
		WithSuggestion("Increase check.timeout")
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *CheckError {
	return NewCheckError(ErrorCategoryConfig, message).
		WithSuggestion("Fix the configuration file, flags or MARKUPCHECK_* variables")
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	prefix := string(e.Category) + " error"
	if e.Path != "" {
		prefix += " in " + e.Path
	}
	if e.LineNumber > 0 {
		prefix += fmt.Sprintf(" at line %d", e.LineNumber)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *CheckError) Unwrap() error {
	return e.Cause
}

// WithCause adds a cause to the error.
func (e *CheckError) WithCause(cause error) *CheckError {
	e.Cause = cause
	return e
}

// WithDetails adds details to the error.
func (e *CheckError) WithDetails(key string, value any) *CheckError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error.
func (e *CheckError) WithSuggestion(suggestion string) *CheckError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithPath sets the target path.
func (e *CheckError) WithPath(path string) *CheckError {
	e.Path = path
	return e
}

// WithLine sets the line the error refers to.
func (e *CheckError) WithLine(line int) *CheckError {
	e.LineNumber = line
	return e
}

// WithSeverity sets the error severity.
func (e *CheckError) WithSeverity(severity ErrorSeverity) *CheckError {
	e.Severity = severity
	return e
}

// WithOperation sets the operation context.
func (e *CheckError) WithOperation(operation string) *CheckError {
	e.Operation = operation
	return e
}

// IsFatal reports whether the run that produced the error must stop.
func (e *CheckError) IsFatal() bool {
	return e.Severity == ErrorSeverityHigh || e.Severity == ErrorSeverityCritical
}

// Is reports whether err is a *CheckError in the given category.
func Is(err error, category ErrorCategory) bool {
	var ce *CheckError
	return errors.As(err, &ce) && ce.Category == category
}

// TimeoutFromContext creates a timeout error if the context is done.
func TimeoutFromContext(ctx context.Context, operation string) *CheckError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewTimeoutError(fmt.Sprintf("%s exceeded the allowed time", operation), 0).
			WithOperation(operation).
			WithCause(ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		return NewCheckError(ErrorCategoryTimeout, fmt.Sprintf("%s canceled", operation)).
			WithOperation(operation).
			WithSeverity(ErrorSeverityMedium).
			WithCause(ctx.Err())
	}
	return nil
}
