// Package errors provides structured error types for the Keyline
// harness. All errors include a category, code, message, and retryable
// flag for consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by harness component.
type ErrorCategory string

const (
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategoryWorkload ErrorCategory = "WORKLOAD"
	ErrCategoryTrace    ErrorCategory = "TRACE"
	ErrCategoryDatabase ErrorCategory = "DATABASE"
	ErrCategorySession  ErrorCategory = "SESSION"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeUnknownBackend  = "UNKNOWN_BACKEND"
	CodeMissingArgument = "MISSING_ARGUMENT"

	// Workload codes
	CodeDatasetNotSet    = "DATASET_NOT_SET"
	CodeTooManyProducers = "TOO_MANY_PRODUCERS"

	// Trace codes
	CodeCorruptTrace = "CORRUPT_TRACE"

	// Database codes
	CodeInitFailed     = "INIT_FAILED"
	CodeBulkLoadFailed = "BULK_LOAD_FAILED"
	CodeShutdownFailed = "SHUTDOWN_FAILED"
	CodeUnreachable    = "UNREACHABLE"

	// Session codes
	CodeRunFailed = "RUN_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// KeylineError is the structured error type used throughout the
// harness.
type KeylineError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *KeylineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *KeylineError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *KeylineError) Is(target error) bool {
	var t *KeylineError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new KeylineError.
func New(category ErrorCategory, code, message string) *KeylineError {
	return &KeylineError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new KeylineError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *KeylineError {
	return &KeylineError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *KeylineError) WithDetails(details map[string]interface{}) *KeylineError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ke *KeylineError
	if errors.As(err, &ke) {
		return ke.Retryable
	}
	return false
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryDatabase && code == CodeUnreachable:
		return true
	case category == ErrCategoryDatabase && code == CodeBulkLoadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *KeylineError {
	return New(ErrCategoryConfig, code, message)
}

func NewWorkloadError(code, message string) *KeylineError {
	return New(ErrCategoryWorkload, code, message)
}

func NewTraceError(message string, cause error) *KeylineError {
	return Wrap(ErrCategoryTrace, CodeCorruptTrace, message, cause)
}

func NewDatabaseError(code, message string, cause error) *KeylineError {
	return Wrap(ErrCategoryDatabase, code, message, cause)
}

func NewSessionError(message string, cause error) *KeylineError {
	return Wrap(ErrCategorySession, CodeRunFailed, message, cause)
}

func NewInternalError(message string, cause error) *KeylineError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
