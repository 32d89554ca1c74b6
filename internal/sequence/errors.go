package sequence

import (
	"errors"
	"fmt"
)

// ConfigError represents a fatal error detected while setting up a run.
//
// Configuration errors abort sequence construction; no partial ordering or
// cursor is ever returned alongside one. Steady-state per-trial problems
// (out-of-range lookups, reserved-field collisions) are deliberately NOT
// errors — they degrade to absent results or logged warnings so a long
// run is never aborted mid-sequence.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeInvalidMethod indicates an unknown or unsupported ordering method.
	ErrCodeInvalidMethod ConfigErrorCode = "INVALID_METHOD"

	// ErrCodeInvalidCount indicates a negative trial or repetition count.
	ErrCodeInvalidCount ConfigErrorCode = "INVALID_COUNT"

	// ErrCodeMissingSource indicates a randomized method was requested
	// without an injected random source.
	ErrCodeMissingSource ConfigErrorCode = "MISSING_SOURCE"

	// ErrCodeOrderingMismatch indicates an ordering whose trial width does
	// not match the trial set it is paired with.
	ErrCodeOrderingMismatch ConfigErrorCode = "ORDERING_MISMATCH"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if the error is a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// NewMethodError creates a ConfigError for an unsupported ordering method.
func NewMethodError(method string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidMethod,
		Message: fmt.Sprintf("unsupported ordering method %q", method),
	}
}

// NewCountError creates a ConfigError for a malformed count input.
func NewCountError(name string, value int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidCount,
		Message: fmt.Sprintf("%s must be non-negative, got %d", name, value),
		Details: map[string]string{name: fmt.Sprintf("%d", value)},
	}
}

// NewMissingSourceError creates a ConfigError for a nil random source.
func NewMissingSourceError(method Method) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingSource,
		Message: fmt.Sprintf("method %s requires a random source", method),
	}
}

// NewOrderingMismatchError creates a ConfigError for an ordering/set mismatch.
func NewOrderingMismatchError(orderingTrials, setLen int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeOrderingMismatch,
		Message: fmt.Sprintf("ordering is %d trials wide but trial set has %d records", orderingTrials, setLen),
	}
}
