package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application. The field-specific
// sentinels all wrap ErrValidation so callers can match the whole class
// with a single errors.Is check.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrTopicIDEmpty is returned when a topic ID is empty.
	ErrTopicIDEmpty = fmt.Errorf("%w: topic ID cannot be empty", ErrValidation)

	// ErrTopicNameEmpty is returned when a topic name is empty.
	ErrTopicNameEmpty = fmt.Errorf("%w: topic name cannot be empty", ErrValidation)

	// ErrSubjectIDEmpty is returned when a subject ID is empty.
	ErrSubjectIDEmpty = fmt.Errorf("%w: subject ID cannot be empty", ErrValidation)

	// ErrSubjectNameEmpty is returned when a subject name is empty.
	ErrSubjectNameEmpty = fmt.Errorf("%w: subject name cannot be empty", ErrValidation)

	// ErrNegativeMinutes is returned when a focus log carries a negative duration.
	ErrNegativeMinutes = fmt.Errorf("%w: focus minutes cannot be negative", ErrValidation)
)

// ValidationError wraps a field-level validation failure with enough context
// to report it to callers without losing the underlying sentinel.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
