package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the catalogue service.
var (
	// ErrNotReady is returned when a mutation is attempted before activation
	// (load, migrate, reconcile) has completed for the user.
	ErrNotReady = errors.New("catalogue not ready")

	// ErrTopicNotFound is returned when an operation references a topic ID
	// that is not in the catalogue.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrSubjectNotFound is returned when an operation references a subject
	// ID that is not in the catalogue.
	ErrSubjectNotFound = errors.New("subject not found")
)

// CatalogServiceError is a custom error type for catalogue service errors.
type CatalogServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CatalogServiceError.
func (e *CatalogServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalogue service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("catalogue service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CatalogServiceError) Unwrap() error {
	return e.Err
}

// NewCatalogServiceError creates a new CatalogServiceError.
func NewCatalogServiceError(operation, message string, err error) *CatalogServiceError {
	return &CatalogServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
