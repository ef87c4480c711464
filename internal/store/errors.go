package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrWriteFailed is returned when a write operation fails, for example
	// because the underlying store is out of capacity or closed.
	ErrWriteFailed = errors.New("write failed")

	// ErrStoreClosed is returned when an operation is attempted against a
	// store that has already been closed.
	ErrStoreClosed = errors.New("store closed")

	// Entity-specific "not found" errors

	// ErrBodyNotFound indicates that no note body is stored for the given
	// (user, topic) key.
	ErrBodyNotFound = fmt.Errorf("%w: note body", ErrNotFound)

	// ErrAudioNotFound indicates that no audio payload is stored for the
	// given topic key.
	ErrAudioNotFound = fmt.Errorf("%w: audio payload", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
