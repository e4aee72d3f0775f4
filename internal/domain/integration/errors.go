package integration

import (
	"errors"
	"fmt"
)

// Domain errors for the integration context
var (
	// ErrStorageUnavailable is matched by every StorageError; callers may retry
	ErrStorageUnavailable = errors.New("integration: sync result storage unavailable")
	// ErrUnknownAction is returned when a trigger names an action the bridge does not support
	ErrUnknownAction = errors.New("integration: unknown trigger action")
	// ErrInvalidTriggerRequest is returned for malformed trigger requests
	ErrInvalidTriggerRequest = errors.New("integration: invalid trigger request")
)

// StorageError is returned by the result store when its medium cannot be used.
// It is the only persistence failure the sync path treats as expected.
type StorageError struct {
	// Op is the store operation that failed (init, append, list)
	Op string
	// Err is the underlying driver error
	Err error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("integration: sync result storage %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the driver error to errors.Is/As
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// NewStorageError wraps a driver error for the given store operation
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is, or wraps, a StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
