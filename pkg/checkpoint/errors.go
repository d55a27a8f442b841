package checkpoint

import (
	"errors"
	"fmt"
)

// Sentinel errors for progress tracking.
var (
	// ErrNotFound is returned by Load when no progress record exists.
	ErrNotFound = errors.New("no progress record")
	// ErrCorrupt is matched by errors from Load when the record cannot be read.
	ErrCorrupt = errors.New("corrupt progress record")
	// ErrMismatch is matched by errors reporting an incompatible record.
	ErrMismatch = errors.New("progress record does not match current run")
	// ErrOutOfOrder is returned when a commit does not advance by exactly one batch.
	ErrOutOfOrder = errors.New("batch committed out of order")
	// ErrInvalidRecord describes a decodable record with impossible values.
	ErrInvalidRecord = errors.New("invalid progress record")
)

// CorruptError reports a progress file that exists but cannot be used.
type CorruptError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt progress record %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrCorrupt and the underlying cause.
func (e *CorruptError) Unwrap() []error {
	return []error{ErrCorrupt, e.Err}
}

// MismatchError reports which recorded parameter differs from the current run.
type MismatchError struct {
	Field    string
	Recorded int
	Current  int
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: %s was %d, now %d", ErrMismatch, e.Field, e.Recorded, e.Current)
}

// Unwrap returns ErrMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}
