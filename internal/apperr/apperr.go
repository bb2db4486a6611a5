// Package apperr holds the error categories shared by every service package.
// Specific errors wrap one of these so callers can match either the specific
// sentinel or its category with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks input the caller must correct (missing reason,
	// non-positive quantity, unknown status).
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an operation on an unknown id, or a restore of a
	// record that is not in the trash.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a request that is well formed but not allowed from
	// the current state.
	ErrConflict = errors.New("conflict")

	// ErrPersistence marks a failed read or write against the external store.
	// The in-memory state is left as it was before the operation.
	ErrPersistence = errors.New("persistence failure")
)

// Persistence tags err as a persistence failure while keeping the cause
// available to errors.Is / errors.As.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &persistenceError{op: op, err: err}
}

type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string {
	return e.op + ": " + ErrPersistence.Error() + ": " + e.err.Error()
}

func (e *persistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.err}
}
