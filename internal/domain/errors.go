package domain

import "errors"

var (
	// ErrValidation marks input that fails domain validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write rejected by a uniqueness or state constraint.
	ErrConflict = errors.New("conflict")

	// ErrSuppressed is returned by a template's prepare step when the event
	// carried a no-notification flag. It is not a failure: the multiplexer
	// swallows it and the event produces no message.
	ErrSuppressed = errors.New("notification suppressed")
)
