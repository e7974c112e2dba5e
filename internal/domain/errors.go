package domain

import "errors"

// Sentinel errors shared across the store, services, and handlers. Wrap
// with fmt.Errorf("...: %w", err) to add context; match with errors.Is.
var (
	// ErrValidation marks a rejected mutation: a required field is missing
	// or a uniqueness constraint would be violated. The snapshot is left
	// unchanged.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a mutation referencing an absent entity. Treated as
	// a no-op with a signal, never a crash.
	ErrNotFound = errors.New("not found")

	// ErrUserNotFound is the login failure for an unknown or inactive
	// employee id.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredential is the login failure for a wrong password.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrPersistence marks a failed durable write. Non-fatal: the in-memory
	// snapshot has already advanced and the session continues.
	ErrPersistence = errors.New("persistence failed")
)
