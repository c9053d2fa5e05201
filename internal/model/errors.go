package model

import "errors"

// Domain error taxonomy. Operations fail closed on missing references
// with ErrNotFound; all other preconditions are caller-side validation.
var (
	// ErrNotFound indicates a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail indicates a registration conflict on email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials indicates an authentication failure. It is
	// deliberately uninformative: a wrong password and a not-yet-approved
	// account produce the same error, so login attempts cannot probe
	// account state.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
