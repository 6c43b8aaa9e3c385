// README: Error kinds shared by every module; wrap them with %w and test with errors.Is.
package types

import "errors"

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a caller lacking role or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a failed state precondition: duplicate assignment,
	// illegal transition or a lost concurrent write.
	ErrConflict = errors.New("conflict")
)
