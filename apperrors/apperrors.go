// Package apperrors defines the error taxonomy shared by the lifecycle
// engine and the HTTP layer. Callers classify failures with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown tracking id, organization or worker.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation that is not legal in the
	// report's current lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrForbidden marks an actor without standing: an unapproved
	// organization or a worker from a different organization.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks a lost race on accept. The report is already
	// taken; retrying against the same report is pointless.
	ErrConflict = errors.New("conflict")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// InvalidStatef wraps ErrInvalidState with a formatted message.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidState}, args...)...)
}

// Forbiddenf wraps ErrForbidden with a formatted message.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
