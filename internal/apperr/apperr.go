// Package apperr defines the error kinds shared across nestwire packages.
//
// Package-level sentinels wrap exactly one kind so callers can branch on
// the kind without knowing which package produced the error:
//
//	var ErrDeviceNotFound = fmt.Errorf("device: %w", apperr.ErrNotFound)
//
//	if errors.Is(err, apperr.ErrNotFound) {
//	    // reject the request, do not retry
//	}
package apperr

import "errors"

var (
	// ErrNotFound marks an absent house, room, device, endpoint or schedule.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an access-control failure.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation marks a malformed request or undecodable payload.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a write that collides with existing state.
	ErrConflict = errors.New("conflict")

	// ErrTransient marks broker or storage unavailability.
	ErrTransient = errors.New("transient I/O failure")
)

// Kind codes, matching the codes an HTTP layer would put on the wire.
const (
	CodeNotFound   = "not_found"
	CodeForbidden  = "forbidden"
	CodeValidation = "validation_error"
	CodeConflict   = "conflict"
	CodeTransient  = "unavailable"
	CodeInternal   = "internal_error"
)

// Code returns the kind code for err, or CodeInternal for unclassified errors.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrTransient):
		return CodeTransient
	default:
		return CodeInternal
	}
}

// Retryable reports whether repeating the operation could succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Transient wraps err as ErrTransient, keeping err in the chain.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() []error { return []error{ErrTransient, e.err} }
