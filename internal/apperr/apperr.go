package apperr

import (
	"errors"
	"fmt"
)

// Error kinds surfaced on the wire. Every error leaving a component is one
// of these, optionally wrapped with detail.
var (
	ErrValidation      = errors.New("VALIDATION_ERROR")
	ErrUnauthenticated = errors.New("UNAUTHENTICATED")
	ErrForbidden       = errors.New("FORBIDDEN")
	ErrNotFound        = errors.New("NOT_FOUND")
	ErrConflict        = errors.New("CONFLICT")
	ErrRateLimited     = errors.New("RATE_LIMITED")
	ErrBackpressure    = errors.New("BACKPRESSURE")
	ErrInternal        = errors.New("INTERNAL")
	ErrTimeout         = errors.New("TIMEOUT")
)

// Validation wraps a detail message into a VALIDATION_ERROR.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Code returns the wire code for err, defaulting to INTERNAL for
// unclassified errors.
func Code(err error) string {
	for _, kind := range []error{
		ErrValidation, ErrUnauthenticated, ErrForbidden, ErrNotFound,
		ErrConflict, ErrRateLimited, ErrBackpressure, ErrTimeout, ErrInternal,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrInternal.Error()
}
