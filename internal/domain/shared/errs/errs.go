// Package errs defines the error kinds every sentinel in the domain and
// application layers wraps, so transports can map failures without knowing
// each package's sentinels.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// Kind names the error kind carried by err, or "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

// New builds a sentinel of the given kind. errors.Is matches both the
// sentinel itself and its kind.
func New(kind error, msg string) error {
	return &kinded{kind: kind, msg: msg}
}

type kinded struct {
	kind error
	msg  string
}

func (e *kinded) Error() string { return e.msg }

func (e *kinded) Unwrap() error { return e.kind }

// Wrapf annotates err with context while keeping it matchable.
func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// FromKind rebuilds an error of the named kind, e.g. when replaying a stored
// result. Unknown kinds yield a plain error.
func FromKind(kind, msg string) error {
	switch kind {
	case "validation":
		return New(ErrValidation, msg)
	case "not_found":
		return New(ErrNotFound, msg)
	case "forbidden":
		return New(ErrForbidden, msg)
	case "conflict":
		return New(ErrConflict, msg)
	default:
		return errors.New(msg)
	}
}
