// Package apperr holds the error taxonomy shared by every layer. Package level
// sentinels are built on top of one of the roots below so the HTTP edge can map
// them with errors.Is without knowing where they came from.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInventoryConflict = errors.New("insufficient inventory")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRateLimited       = errors.New("too many requests")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with its own message that still matches kind under errors.Is.
func New(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

func Newf(kind error, format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: kind}
}

// Validation is shorthand for Newf(ErrValidation, ...).
func Validation(format string, args ...any) error {
	return Newf(ErrValidation, format, args...)
}
