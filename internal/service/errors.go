// Package service holds the storefront's business rules: the authorization
// gate, entity lifecycle rules for categories, products and reviews, and
// the rating aggregator.  Failures are reported as *Error values whose Kind
// is one of the sentinel errors below; match them with errors.Is.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidReference = errors.New("invalid reference")
	ErrValidation       = errors.New("validation failed")
)

// Error is a domain failure with a message safe to show to the caller.
type Error struct {
	Kind    error
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(msg string, cause error) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg, cause: cause}
}

func notFound(what string) *Error { return newError(ErrNotFound, "%s not found", what) }
func invalidRef(what string) *Error { return newError(ErrInvalidReference, "%s not found or inactive", what) }
func validation(format string, args ...interface{}) *Error {
	return newError(ErrValidation, format, args...)
}
