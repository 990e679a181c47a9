// Package apperr defines the error kinds the HTTP boundary maps to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Error carries a client-facing message alongside its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error { return newf(ErrValidation, format, args...) }
func Forbidden(format string, args ...interface{}) error  { return newf(ErrForbidden, format, args...) }
func NotFound(format string, args ...interface{}) error   { return newf(ErrNotFound, format, args...) }
func Conflict(format string, args ...interface{}) error   { return newf(ErrConflict, format, args...) }

// Status returns the HTTP status for err; unclassified errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for a classified error, or "" for unclassified ones.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	for _, k := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return err.Error()
		}
	}
	return ""
}
