// Package apperrors defines the error kinds shared by the realtime gateway,
// the domain services and the HTTP handlers.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrAuthentication = errors.New("authentication error")
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrValidation     = errors.New("validation error")
	ErrInternal       = errors.New("internal error")
)

// Error carries a kind and a message that is safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// PublicMessage returns the client-facing text for err. Only errors of a
// known kind expose their message; everything else collapses to fallback.
func PublicMessage(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != ErrInternal && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// HTTPStatus maps an error to the response status used by the REST handlers.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
