package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// AppError carries a kind (one of the sentinels above), a client-safe message and an optional cause.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func New(kind error, msg string, err error) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *AppError {
	return New(ErrValidation, msg, nil)
}

func NotFound(resource string) *AppError {
	return New(ErrNotFound, resource+" not found", nil)
}

func Unauthorized(msg string) *AppError {
	return New(ErrUnauthorized, msg, nil)
}

func Conflict(msg string) *AppError {
	return New(ErrConflict, msg, nil)
}

func Internal(msg string, err error) *AppError {
	return New(ErrInternal, msg, err)
}

// Status maps an error to its HTTP status. Unknown errors are internal.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Message returns the text that may be shown to a client.
func Message(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && !errors.Is(ae.Kind, ErrInternal) {
		return ae.Message
	}
	return "internal server error"
}
