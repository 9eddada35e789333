// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these values; only the HTTP handlers and the CLI
// translate them into status codes or exit messages. Match them with
// errors.Is against the sentinels, or errors.As for the message and field.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinels. Every *AppError unwraps to exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrMalformed    = errors.New("malformed import data")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError carries a client-safe message next to its sentinel.
type AppError struct {
	Err     error
	Message string
	Field   string // set for validation errors: the offending input field
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is also returned for records owned by another user, so callers
// cannot probe for foreign ids.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

// Malformed reports an import payload that is not a record list or a single
// record. The whole import is rejected; nothing is accepted.
func Malformed(reason string) *AppError {
	return &AppError{
		Err:     ErrMalformed,
		Message: "import data is malformed: " + reason,
	}
}

// Conflict reports a uniqueness violation, such as an email already in use.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

// Unauthorized is returned for bad credentials and invalid sessions.
func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}
