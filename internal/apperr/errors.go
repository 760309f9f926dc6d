// Package apperr defines the typed error codes surfaced by the request
// lifecycle service. Callers branch on the code, never on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for HTTP mapping.
type Code string

const (
	// ErrCodeNotFound: the referenced request does not exist.
	ErrCodeNotFound Code = "NOT_FOUND"
	// ErrCodeUnauthorized: the actor lacks the required capability for the
	// operation at the request's current status.
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	// ErrCodeInvalidTransition: the operation is not defined for the
	// request's current status, independent of who asks.
	ErrCodeInvalidTransition Code = "INVALID_TRANSITION"
	// ErrCodeConflict: an optimistic concurrency precondition failed; the
	// request changed between read and conditional write.
	ErrCodeConflict Code = "CONFLICT"
	// ErrCodeValidation: a required field is missing or malformed.
	ErrCodeValidation Code = "VALIDATION"
	// ErrCodeInternal: the underlying store or a dependency failed.
	ErrCodeInternal Code = "INTERNAL"
)

// Error carries a code, a caller-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound creates a NOT_FOUND error for a resource id.
func NotFound(resource, id string) *Error {
	return Newf(ErrCodeNotFound, "%s '%s' not found", resource, id)
}

// InvalidInput creates a VALIDATION error for a named field.
func InvalidInput(field, message string) *Error {
	return Newf(ErrCodeValidation, "%s: %s", field, message)
}

// Unauthorized creates an UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Conflict creates a CONFLICT error.
func Conflict(message string) *Error {
	return New(ErrCodeConflict, message)
}

// CodeOf extracts the code from an error chain. Unclassified errors map to
// ErrCodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// MessageOf returns the caller-facing message, falling back to Error().
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the HTTP status the API layer responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeInvalidTransition, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
