// Package apperr defines the error kinds surfaced by the practice services and
// the HTTP status each kind maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindService      Kind = "service"
	KindProcessing   Kind = "processing"
)

// Error is the error type returned across service boundaries.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NotFound reports a missing session, persona, recording or user.
func NotFound(resource string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Forbidden reports an owner mismatch.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message, Status: http.StatusForbidden}
}

// Validation reports a missing or malformed request field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field, Status: http.StatusBadRequest}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message, Status: http.StatusUnauthorized}
}

// Conflict reports a uniqueness violation such as a duplicate email.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Status: http.StatusConflict}
}

// Service wraps a collaborator failure. The message carries the cause.
func Service(operation string, cause error) *Error {
	msg := operation
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", operation, cause)
	}
	return &Error{Kind: KindService, Message: msg, Status: http.StatusInternalServerError, Cause: cause}
}

// Processing reports a failed transcription or analysis stage.
func Processing(cause error) *Error {
	return &Error{
		Kind:    KindProcessing,
		Message: fmt.Sprintf("failed to process recording: %v", cause),
		Status:  http.StatusInternalServerError,
		Cause:   cause,
	}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// StatusOf returns the HTTP status for err, 500 when err is not an *Error.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
