// Package errors provides standardized error handling for the log service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can react without parsing messages.
type Kind string

const (
	KindValidationFailed Kind = "VALIDATION_FAILED" // Submitted log rejected by the validator
	KindInvalidInput     Kind = "INVALID_INPUT"     // Malformed filter or argument
	KindNotFound         Kind = "NOT_FOUND"         // Requested resource does not exist
	KindSearchFailed     Kind = "SEARCH_FAILED"     // Filtered search could not complete
	KindStoreFailed      Kind = "STORE_FAILED"      // Persistence or cache operation failed
)

// Error is the error type returned across the service boundary. Message is
// safe to show to callers; the wrapped cause is for logs only.
type Error struct {
	Kind       Kind        `json:"kind"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	HTTPStatus int         `json:"-"`

	cause error
}

// New creates a new Error with the specified kind and message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatusForKind(kind),
	}
}

// NewWithDetails creates a new Error carrying structured details, such as
// the validator's violation list.
func NewWithDetails(kind Kind, message string, details interface{}) *Error {
	e := New(kind, message)
	e.Details = details
	return e
}

// Wrap creates a new Error whose cause is retained for errors.Is/As chains
// and logging but never rendered into Message.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause to the errors package.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the wrapped cause, or nil.
func (e *Error) Cause() error {
	return e.cause
}

// KindOf returns the kind of err if it is (or wraps) an *Error, and ""
// otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// httpStatusForKind maps error kinds to HTTP status codes for callers that
// serve these errors over HTTP.
func httpStatusForKind(kind Kind) int {
	switch kind {
	case KindValidationFailed, KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindSearchFailed, KindStoreFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
