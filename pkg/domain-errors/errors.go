// Package dErrors defines the tagged error type used across domain services.
//
// Errors carry an explicit Code rather than relying on a type hierarchy, so
// callers branch on the kind of failure with HasCode and the transport layer
// translates codes to HTTP statuses in exactly one place.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeNotFound means the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeBadRequest means the input was malformed or failed validation.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidData means external or derived data was unusable
	// (missing risk classification, serialization failure).
	CodeInvalidData Code = "invalid_data"
	// CodeInvalidTransition means the operation is not legal from the
	// entity's current status. Never retried automatically.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeConflict means a uniqueness or concurrency expectation was violated.
	CodeConflict Code = "conflict"
	// CodeUnauthorized means the caller's credentials are missing or invalid.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal covers everything else, including transport failures.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with an explicit code.
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

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for
// untagged errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err, empty for untagged errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
