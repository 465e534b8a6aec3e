// Package apperror defines the error taxonomy exposed at service boundaries.
// Callers receive a kind and a short human-readable message, never raw backend
// errors or stack traces.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.
type Kind int

const (
	// KindUnknown is the zero value for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindValidation marks caller mistakes such as missing required fields.
	KindValidation
	// KindDuplicateEmail marks a signup attempt with an already registered email.
	KindDuplicateEmail
	// KindInvalidCredentials marks a failed login attempt.
	KindInvalidCredentials
	// KindUnauthorized marks a missing or invalid credential.
	KindUnauthorized
	// KindNotFound marks an absent entity or a malformed identifier.
	KindNotFound
	// KindForbidden marks an authenticated caller who does not own the entity.
	KindForbidden
	// KindServer marks an unexpected backend failure.
	KindServer
)

// Error carries the kind and the message surfaced to callers. The wrapped
// cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a caller mistake with the provided message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// DuplicateEmail reports an email address that is already registered.
func DuplicateEmail() *Error {
	return &Error{Kind: KindDuplicateEmail, Message: "Email already registered"}
}

// InvalidCredentials reports a failed email/password check.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NotFound reports an absent entity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Forbidden reports an ownership violation.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Server wraps an unexpected backend failure behind a generic message.
func Server(cause error) *Error {
	return &Error{Kind: KindServer, Message: "Server error", Err: cause}
}

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// MessageOf extracts the caller-facing message from an error chain. Errors
// outside the taxonomy collapse to the generic server message.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Server error"
}
