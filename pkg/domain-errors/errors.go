// Package domainerrors provides the closed error taxonomy shared across the
// module. Services classify provider and storage failures into these codes at
// their boundary; transports translate codes into status codes at the edge.
//
// Usage:
//
//	return dErrors.New(dErrors.CodeWrongPassword, "wrong password")
//	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
//	if dErrors.HasCode(err, dErrors.CodeAccountNotFound) { ... }
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a stable, user-displayable error category.
type Code string

const (
	// Provider-originated authentication failures.
	CodeAccountNotFound   Code = "account_not_found"
	CodeWrongPassword     Code = "wrong_password"
	CodeInvalidCredential Code = "invalid_credential"
	CodeEmailInUse        Code = "email_in_use"
	CodeWeakPassword      Code = "weak_password"
	CodeInvalidEmail      Code = "invalid_email"
	CodeTooManyAttempts   Code = "too_many_attempts"
	CodePopupClosed       Code = "popup_closed"

	// CodeUnknown wraps an unclassified provider failure; the raw message is
	// preserved on the error for diagnostics without widening the taxonomy.
	CodeUnknown Code = "unknown"

	// Session and request-level failures.
	CodeNoActiveSession Code = "no_active_session"
	CodeConflict        Code = "conflict"
	CodeInvalidInput    Code = "invalid_input"
	CodeValidation      Code = "validation"
	CodeNotFound        Code = "not_found"
	CodeUnauthorized    Code = "unauthorized"
	CodeInternal        Code = "internal"
)

// Error carries a taxonomy code, a display message, and an optional cause.
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

// Is makes errors.Is match two taxonomy errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New constructs a taxonomy error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a taxonomy error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a taxonomy code and message to an underlying error.
// Wrapping nil returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the taxonomy code from err, defaulting to CodeUnknown for
// errors that never passed through classification.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MessageOf extracts the display message, falling back to the raw error text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
