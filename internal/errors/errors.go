package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig     = "CONFIG"
	ErrValidation = "VALIDATION" // local input checks, never reach the gateway
	ErrAuth       = "AUTH"       // reported by the gateway's auth provider
	ErrConnection = "CONNECTION" // realtime channel dropped or failed
	ErrFetch      = "FETCH"      // historical query failed
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrConnection code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrConnection,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var skErr *Error
	if errors.As(err, &skErr) {
		return skErr.Code == code
	}
	return false
}

// Message returns the short, single-line message of a structured error,
// or err.Error() for anything else. TUIs use it for inline error banners.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var skErr *Error
	if errors.As(err, &skErr) {
		return skErr.Message
	}
	return err.Error()
}
