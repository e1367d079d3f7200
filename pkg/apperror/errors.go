// Package apperror defines the client error taxonomy and maps arbitrary errors to
// the categories shown on the error surface.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the taxonomy of failures the client distinguishes
type Kind int

// Error kinds
const (
	KindUnknown Kind = iota
	KindAuthRequired
	KindBackendUnavailable
	KindValidation
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "AuthRequired"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindValidation:
		return "ValidationFailure"
	case KindNotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// Error is the typed error returned at the API boundary
type Error struct {
	Kind       Kind
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrAuthRequired       = &Error{Kind: KindAuthRequired}
	ErrBackendUnavailable = &Error{Kind: KindBackendUnavailable}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotImplemented     = &Error{Kind: KindNotImplemented}
	ErrUnknown            = &Error{Kind: KindUnknown}
)

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// AuthRequired reports an expired, missing or rejected credential
func AuthRequired(status int, message string) *Error {
	return &Error{Kind: KindAuthRequired, StatusCode: status, Message: message}
}

// BackendUnavailable reports an unreachable endpoint or a 404/5xx gateway reply.
// status is 0 when the request never got a response.
func BackendUnavailable(status int, message string, cause error) *Error {
	return &Error{Kind: KindBackendUnavailable, StatusCode: status, Message: message, Err: cause}
}

// Validation reports malformed user input. It is handled locally and never redirected.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotImplemented is returned by deliberately unsupported operations
func NotImplemented(operation string) *Error {
	return &Error{
		Kind:       KindNotImplemented,
		StatusCode: http.StatusNotImplemented,
		Message:    fmt.Sprintf("%s: operation not supported", operation),
	}
}

// Unknown reports any other failure, carrying the HTTP status when there was one
func Unknown(status int, message string) *Error {
	return &Error{Kind: KindUnknown, StatusCode: status, Message: message}
}

// StatusCode extracts the HTTP status from err, or 0
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
