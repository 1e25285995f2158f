// Package domainerrors defines code-carrying errors that cross layer
// boundaries. Services return these (or wrap sentinel errors into them) so the
// transport layer can translate codes into HTTP statuses without inspecting
// error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for callers and for HTTP translation.
type Code string

const (
	// CodeInvalidInput marks local validation failures, rejected before any
	// network or store call.
	CodeInvalidInput Code = "invalid_input"

	// CodeUnauthorized marks bad credentials or a missing/expired session.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an authenticated caller without the needed privilege.
	CodeForbidden Code = "forbidden"

	// CodeNotFound marks an absent record.
	CodeNotFound Code = "not_found"

	// CodeUnavailable marks an unreachable or timed-out collaborator.
	CodeUnavailable Code = "unavailable"

	// CodeRateLimited marks a caller sending faster than the endpoint allows.
	CodeRateLimited Code = "rate_limited"

	// CodeInternal marks anything else; logged with full detail, shown to the
	// user generically.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a safe human-readable description, and an optional
// wrapped cause.
type Error struct {
	Code        Code
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with a code and safe description.
func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Wrap attaches a cause to a domain error. The cause is for logs only and is
// never rendered to users.
func Wrap(code Code, description string, cause error) *Error {
	return &Error{Code: code, Description: description, cause: cause}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
