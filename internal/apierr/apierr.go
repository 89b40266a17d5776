// Package apierr defines the client-visible error taxonomy of the functions.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the error category.
type Code string

// Validation-class codes are detected before any side effect and answered
// with a descriptive client error.
const (
	CodeMissingBody       Code = "MISSING_BODY"
	CodeInvalidFiles      Code = "INVALID_FILES"
	CodeInvalidFields     Code = "INVALID_FIELDS"
	CodeUnknownSpecies    Code = "UNKNOWN_SPECIES"
	CodeUnknownState      Code = "UNKNOWN_STATE"
	CodeUnknownBadState   Code = "UNKNOWN_BAD_STATE"
	CodeInconsistentState Code = "INCONSISTENT_STATE"
	CodeMissingBadState   Code = "MISSING_BAD_STATE"

	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeConflict     Code = "CONFLICT"
)

// Infrastructure-class codes. Callers never see them; they only tag logs.
const (
	CodeGeocodeFailure Code = "GEOCODE_FAILURE"
	CodeStoreFailure   Code = "STORE_FAILURE"
)

// Error is a categorized failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap tags err with an infrastructure code.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsClient reports whether err should be shown to the caller verbatim.
func IsClient(err error) bool {
	return Status(err) < http.StatusInternalServerError
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch CodeOf(err) {
	case CodeMissingBody, CodeInvalidFiles, CodeInvalidFields,
		CodeUnknownSpecies, CodeUnknownState, CodeUnknownBadState,
		CodeInconsistentState, CodeMissingBadState:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *Error
	if IsClient(err) && errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
