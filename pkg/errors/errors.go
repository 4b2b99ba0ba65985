// Package errors provides structured error types for the infographics module.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and library callers
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes fall into three classes:
//   - CONFIGURATION: no usable GIS session, or no geoenrichment endpoint
//   - INVALID_*: input validation failures, raised before any network call
//   - NETWORK_ERROR, UNAUTHORIZED, NOT_FOUND: upstream failures, returned as-is
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidCountry, "country %q is not available", iso2)
//	if errors.Is(err, errors.ErrCodeInvalidCountry) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeConfiguration Code = "CONFIGURATION"

	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidCountry   Code = "INVALID_COUNTRY"
	ErrCodeInvalidHierarchy Code = "INVALID_HIERARCHY"
	ErrCodeInvalidGeometry  Code = "INVALID_GEOMETRY"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Authentication errors
	ErrCodeUnauthorized   Code = "UNAUTHORIZED"
	ErrCodeSessionExpired Code = "SESSION_EXPIRED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsValidation reports whether err carries one of the INVALID_* codes.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidCountry, ErrCodeInvalidHierarchy,
		ErrCodeInvalidGeometry, ErrCodeInvalidFormat, ErrCodeInvalidPath:
		return true
	}
	return false
}

// ServiceError is the error envelope the ArcGIS REST API returns, frequently
// with an HTTP 200 status.
type ServiceError struct {
	StatusCode int      // HTTP status code, or the envelope's code when the status was 200
	Message    string   // Message reported by the service
	Details    []string // Additional detail lines (may be empty)
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("service error %d: %s (%v)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

// Code maps the service status onto an error code.
func (e *ServiceError) Code() Code {
	switch e.StatusCode {
	case 401, 403, 498, 499:
		return ErrCodeUnauthorized
	case 404:
		return ErrCodeNotFound
	default:
		return ErrCodeNetwork
	}
}
