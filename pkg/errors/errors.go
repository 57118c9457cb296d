// Package errors provides structured error types for the qbridge engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI, and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The conversion engine distinguishes configuration errors, which surface
// immediately, from step-level conversion failures, which are recovered
// locally by the orchestrator:
//   - UNKNOWN_FORMAT, NO_PATH, CONVERSION_CONFLICT: configuration errors
//   - FORMAT_MISMATCH, STEP_CONVERSION: recoverable within a conversion run
//   - CONVERSION_EXHAUSTED: terminal failure after all candidate paths
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownFormat, "unknown format: %s", name)
//	if errors.Is(err, errors.ErrCodeUnknownFormat) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStepConversion, origErr, "convert %s -> %s", src, dst)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidEdge   Code = "INVALID_EDGE"

	// Graph configuration errors (surfaced immediately)
	ErrCodeUnknownFormat      Code = "UNKNOWN_FORMAT"
	ErrCodeConversionConflict Code = "CONVERSION_CONFLICT"
	ErrCodeNoPath             Code = "NO_PATH"

	// Program inspection errors
	ErrCodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"

	// Step-level conversion errors (recovered by the orchestrator)
	ErrCodeFormatMismatch Code = "FORMAT_MISMATCH"
	ErrCodeStepConversion Code = "STEP_CONVERSION"

	// Terminal conversion failure
	ErrCodeConversionExhausted Code = "CONVERSION_EXHAUSTED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
		return e.Message
	}
	return err.Error()
}

// Recoverable reports whether the error is a step-level conversion failure
// that the orchestrator may recover from by retrying or trying the next
// candidate path. Configuration errors are never recoverable.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeFormatMismatch, ErrCodeStepConversion:
		return true
	}
	return false
}
