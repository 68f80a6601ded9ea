// Package errors provides structured error types for the cadastral pipeline.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP server
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Configuration validation failures, detected before any
//     geometric work begins
//   - *_NOT_FOUND / *_REQUIRED: Missing-input errors from the layer registry
//   - KERNEL_ERROR: A geometry-kernel operation failed; the original cause
//     is preserved and never substituted
//   - CANCELLED: User-initiated cancellation, distinct from failure
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidBuffer, "buffer distance must be positive, got %g", d)
//	if errors.Is(err, errors.ErrCodeInvalidBuffer) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeKernel, cause, "voronoi tessellation failed")
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors (rejected before any geometric work)
	ErrCodeInvalidCRS    Code = "INVALID_CRS"
	ErrCodeInvalidBuffer Code = "INVALID_BUFFER"
	ErrCodeInvalidArea   Code = "INVALID_AREA"
	ErrCodeInvalidMode   Code = "INVALID_MODE"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"

	// Missing-input errors
	ErrCodeLayerNotFound  Code = "LAYER_NOT_FOUND"
	ErrCodePointsRequired Code = "POINTS_REQUIRED"
	ErrCodeTooFewPoints   Code = "TOO_FEW_POINTS"

	// Processing errors
	ErrCodeKernel      Code = "KERNEL_ERROR"
	ErrCodeCancelled   Code = "CANCELLED"
	ErrCodeWriteFailed Code = "WRITE_FAILED"

	// Server errors
	ErrCodeJobNotFound Code = "JOB_NOT_FOUND"

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
		return e.Message
	}
	return err.Error()
}

// IsConfig reports whether err is a configuration error, i.e. one detected
// during options validation before any geometric work begins.
func IsConfig(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidCRS, ErrCodeInvalidBuffer, ErrCodeInvalidArea, ErrCodeInvalidMode, ErrCodeInvalidInput:
		return true
	}
	return false
}

// IsCancelled reports whether err represents user-initiated cancellation
// rather than a processing failure.
func IsCancelled(err error) bool {
	return Is(err, ErrCodeCancelled) || errors.Is(err, context.Canceled)
}
