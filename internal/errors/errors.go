// Package errors defines the structured error codes used across the
// pipeline. Only unreadable input and invalid parameters are hard
// failures; data-quality gaps are represented as nulls or absent results
// and never surface as errors.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline error.
type Code string

const (
	// CodeMalformedInput covers unreadable or unrecognizable input files.
	CodeMalformedInput Code = "MALFORMED_INPUT"
	// CodeInvalidParameter covers parameter validation failures, rejected
	// before any computation begins.
	CodeInvalidParameter Code = "INVALID_PARAMETER"
	// CodeInsufficientData marks a diagnostic, not a failure: callers
	// treat the result as absent.
	CodeInsufficientData Code = "INSUFFICIENT_DATA"
	// CodeExport covers failures writing derived tables.
	CodeExport Code = "EXPORT_FAILED"
)

// PipelineError is a coded error with optional detail context.
type PipelineError struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) *PipelineError {
	return &PipelineError{Code: code, Message: message}
}

// Wrap creates a coded error around a cause.
func Wrap(code Code, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Err: err}
}

// NewMalformedInput creates a malformed-input error.
func NewMalformedInput(message string, err error) *PipelineError {
	return Wrap(CodeMalformedInput, message, err)
}

// NewInvalidParameter creates a parameter-validation error.
func NewInvalidParameter(message string) *PipelineError {
	return New(CodeInvalidParameter, message)
}

// NewExport creates an export error.
func NewExport(message string, err error) *PipelineError {
	return Wrap(CodeExport, message, err)
}

// CodeOf returns the code of err, or the empty code for uncoded errors.
func CodeOf(err error) Code {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
