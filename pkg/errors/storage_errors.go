package errors

import (
	"fmt"
)

// LoadError represents a failure to load one of the reference tables. A single
// malformed row fails the whole load.
type LoadError struct {
	*AppError
	Source string `json:"source,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// NewLoadError creates a load error without position information
func NewLoadError(code, message string) *LoadError {
	return &LoadError{AppError: NewAppError(ErrorTypeLoad, code, message)}
}

// NewRowError creates a load error pointing at a 1-based row of a source
func NewRowError(source string, line int, code, message string) *LoadError {
	le := NewLoadError(code, message)
	le.Source = source
	le.Line = line
	return le
}

// WrapLoadError wraps a read or parse failure of a source
func WrapLoadError(err error, source string, line int, code, message string) *LoadError {
	le := NewRowError(source, line, code, message)
	le.Cause = err
	return le
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.Source == "" {
		return e.AppError.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (%s:%d)", e.AppError.Error(), e.Source, e.Line)
	}
	return fmt.Sprintf("%s (%s)", e.AppError.Error(), e.Source)
}

// Unwrap exposes the embedded AppError so that errors.Is and errors.As can see it
func (e *LoadError) Unwrap() error {
	return e.AppError
}

// WrapStorageError wraps a failure of a reference source backend
func WrapStorageError(err error, code, message string) *AppError {
	return WrapError(err, ErrorTypeStorage, code, message)
}
