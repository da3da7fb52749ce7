package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing configuration")

	// Reference data errors
	ErrReferenceDataLoad = errors.New("failed to load reference data")
	ErrSourceNotFound    = errors.New("reference source not found")
	ErrSourceClosed      = errors.New("reference source closed")

	// Evaluation errors
	ErrInvariantViolation = errors.New("internal consistency violated")
	ErrDimensionMismatch  = errors.New("dimension mismatch")

	// Internal errors
	ErrInternal       = errors.New("internal error")
	ErrNotImplemented = errors.New("not implemented")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeLoad          ErrorType = "load"
	ErrorTypeInvariant     ErrorType = "invariant"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target. Besides another AppError with the
// same type and code, the package sentinels match every error of their category.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrInvalidConfiguration:
		return e.Type == ErrorTypeConfiguration
	case ErrReferenceDataLoad:
		return e.Type == ErrorTypeLoad
	case ErrInvariantViolation:
		return e.Type == ErrorTypeInvariant
	}
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewConfigurationError creates a configuration error. Configuration errors are
// detected at initialization and are fatal for the run.
func NewConfigurationError(code, message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, code, message)
}

// NewInvariantViolation creates an internal-consistency error. It is never
// recovered from: the evaluation that raised it must be aborted.
func NewInvariantViolation(code, message string) *AppError {
	return NewAppError(ErrorTypeInvariant, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, CodeInternalError, message)
}

// IsConfigurationError reports whether err is a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsLoadError reports whether err is a reference data load error
func IsLoadError(err error) bool {
	return errors.Is(err, ErrReferenceDataLoad)
}

// IsInvariantViolation reports whether err is an internal-consistency error
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// Error codes for different error scenarios
const (
	// Configuration error codes
	CodeInvalidGameParameter = "INVALID_GAME_PARAMETER"
	CodeInvalidGSFactor      = "INVALID_GS_FACTOR"
	CodeInvalidAttackerModel = "INVALID_ATTACKER_MODEL"
	CodeInvalidFieldOrder    = "INVALID_FIELD_ORDER"
	CodeMissingSubset        = "MISSING_SUBSET"
	CodeMissingCensus        = "MISSING_CENSUS"
	CodeInvalidDomain        = "INVALID_DOMAIN"
	CodeInvalidSource        = "INVALID_SOURCE"
	CodeInvalidLogging       = "INVALID_LOGGING"

	// Load error codes
	CodeMalformedRow     = "MALFORMED_ROW"
	CodeUnknownDimension = "UNKNOWN_DIMENSION"
	CodeUnknownID        = "UNKNOWN_ID"
	CodeDuplicateEntry   = "DUPLICATE_ENTRY"
	CodeReadFailed       = "READ_FAILED"
	CodeEmptyHierarchy   = "EMPTY_HIERARCHY"

	// Invariant error codes
	CodeCensusRiskExceeded = "CENSUS_RISK_EXCEEDED"
	CodeAbsentPopulation   = "ABSENT_FROM_POPULATION"
	CodeKeyOutOfDomain     = "KEY_OUT_OF_DOMAIN"

	// Storage error codes
	CodeNotConnected     = "NOT_CONNECTED"
	CodeObjectNotFound   = "OBJECT_NOT_FOUND"
	CodeConnectionFailed = "CONNECTION_FAILED"

	// Internal error codes
	CodeInternalError = "INTERNAL_ERROR"
)
