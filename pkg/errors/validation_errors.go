package errors

import (
	"fmt"
	"strings"
)

// FieldError describes one rejected configuration field
type FieldError struct {
	Field    string      `json:"field"`
	Value    interface{} `json:"value,omitempty"`
	Expected string      `json:"expected,omitempty"`
	Code     string      `json:"code"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s=%v (expected %s)", f.Field, f.Value, f.Expected)
}

// ValidationErrors collects field errors so that a configuration can report every
// problem at once instead of failing on the first one.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationErrors creates an empty collector
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]FieldError, 0)}
}

// Add records a field error
func (ve *ValidationErrors) Add(field, code, expected string, value interface{}) {
	ve.Errors = append(ve.Errors, FieldError{
		Field:    field,
		Value:    value,
		Expected: expected,
		Code:     code,
	})
}

// HasErrors checks if there are any field errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Err returns nil when no field was rejected, and a configuration error listing
// every rejected field otherwise. The code of the first rejection is used.
func (ve *ValidationErrors) Err() error {
	if !ve.HasErrors() {
		return nil
	}
	parts := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		parts = append(parts, fe.String())
	}
	err := NewConfigurationError(ve.Errors[0].Code, "configuration rejected").
		WithDetails(strings.Join(parts, "; "))
	for _, fe := range ve.Errors {
		err.WithContext(fe.Field, fe.Value)
	}
	return err
}
