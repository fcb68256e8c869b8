package model

import (
	"fmt"
	"strings"
)

// ProviderError reports that no text provider produced text for a
// document. Tried lists the providers attempted, in order; it is empty
// when none supports MimeType.
type ProviderError struct {
	MimeType string
	Tried    []string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("text extraction for %s: %s", e.MimeType, e.Message)
	if len(e.Tried) > 0 {
		msg += " (tried " + strings.Join(e.Tried, ", ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Unsupported reports whether no provider accepted the MIME type
func (e *ProviderError) Unsupported() bool {
	return len(e.Tried) == 0
}

// NewProviderError creates a new provider error
func NewProviderError(mimeType, message string, tried []string, cause error) *ProviderError {
	return &ProviderError{
		MimeType: mimeType,
		Tried:    tried,
		Message:  message,
		Cause:    cause,
	}
}

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// ExtractionError represents failures of the stages around the engine
// (text extraction, summarizing, persistence)
type ExtractionError struct {
	Method  string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed [%s]: %s (%v)", e.Method, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed [%s]: %s", e.Method, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// NewExtractionError creates a new extraction error
func NewExtractionError(method, message string, cause error) *ExtractionError {
	return &ExtractionError{
		Method:  method,
		Message: message,
		Cause:   cause,
	}
}
