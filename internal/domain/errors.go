package domain

import (
	"fmt"
	"time"
)

// PipelineError represents a standardized error response
type PipelineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrExternalAPI    = "EXTERNAL_API_ERROR"
	ErrClassification = "CLASSIFICATION_ERROR"
	ErrTemplate       = "TEMPLATE_ERROR"
	ErrGeneration     = "GENERATION_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ExternalAPIError wraps a failure of one of the AI services with the
// service name for logging and error responses.
type ExternalAPIError struct {
	Service string
	Err     error
}

// Error implements the error interface
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s service error: %v", e.Service, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ExternalAPIError) Unwrap() error {
	return e.Err
}

// NewExternalAPIError creates a new ExternalAPIError
func NewExternalAPIError(service string, err error) *ExternalAPIError {
	return &ExternalAPIError{Service: service, Err: err}
}

// NewPipelineError creates a new PipelineError with timestamp
func NewPipelineError(code, message, details, requestID string) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
