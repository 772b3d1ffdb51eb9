package domain

import (
	"fmt"
	"time"
)

// Error codes carried in APIError.Code.
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrNotFoundCode   = "NOT_FOUND"
	ErrStorage        = "STORAGE_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrPayloadTooBig  = "PAYLOAD_TOO_LARGE"
)

// APIError is the JSON error body of the HTTP API. RequestID echoes the
// correlation id of the failed request.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates an APIError stamped with the current UTC time.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError reports a single rejected input value. The parser returns
// one per malformed line; the API turns one into a VALIDATION_ERROR body.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ToAPIError maps the validation failure onto a VALIDATION_ERROR body that
// names the offending field. A non-empty value is echoed in Details.
func (e *ValidationError) ToAPIError(requestID string) *APIError {
	apiErr := NewAPIError(ErrValidation, e.Message, "", requestID)
	apiErr.Field = e.Field
	if e.Value != nil {
		if v := fmt.Sprint(e.Value); v != "" {
			apiErr.Details = v
		}
	}
	return apiErr
}
