package api

import (
	"fmt"
	"time"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeSerialization      ErrorType = "serialization_error"
	ErrorTypeToolEmbedding      ErrorType = "tool_embedding_error"
	ErrorTypeInvalidRequest     ErrorType = "invalid_request_error"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeForbidden          ErrorType = "forbidden"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
	ErrorTypeRateLimited        ErrorType = "rate_limited"
	ErrorTypeUpstream           ErrorType = "upstream_error"
	ErrorTypeTransport          ErrorType = "transport_error"
	ErrorTypeServerError        ErrorType = "server_error"
)

// APIError represents a structured API error with type, code, param, and message.
//
// Errors that originate at the backend also carry the upstream status code,
// the raw response body, and for rate limiting an optional retry-after hint.
// Those fields never leave the gateway as JSON.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	StatusCode int           `json:"-"`
	Body       string        `json:"-"`
	RetryAfter time.Duration `json:"-"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status: %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.Cause }

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewSerializationError creates an APIError for malformed JSON.
func NewSerializationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeSerialization,
		Message: message,
	}
}

// NewToolEmbeddingError creates an APIError for tool definitions or tool
// messages that cannot be expressed as message content.
func NewToolEmbeddingError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeToolEmbedding,
		Param:   param,
		Message: message,
	}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewUnauthorizedError creates an APIError for a backend 401.
func NewUnauthorizedError(message, body string) *APIError {
	return &APIError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: 401,
		Body:       body,
	}
}

// NewForbiddenError creates an APIError for a backend 403.
func NewForbiddenError(message, body string) *APIError {
	return &APIError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		StatusCode: 403,
		Body:       body,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServiceUnavailableError creates an APIError for a backend 503.
func NewServiceUnavailableError(message, body string) *APIError {
	return &APIError{
		Type:       ErrorTypeServiceUnavailable,
		Message:    message,
		StatusCode: 503,
		Body:       body,
	}
}

// NewRateLimitedError creates an APIError for rate limiting. A zero
// retryAfter means the backend gave no hint.
func NewRateLimitedError(message string, retryAfter time.Duration) *APIError {
	return &APIError{
		Type:       ErrorTypeRateLimited,
		Message:    message,
		StatusCode: 429,
		RetryAfter: retryAfter,
	}
}

// NewUpstreamError creates an APIError for any other backend failure status.
func NewUpstreamError(status int, message, body string) *APIError {
	return &APIError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: status,
		Body:       body,
	}
}

// NewTransportError creates an APIError for connection-level failures.
func NewTransportError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTransport,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}
