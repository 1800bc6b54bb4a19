package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "authentication_error"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeBadGateway     ErrorType = "bad_gateway"
)

// Authentication error codes.
const (
	CodeMissingAuthorization       = "missing_authorization"
	CodeInvalidAuthorizationFormat = "invalid_authorization_format"
	CodeInvalidAPIKey              = "invalid_api_key"
)

// APIError represents a structured API error with type, code, and message.
// Field order matches the wire format expected by OpenAI-compatible clients.
type APIError struct {
	Message string    `json:"message"`
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewAuthenticationError creates an APIError for a rejected credential.
func NewAuthenticationError(code, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAuthentication,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
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

// NewBadGatewayError creates an APIError for upstream failures.
func NewBadGatewayError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeBadGateway,
		Message: message,
	}
}
