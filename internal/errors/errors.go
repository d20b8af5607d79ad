package errors

import (
	"context"
	"errors"
	"fmt"
)

// Codes the client relies on to tell a rejected session from a refused secret
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    "VALIDATION_FAILED",
		Cause:   cause,
	}
}

// NewUnauthorizedError creates an error for missing, expired or invalid credentials
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Code:    CodeUnauthorized,
	}
}

// NewInvalidCredentialsError rejects a username/password or team password.
// The caller's session, if any, stays valid.
func NewInvalidCredentialsError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Code:    CodeInvalidCredentials,
	}
}

// NewForbiddenError creates a new permission error
func NewForbiddenError(operation string, resource string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: fmt.Sprintf("permission denied for %s on %s", operation, resource),
		Code:    "FORBIDDEN",
		Context: map[string]interface{}{
			"operation": operation,
			"resource":  resource,
		},
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string, identifier string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
		Code:    "NOT_FOUND",
		Context: map[string]interface{}{
			"resource":   resource,
			"identifier": identifier,
		},
	}
}

// NewConflictError reports a duplicate unique key
func NewConflictError(resource string, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    "CONFLICT",
		Context: map[string]interface{}{
			"resource": resource,
		},
	}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeDatabase,
		Message: fmt.Sprintf("database operation failed: %s", operation),
		Code:    "DATABASE_ERROR",
		Cause:   cause,
	}
}

// NewNetworkError wraps a transport failure. Timeouts get their own type.
func NewNetworkError(operation string, cause error) *AppError {
	errorType := ErrorTypeNetwork
	code := "NETWORK_ERROR"
	if errors.Is(cause, context.DeadlineExceeded) {
		errorType = ErrorTypeTimeout
		code = "TIMEOUT"
	}
	return &AppError{
		Type:    errorType,
		Message: fmt.Sprintf("request failed: %s", operation),
		Code:    code,
		Cause:   cause,
	}
}

// FromStatus builds the error a client sees for a non-2xx API response.
func FromStatus(status int, code, message string) *AppError {
	errorType := TypeFromStatus(status)
	if code == "" {
		code = errorType.String()
	}
	return &AppError{
		Type:    errorType,
		Message: message,
		Code:    code,
		Context: map[string]interface{}{"status": status},
	}
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsErrorType checks if the error is of the specified type
func IsErrorType(err error, errorType ErrorType) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.IsType(errorType)
	}
	return false
}

// IsRetryable reports whether the failure happened below the API contract
// (timeout or unreachable server) rather than being a definitive answer.
func IsRetryable(err error) bool {
	return IsErrorType(err, ErrorTypeNetwork) || IsErrorType(err, ErrorTypeTimeout)
}

// IsSessionRejected reports whether the server refused the bearer credential
// itself, as opposed to a secret supplied with the request.
func IsSessionRejected(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == ErrorTypeUnauthorized && appErr.Code == CodeUnauthorized
}

// GetUserMessage returns a user-friendly error message
func GetUserMessage(err error) string {
	appErr, ok := AsAppError(err)
	if !ok {
		return "Something went wrong. Please try again."
	}

	switch appErr.Type {
	case ErrorTypeValidation:
		return appErr.Message
	case ErrorTypeUnauthorized:
		if appErr.Code == CodeInvalidCredentials {
			return appErr.Message
		}
		return "Your session has expired. Please log in again."
	case ErrorTypeForbidden:
		return "You do not have permission to do that."
	case ErrorTypeNotFound:
		return "The requested item could not be found."
	case ErrorTypeConflict:
		return fmt.Sprintf("%s. Please choose another value and retry.", appErr.Message)
	case ErrorTypeTimeout, ErrorTypeNetwork:
		return "The server could not be reached. Retry in a moment."
	default:
		return "Something went wrong. Please try again."
	}
}
