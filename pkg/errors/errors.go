package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API or download error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FromStatusCode classifies an unsuccessful HTTP status
func FromStatusCode(code int, message string) *Error {
	errType := ErrorTypeUnknown
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		errType = ErrorTypeAuth
	case code == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case code >= 500:
		errType = ErrorTypeServerError
	}
	return &Error{Type: errType, Message: message, Code: code}
}

// NewNetworkError wraps a transport failure (connection, timeout, broken stream)
func NewNetworkError(message string, err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: message, Err: err}
}

// NewStorageError wraps a local filesystem failure
func NewStorageError(message string, err error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: message, Err: err}
}

// NewParsingError wraps a response decoding failure
func NewParsingError(message string, err error) *Error {
	return &Error{Type: ErrorTypeParsing, Message: message, Err: err}
}

// IsRetryableType checks if an error type should be retried
func IsRetryableType(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a transient failure worth another attempt.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}

	var typed *Error
	if stderrors.As(err, &typed) {
		return IsRetryableType(typed.Type)
	}

	var netErr net.Error
	return stderrors.As(err, &netErr)
}

// IsFatal reports whether err is a failure that another attempt cannot fix,
// such as a rejected API key or a missing resource. Cancellation is not fatal.
func IsFatal(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsRetryable(err)
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}
