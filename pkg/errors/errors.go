package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies the outcome of a collection request
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeProxy       ErrorType = "proxy"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeServer      ErrorType = "server_error"
	ErrorTypeClient      ErrorType = "client_error"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeExhausted   ErrorType = "exhausted_retries"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a collection error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// RetryAfter is the server-provided backoff hint in seconds.
	// Only set for rate-limited errors.
	RetryAfter int
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable checks if an error type should be retried by the executor.
// Rate-limited responses are deliberately not retryable here: they surface
// to the caller with the retry-after hint so the task scheduler decides.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeProxy, ErrorTypeTimeout, ErrorTypeServer:
		return true
	case ErrorTypeRateLimited, ErrorTypeAuth, ErrorTypeClient, ErrorTypeNotFound, ErrorTypeParsing, ErrorTypeExhausted:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // transport-level failure, no response
		return true
	case 429: // surfaced to the caller, never retried locally
		return false
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// AsError unwraps err into a typed *Error if possible
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// TypeOf returns the classified type of err, or ErrorTypeUnknown for
// errors that did not originate in the executor.
func TypeOf(err error) ErrorType {
	if e, ok := AsError(err); ok {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRateLimited reports whether err is a rate-limited outcome
func IsRateLimited(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimited
}

// IsAuth reports whether err is an authentication failure
func IsAuth(err error) bool {
	return TypeOf(err) == ErrorTypeAuth
}

// IsProxy reports whether err is a proxy-connection failure
func IsProxy(err error) bool {
	return TypeOf(err) == ErrorTypeProxy
}

// RetryAfterSeconds returns the server backoff hint carried by a
// rate-limited error, 0 otherwise.
func RetryAfterSeconds(err error) int {
	if e, ok := AsError(err); ok {
		return e.RetryAfter
	}
	return 0
}
