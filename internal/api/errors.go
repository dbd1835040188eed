package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a request failure.
type ErrorKind string

// Failure classes, each carrying an HTTP-equivalent status so callers can
// handle every failure uniformly.
const (
	// KindNetwork means the request never reached a server. Status 0.
	KindNetwork ErrorKind = "network"
	// KindTimeout means no response arrived within the configured duration
	// and the request was cancelled. Status 408.
	KindTimeout ErrorKind = "timeout"
	// KindHTTP means the server answered with a non-2xx status. Status is
	// the server's own.
	KindHTTP ErrorKind = "http"
	// KindValidation means a 2xx response failed schema validation, a
	// client/server contract mismatch rather than a transient fault.
	// Reported as status 500 and never retried.
	KindValidation ErrorKind = "validation"
)

// Error is a classified request failure.
type Error struct {
	Err        error
	Kind       ErrorKind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the request could plausibly succeed.
// Network failures, timeouts, and 5xx responses are transient; validation
// errors and 4xx responses are not.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		return e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// NewNetworkError classifies a failure to reach the server.
func NewNetworkError(message string, err error) *Error {
	return &Error{Kind: KindNetwork, StatusCode: 0, Message: message, Err: err}
}

// NewTimeoutError classifies a request that exceeded its deadline.
func NewTimeoutError(message string, err error) *Error {
	return &Error{Kind: KindTimeout, StatusCode: http.StatusRequestTimeout, Message: message, Err: err}
}

// NewHTTPError classifies a non-2xx server response.
func NewHTTPError(statusCode int, message string) *Error {
	return &Error{Kind: KindHTTP, StatusCode: statusCode, Message: message}
}

// NewValidationError classifies a response that failed schema validation.
func NewValidationError(message string, err error) *Error {
	return &Error{Kind: KindValidation, StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// AsError unwraps err to the classified request error, if any.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is a classified request error worth
// retrying. Unclassified errors are not retried.
func IsRetryable(err error) bool {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Retryable()
	}
	return false
}
