package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the gateway.
type ErrorCode string

// Request and routing error codes
const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrDuplicateBuiltin ErrorCode = "DUPLICATE_BUILTIN"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Provider error codes
const (
	ErrConfig          ErrorCode = "CONFIG_ERROR"
	ErrProviderNetwork ErrorCode = "PROVIDER_NETWORK_ERROR"
	ErrParse           ErrorCode = "PARSE_ERROR"
)

// Executor error codes
const (
	ErrExecutor ErrorCode = "EXECUTOR_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	// UpstreamStatus is the status returned by the provider, if any.
	UpstreamStatus int `json:"upstream_status,omitempty"`
	// RawResponse keeps the untouched model output for diagnostics.
	RawResponse string `json:"raw_response,omitempty"`
	Cause       error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider id.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithUpstreamStatus records the upstream HTTP status.
func (e *Error) WithUpstreamStatus(status int) *Error {
	e.UpstreamStatus = status
	return e
}

// WithRawResponse attaches the raw model output.
func (e *Error) WithRawResponse(raw string) *Error {
	e.RawResponse = raw
	return e
}

// AsError extracts a *Error from anywhere in the error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// =============================================================================
// 常用错误构造
// =============================================================================

// NewInvalidRequestError builds an InputError.
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message)
}

// NewConfigError reports a provider that cannot be called as configured.
func NewConfigError(provider, message string) *Error {
	return NewError(ErrConfig, message).WithProvider(provider)
}

// NewProviderNetworkError reports a transport failure or non-success status.
func NewProviderNetworkError(provider string, status int, detail string) *Error {
	return NewError(ErrProviderNetwork, detail).
		WithProvider(provider).
		WithUpstreamStatus(status).
		WithRetryable(status == 0 || status >= 500 || status == 429)
}

// NewParseError reports model output that could not be reduced to an action list.
func NewParseError(provider, message, raw string) *Error {
	return NewError(ErrParse, message).WithProvider(provider).WithRawResponse(raw)
}
