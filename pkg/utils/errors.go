package utils

import (
	"fmt"
	"runtime"
)

// AppError represents an application error with context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`

	Cause error `json:"-"`
}

func (e *AppError) Error() string {
	switch {
	case e.Cause != nil && e.Details != "":
		return fmt.Sprintf("%s: %s (%s): %v", e.Code, e.Message, e.Details, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	case e.Details != "":
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError carrying the same code, so the
// kind sentinels below can be matched with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewAppError creates a new application error
func NewAppError(code, message string, details ...string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	err := &AppError{
		Code:    code,
		Message: message,
		File:    file,
		Line:    line,
	}

	if len(details) > 0 {
		err.Details = details[0]
	}

	return err
}

// WrapError creates an application error that keeps cause in its chain
func WrapError(code, message string, cause error) *AppError {
	_, file, line, _ := runtime.Caller(1)

	return &AppError{
		Code:    code,
		Message: message,
		File:    file,
		Line:    line,
		Cause:   cause,
	}
}

// Common error codes
const (
	ErrCodeConnection    = "CONNECTION_ERROR"
	ErrCodeDatabase      = "DATABASE_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	ErrCodeMalformedTuple      = "MALFORMED_TUPLE"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamMalformed   = "UPSTREAM_MALFORMED"
	ErrCodeNotConnected        = "NOT_CONNECTED"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeTransactionFailed   = "TRANSACTION_FAILED"
)

// Error kinds. Match with errors.Is(err, utils.ErrNotConnected).
var (
	ErrNotFound            = &AppError{Code: ErrCodeNotFound}
	ErrMalformedTuple      = &AppError{Code: ErrCodeMalformedTuple}
	ErrUpstreamUnavailable = &AppError{Code: ErrCodeUpstreamUnavailable}
	ErrUpstreamTimeout     = &AppError{Code: ErrCodeUpstreamTimeout}
	ErrUpstreamMalformed   = &AppError{Code: ErrCodeUpstreamMalformed}
	ErrNotConnected        = &AppError{Code: ErrCodeNotConnected}
	ErrInvalidInput        = &AppError{Code: ErrCodeInvalidInput}
	ErrTransactionFailed   = &AppError{Code: ErrCodeTransactionFailed}
)
