package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeSkip marks an unmet precondition. The check is skipped, not failed.
	ErrorTypeSkip ErrorType = "skip"
	// ErrorTypeViolation marks an observed value that diverges from a normative rule.
	ErrorTypeViolation ErrorType = "violation"
	// ErrorTypeSpecMismatch marks a declared parameter contract that differs from the expected profile.
	ErrorTypeSpecMismatch ErrorType = "spec_mismatch"
	// ErrorTypeConfig marks structurally required input that is missing. Fatal to discovery.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeTransport marks an executor failure: network error or unexpected status.
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeDecode marks a response body that is missing a field or has the wrong shape.
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypePaginationLoop marks a next-link walk that exceeded its hop bound.
	ErrorTypePaginationLoop ErrorType = "pagination_loop"
	ErrorTypeOpenAPI        ErrorType = "openapi"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeMCP            ErrorType = "mcp"
)

// CheckError represents a structured error with context
type CheckError struct {
	Type    ErrorType
	Message string
	Context map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *CheckError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping
func (e *CheckError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a specific type
func (e *CheckError) Is(target error) bool {
	if targetErr, ok := target.(*CheckError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *CheckError) WithContext(key string, value interface{}) *CheckError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new CheckError
func New(errType ErrorType, message string) *CheckError {
	return &CheckError{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *CheckError {
	return &CheckError{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *CheckError {
	return Wrap(err, errType, fmt.Sprintf(format, args...))
}

// Newf creates a new CheckError with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *CheckError {
	return New(errType, fmt.Sprintf(format, args...))
}

// Skip is shorthand for a formatted ErrorTypeSkip error.
func Skip(format string, args ...interface{}) *CheckError {
	return Newf(ErrorTypeSkip, format, args...)
}

// Violation is shorthand for a formatted ErrorTypeViolation error.
func Violation(format string, args ...interface{}) *CheckError {
	return Newf(ErrorTypeViolation, format, args...)
}

// IsType checks if an error, or any error it wraps, is a CheckError of the given type
func IsType(err error, errType ErrorType) bool {
	var cErr *CheckError
	if stderrors.As(err, &cErr) {
		return cErr.Type == errType
	}
	return false
}

// GetType returns the error type, or ErrorTypeInternal if not a CheckError
func GetType(err error) ErrorType {
	var cErr *CheckError
	if stderrors.As(err, &cErr) {
		return cErr.Type
	}
	return ErrorTypeInternal
}

// GetContext returns context information from the error
func GetContext(err error) map[string]interface{} {
	var cErr *CheckError
	if stderrors.As(err, &cErr) {
		return cErr.Context
	}
	return nil
}
