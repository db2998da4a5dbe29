package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrClosed is returned when a command is enqueued on a closed connection.
	ErrClosed = errors.New("connection closed")

	// ErrNotServing is returned when a broker is closed before it started serving.
	ErrNotServing = errors.New("not serving")

	// ErrInvalidInput is returned when request input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable is returned when a required service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInternal is returned when an internal error occurs.
	ErrInternal = errors.New("internal error")
)

// Error is the base interface for all custom errors in the system.
// It extends the standard error interface with additional context.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *BaseError) Stack() []uintptr {
	return e.stack
}

// captureStack captures the current stack trace.
func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// Reason classifies a subscription key validation failure.
type Reason string

const (
	// ReasonInvalidKey: the key is empty, or its wildcard usage does not
	// match the requested subscription kind.
	ReasonInvalidKey Reason = "InvalidKey"

	// ReasonEmptyKeySet: a batch request carried no keys.
	ReasonEmptyKeySet Reason = "EmptyKeySet"

	// ReasonDuplicateKey: a batch request named the same key twice.
	ReasonDuplicateKey Reason = "DuplicateKey"
)

// ValidationError represents an input validation error.
type ValidationError struct {
	*BaseError
	Field  string
	Value  interface{}
	Reason Reason
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			code:    CodeValidation,
			message: message,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// NewKeyError creates a validation error for a subscription key.
func NewKeyError(reason Reason, key interface{}, message string) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			code:    CodeValidation,
			message: message,
			stack:   captureStack(1),
		},
		Field:  "key",
		Value:  key,
		Reason: reason,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	prefix := "validation error"
	if e.Reason != "" {
		prefix = fmt.Sprintf("validation error (%s)", e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Field, e.message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// HandlerError reports a failure raised by a user-supplied message callback.
// It never propagates to the caller that triggered delivery.
type HandlerError struct {
	*BaseError
	Key       string
	Recovered interface{}
}

// NewHandlerError wraps a recovered panic value from a handler registered
// under key.
func NewHandlerError(key string, recovered interface{}) *HandlerError {
	var cause error
	if err, ok := recovered.(error); ok {
		cause = err
	}
	message := fmt.Sprintf("handler for %q failed", key)
	if cause == nil {
		message = fmt.Sprintf("handler for %q panicked: %v", key, recovered)
	}
	return &HandlerError{
		BaseError: &BaseError{
			code:    CodeHandler,
			message: message,
			cause:   cause,
			stack:   captureStack(2),
		},
		Key:       key,
		Recovered: recovered,
	}
}

// ProtocolError represents undecodable or oversized data on the wire.
type ProtocolError struct {
	*BaseError
	Offset int
}

// NewProtocolError creates a new protocol error.
func NewProtocolError(message string, offset int) *ProtocolError {
	return &ProtocolError{
		BaseError: &BaseError{
			code:    CodeProtocol,
			message: message,
			stack:   captureStack(1),
		},
		Offset: offset,
	}
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error at byte %d: %s", e.Offset, e.message)
}

// InternalError represents an internal server error.
type InternalError struct {
	*BaseError
	Operation string
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *InternalError {
	if message == "" {
		message = "internal error"
	}
	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
	}
}

// WithOperation sets the operation context.
func (e *InternalError) WithOperation(op string) *InternalError {
	e.Operation = op
	return e
}

// ServiceError represents a downstream service error.
type ServiceError struct {
	*BaseError
	Service string
}

// NewServiceError creates a new service error.
func NewServiceError(service, message string, cause error) *ServiceError {
	if message == "" {
		message = fmt.Sprintf("%s service error", service)
	}
	return &ServiceError{
		BaseError: &BaseError{
			code:    CodeServiceUnavailable,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
		Service: service,
	}
}

// Wrap wraps an error with additional context.
// If the error is already one of our custom types, it preserves the type
// and adds the cause chain. Otherwise, it creates an InternalError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already our error type, wrap it
	if e, ok := err.(Error); ok {
		return &BaseError{
			code:    e.Code(),
			message: message,
			cause:   err,
			stack:   captureStack(1),
		}
	}

	// Otherwise create an internal error
	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   err,
			stack:   captureStack(1),
		},
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// New creates a new error with a message.
func New(message string) error {
	return &BaseError{
		code:    CodeInternal,
		message: message,
		stack:   captureStack(1),
	}
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...))
}
