// Package apperrors provides typed application errors for consistent error
// handling across videoindex's CLI subcommands. Use errors.Is()/errors.As()
// to check error types at call sites; GetExitCode maps them to process exit
// codes.
package apperrors

import (
	"errors"
	"fmt"
)

// Exit codes mirror github.com/google/subcommands' Status constants, so an
// AppError's ExitCode can be passed straight to subcommands.Command.Execute
// callers and ultimately os.Exit.
const (
	ExitSuccess    = 0
	ExitFailure    = 1
	ExitUsageError = 2
)

// AppError is the interface for all application errors: a process exit
// code, a machine-readable code for log fields, and error wrapping.
type AppError interface {
	error
	Code() string
	ExitCode() int
	Unwrap() error
}

// baseError implements common error functionality.
type baseError struct {
	message  string
	code     string
	exitCode int
	cause    error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Code() string  { return e.code }
func (e *baseError) ExitCode() int { return e.exitCode }
func (e *baseError) Unwrap() error { return e.cause }

// NotFoundError represents a resource (video file, index record) that does
// not exist.
type NotFoundError struct {
	baseError
	Resource string
	ID       any
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource string, id any) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s not found", resource),
			code:     "NOT_FOUND",
			exitCode: ExitFailure,
		},
		Resource: resource,
		ID:       id,
	}
}

// NewNotFoundErrorWithCause creates a NotFoundError wrapping another error.
func NewNotFoundErrorWithCause(resource string, id any, cause error) *NotFoundError {
	e := NewNotFoundError(resource, id)
	e.cause = cause
	return e
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// ValidationError represents invalid command-line input: a bad flag value,
// a malformed argument, an unsupported file type.
type ValidationError struct {
	baseError
	Field string
}

// NewValidationError creates a new ValidationError with a message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			code:     "VALIDATION_ERROR",
			exitCode: ExitUsageError,
		},
	}
}

// NewValidationErrorWithField creates a ValidationError for a specific flag
// or argument.
func NewValidationErrorWithField(field, message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			code:     "VALIDATION_ERROR",
			exitCode: ExitUsageError,
		},
		Field: field,
	}
}

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// InternalError represents an unexpected failure: an I/O error, a crashed
// subprocess, a corrupt decode.
type InternalError struct {
	baseError
}

// NewInternalError creates a new InternalError.
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		baseError: baseError{
			message:  message,
			code:     "INTERNAL_ERROR",
			exitCode: ExitFailure,
			cause:    cause,
		},
	}
}

// IsInternal checks if an error is an InternalError.
func IsInternal(err error) bool {
	var internal *InternalError
	return errors.As(err, &internal)
}

// GetExitCode returns the process exit code for an error. Returns
// ExitFailure for any error not implementing AppError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return ExitFailure
}

// GetCode returns the error code for an error, or "INTERNAL_ERROR" for any
// error not implementing AppError.
func GetCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "INTERNAL_ERROR"
}
