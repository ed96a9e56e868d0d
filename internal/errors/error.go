package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryServer Category = "server"
	CategoryCLI    Category = "cli"
)

// PoolError is a structured error with a code, an explanation and a hint.
type PoolError struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PoolError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PoolError) Unwrap() error {
	return e.Wrapped
}

// WithDetail replaces the detailed explanation.
func (e *PoolError) WithDetail(d string) *PoolError {
	e.Detail = d
	return e
}

// WithDetailf formats the detailed explanation.
func (e *PoolError) WithDetailf(format string, args ...any) *PoolError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PoolError) WithSuggestion(s string) *PoolError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *PoolError) Wrap(err error) *PoolError {
	e.Wrapped = err
	return e
}

// New creates a PoolError from a registered error code.
func New(code string) *PoolError {
	template, ok := registry[code]
	if !ok {
		return &PoolError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PoolError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a PoolError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *PoolError {
	return &PoolError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in a PoolError with code, unless err already carries one.
func FromError(err error, code string) *PoolError {
	if err == nil {
		return nil
	}
	var pe *PoolError
	if stderrors.As(err, &pe) {
		return pe
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first PoolError in err's chain, or "".
func Code(err error) string {
	var pe *PoolError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
