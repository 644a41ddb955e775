// Package domain defines core types, closed request variants, and errors
// for the data catalog.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a uniqueness conflict with existing state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// InternalError wraps an engine- or store-level failure. The cause is kept
// for server-side logging; callers only see the correlation id.
type InternalError struct {
	CorrelationID string
	Cause         error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error (correlation id %s)", e.CorrelationID)
}

func (e *InternalError) Unwrap() error { return e.Cause }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrInternal wraps err with a fresh correlation id.
func ErrInternal(err error) *InternalError {
	return &InternalError{CorrelationID: uuid.NewString(), Cause: err}
}
