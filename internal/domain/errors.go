// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTaskType is returned when a task type is not one of the supported variants.
	ErrInvalidTaskType = errors.New("invalid task type")

	// ErrInvalidAspectRatio is returned when an aspect ratio is not in the supported set.
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")

	// ErrInvalidQuality is returned when a quality tier is not in the supported set.
	ErrInvalidQuality = errors.New("invalid quality")

	// ErrInvalidTaskStatus is returned when a task status is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTransition is returned when a status change would violate
	// the task state machine.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrPayloadMismatch is returned when a task's payload does not belong to its type.
	ErrPayloadMismatch = errors.New("payload does not match task type")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes a single field that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel so errors.Is works against it.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports ErrValidation for every ValidationError, in addition to its wrapped error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
