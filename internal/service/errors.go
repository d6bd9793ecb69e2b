package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/atelier-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in ServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrTaskNotFound indicates the task does not exist or belongs to another user.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTemplateNotFound indicates the referenced detail template does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrPromptGroupNotFound indicates the prompt config group does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrPromptGroupNotFound = errors.New("prompt group not found")

	// ErrPromptOptionNotFound indicates the prompt config option does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrPromptOptionNotFound = errors.New("prompt option not found")

	// ErrMissingDependency is returned by constructors given a nil dependency.
	ErrMissingDependency = errors.New("missing service dependency")
)

// ServiceError wraps unexpected errors from a service with context.
type ServiceError struct {
	// Service is the service that failed (e.g., "task", "template")
	Service string
	// Operation is the operation that failed (e.g., "create_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// wrapError maps store sentinels to service sentinels and wraps anything
// else in a ServiceError. Nil stays nil.
func wrapError(service, operation, message string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrTemplateNotFound), errors.Is(err, store.ErrTemplateNotFound):
		return ErrTemplateNotFound
	case errors.Is(err, ErrPromptGroupNotFound), errors.Is(err, store.ErrPromptGroupNotFound):
		return ErrPromptGroupNotFound
	case errors.Is(err, ErrPromptOptionNotFound), errors.Is(err, store.ErrPromptOptionNotFound):
		return ErrPromptOptionNotFound
	}
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

func missing(name string) error {
	return fmt.Errorf("%w: %s cannot be nil", ErrMissingDependency, name)
}
