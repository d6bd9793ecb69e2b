package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the row does not exist or is hidden from the caller.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate means an insert collided with an existing key.
	ErrDuplicate = errors.New("already exists")

	// ErrInvalidEntity means the database rejected a row's contents.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidTransition means a conditional status update matched no
	// row because the task was not in the expected state.
	ErrInvalidTransition = errors.New("task not in expected state")

	// ErrTransactionFailed means a transaction could not begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	ErrTaskNotFound     = fmt.Errorf("%w: task", ErrNotFound)
	ErrTemplateNotFound = fmt.Errorf("%w: template", ErrNotFound)

	ErrPromptGroupNotFound  = fmt.Errorf("%w: prompt group", ErrNotFound)
	ErrPromptOptionNotFound = fmt.Errorf("%w: prompt option", ErrNotFound)
)

// StoreError records which entity and operation a storage failure came from.
// It unwraps to the underlying error so errors.Is keeps working.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	prefix := e.Entity + " " + e.Operation + ": " + e.Message
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with the entity and operation it failed in.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
