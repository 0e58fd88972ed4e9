package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks; the typed errors below unwrap to them.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failed")
	ErrTargetUnreachable = errors.New("target unreachable")
	ErrBindConflict      = errors.New("bind conflict")
)

// ValidationError reports bad input to a registry operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an unknown hue id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("device %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError reports a failed load or save of the ledger.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cannot %s device storage: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// TargetUnreachableError reports a controlled target that did not answer.
type TargetUnreachableError struct {
	EntityID string
	Err      error
}

func (e *TargetUnreachableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("target %s is unreachable", e.EntityID)
	}
	return fmt.Sprintf("target %s is unreachable: %v", e.EntityID, e.Err)
}

func (e *TargetUnreachableError) Unwrap() []error { return []error{ErrTargetUnreachable, e.Err} }

// BindConflictError reports that the API listener cannot be started.
type BindConflictError struct {
	Addr   string
	Reason string
	Err    error
}

func (e *BindConflictError) Error() string {
	msg := fmt.Sprintf("cannot listen on %s", e.Addr)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BindConflictError) Unwrap() []error { return []error{ErrBindConflict, e.Err} }
