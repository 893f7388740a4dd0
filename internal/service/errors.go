package service

import "errors"

// Error classes surfaced to callers.  Everything else is internal.
var (
	ErrValidation       = errors.New("validation failed")
	ErrSlotInPast       = errors.New("slot has already started")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// ValidationError names the offending request field.  It matches
// ErrValidation with errors.Is, and Err when set.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }
