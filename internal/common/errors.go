// Package common defines shared sentinel errors and small helpers used across
// gophdrive layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrWriteConflict      = errors.New("write conflict")
	ErrTransactionFailure = errors.New("transaction failure")

	// Validation errors.
	ErrValidation = errors.New("validation error")

	// Handle errors.
	ErrHandleReleased = errors.New("handle released")
	ErrInvalidHandle  = errors.New("invalid handle")
)
