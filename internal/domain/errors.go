package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoIdentity indicates that a record has no usable unique key.
	ErrNoIdentity = errors.New("no identity")

	// ErrStorage indicates that a write or read against the store failed.
	ErrStorage = errors.New("storage error")

	// ErrComputation indicates that a derived metric could not be computed.
	ErrComputation = errors.New("computation error")

	// ErrArtifactMissing indicates that no persisted estimator artifact exists.
	ErrArtifactMissing = errors.New("estimator artifact missing")

	// ErrArtifactMismatch indicates that a persisted estimator and its scaler
	// do not belong together.
	ErrArtifactMismatch = errors.New("estimator artifact mismatch")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IdentityError reports a record that was rejected for lacking a key.
type IdentityError struct {
	Entity string
	Label  string
}

// Error implements the error interface.
func (e *IdentityError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("%s has no identity key", e.Entity)
	}
	return fmt.Sprintf("%s %q has no identity key", e.Entity, e.Label)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *IdentityError) Unwrap() error {
	return ErrNoIdentity
}

// StorageError wraps a database failure with the operation that caused it.
type StorageError struct {
	Op    string
	Code  string
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed (sqlstate %s): %v", e.Op, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

// Unwrap returns both the sentinel and the cause for use with errors.Is/As.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Cause}
}

// ComputationError reports a derived metric that could not be computed.
type ComputationError struct {
	Entity string
	ID     int64
	Metric string
	Reason string
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s %d: cannot compute %s: %s", e.Entity, e.ID, e.Metric, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ComputationError) Unwrap() error {
	return ErrComputation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewIdentityError creates a new IdentityError.
func NewIdentityError(entity, label string) *IdentityError {
	return &IdentityError{
		Entity: entity,
		Label:  label,
	}
}

// NewStorageError creates a new StorageError.
func NewStorageError(op, code string, cause error) *StorageError {
	return &StorageError{
		Op:    op,
		Code:  code,
		Cause: cause,
	}
}

// NewComputationError creates a new ComputationError.
func NewComputationError(entity string, id int64, metric, reason string) *ComputationError {
	return &ComputationError{
		Entity: entity,
		ID:     id,
		Metric: metric,
		Reason: reason,
	}
}
