package shared

import "errors"

// ErrorClass determines how the dispatcher treats a failed event.
type ErrorClass string

const (
	// ErrorClassValidation marks malformed or unresolvable input. Retrying an
	// unchanged payload would fail identically, so these are never retried.
	ErrorClassValidation ErrorClass = "VALIDATION"
	// ErrorClassConflict marks a business-rule rejection (insufficient stock,
	// 3-way-match hold). Permanent like validation, but the document may
	// survive in a held state.
	ErrorClassConflict ErrorClass = "CONFLICT"
	// ErrorClassTransient marks lock contention, serialization failures and
	// unavailable dependencies. Retried with backoff.
	ErrorClassTransient ErrorClass = "TRANSIENT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Class   ErrorClass `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewValidationError creates a permanent validation error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Class: ErrorClassValidation}
}

// NewConflictError creates a permanent business-rule conflict error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Class: ErrorClassConflict}
}

// NewTransientError creates a retryable error
func NewTransientError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Class: ErrorClassTransient}
}

// IsPermanent reports whether err must not be retried. Unknown error types are
// treated as transient so infrastructure hiccups get the backoff path.
func IsPermanent(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Class == ErrorClassValidation || de.Class == ErrorClassConflict
	}
	return false
}

// Class extracts the error class, defaulting to transient for non-domain errors.
func Class(err error) ErrorClass {
	var de *DomainError
	if errors.As(err, &de) && de.Class != "" {
		return de.Class
	}
	return ErrorClassTransient
}

// Common domain errors
var (
	ErrNotFound            = NewValidationError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewConflictError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewTransientError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewValidationError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewConflictError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrPeriodLocked        = NewValidationError("PERIOD_LOCKED", "Accounting period is locked for this date")
)
