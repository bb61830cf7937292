package errors

import (
	"errors"
	"fmt"
)

var (
	// Callback ingestion errors
	ErrMalformedPayload    = errors.New("malformed callback payload")
	ErrSignatureInvalid    = errors.New("callback signature verification failed")
	ErrUnknownMerchant     = errors.New("unknown merchant")
	ErrUnsupportedRail     = errors.New("unsupported payment rail")
	ErrTransactionNotFound = errors.New("transaction not found")

	// State machine errors
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDuplicateRecord    = errors.New("duplicate callback record")

	// Notification errors
	ErrNotifierUnavailable = errors.New("notifier unavailable")
	ErrDeliveryExhausted   = errors.New("merchant delivery attempts exhausted")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
