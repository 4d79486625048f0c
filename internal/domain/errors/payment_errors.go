package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no payment session matches a reference
	ErrSessionNotFound = errors.New("payment session not found")
	// ErrOrderNotFound is returned when the storefront order does not exist
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyPaid is returned when checkout is attempted for a paid order
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	// ErrDuplicateReference is returned when a reference collides with an existing session
	ErrDuplicateReference = errors.New("payment reference already exists")
	// ErrConcurrentTransition is returned when the session status changed
	// between read and conditional write
	ErrConcurrentTransition = errors.New("concurrent transition conflict")
	// ErrCallbackAlreadyFinalized is returned on a second finalize of the same record
	ErrCallbackAlreadyFinalized = errors.New("callback record already finalized")
)

// ValidationError reports a rejected checkout or verification request
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// GatewayRejectionError is surfaced to checkout when the gateway explicitly
// declined to issue a token. It is never retried and never falls back.
type GatewayRejectionError struct {
	Reference string
	Reason    string
	Cause     error
}

func (e *GatewayRejectionError) Error() string {
	return fmt.Sprintf("gateway rejected session %s: %s", e.Reference, e.Reason)
}

func (e *GatewayRejectionError) Unwrap() error {
	return e.Cause
}

// MalformedCallbackError means a webhook body could not be interpreted
type MalformedCallbackError struct {
	Reason string
	Cause  error
}

func (e *MalformedCallbackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed callback: %s: %v", e.Reason, e.Cause)
	}
	return "malformed callback: " + e.Reason
}

func (e *MalformedCallbackError) Unwrap() error {
	return e.Cause
}

// SignatureError means the webhook signature did not verify
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return "invalid callback signature: " + e.Reason
}
