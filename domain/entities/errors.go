package entities

import "fmt"

// ValidationError rejects malformed input before any side effect occurs
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a named field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StateConflictError signals an optimistic-concurrency loss: the wager was
// settled through another path between read and write. It is not retryable;
// callers must treat it as "no-op, already handled".
type StateConflictError struct {
	WagerID       int64
	CurrentStatus WagerStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("wager %d already handled (status %s)", e.WagerID, e.CurrentStatus)
}

// InsufficientFundsError rejects a debit that would overdraw a balance
type InsufficientFundsError struct {
	UserID    int64
	Balance   int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %d: have %d, need %d", e.UserID, e.Balance, e.Requested)
}

// IntegrityError signals a broken ledger hash chain. It is fatal for the
// affected user: further writes halt pending manual audit, never auto-repair.
type IntegrityError struct {
	UserID   int64
	Sequence int64
	Detail   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity failure for user %d at sequence %d: %s", e.UserID, e.Sequence, e.Detail)
}

// ExternalServiceError wraps a failure talking to an outside collaborator.
// It is retried with bounded backoff and ultimately recorded, never
// propagated into a settlement result.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
