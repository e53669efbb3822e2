package shared

import "errors"

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied indicates the caller lacks the required role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict indicates a lost race or an attempt to repeat an already
	// terminal state transition.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientFunds indicates a ledger balance check failed.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrValidation indicates a field-level business rule violation.
	ErrValidation = errors.New("validation failed")
)
