// Package apperrors holds the error taxonomy shared by every layer.
// Domain code returns (or wraps) these sentinels; the HTTP layer maps them
// to status codes with errors.Is.
package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount: must be positive with at most two decimal places")
	ErrSameAccount       = errors.New("source and destination must be different accounts")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAccountInactive   = errors.New("account is not active")
	ErrInvalidInput      = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with the missing resource name, e.g. "account not found".
func NotFound(resource string) error {
	return &kindError{kind: ErrNotFound, msg: resource + " not found"}
}

// Invalid wraps ErrInvalidInput with a description of the bad input.
func Invalid(msg string) error {
	return &kindError{kind: ErrInvalidInput, msg: msg}
}

// Conflict wraps ErrConflict with a description of the clashing field.
func Conflict(msg string) error {
	return &kindError{kind: ErrConflict, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

var domain = []error{
	ErrNotFound, ErrForbidden, ErrUnauthorized, ErrInsufficientFunds, ErrInvalidAmount,
	ErrSameAccount, ErrConflict, ErrInvalidTransition, ErrAccountInactive, ErrInvalidInput,
}

// IsDomain reports whether err wraps one of the sentinels above. Anything
// else is an infrastructure failure whose message must not reach users.
func IsDomain(err error) bool {
	for _, kind := range domain {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
