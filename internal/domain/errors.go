package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique key collided with an existing row.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientStock is a business refusal: the item has fewer units
	// than requested. It is never retried internally.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart is returned when checkout finds no selected lines.
	ErrEmptyCart = errors.New("no selected cart lines")
	// ErrConcurrencyRetryExhausted means a capped stock update lost every
	// compare-and-swap round. The caller may retry the whole request.
	ErrConcurrencyRetryExhausted = errors.New("stock update retries exhausted")
	// ErrInvalidCart flags server-side cart state that breaks the
	// selection-implies-quantity invariant.
	ErrInvalidCart = errors.New("inconsistent cart state")
)

// ValidationError reports malformed caller input. Nothing is mutated when
// it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a *ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
