package service

import (
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/repository"
)

// Rejection reasons surfaced verbatim to attendees.
const (
	ReasonMissingName      = "missing name"
	ReasonMissingEmail     = "missing email"
	ReasonInvalidEmail     = "invalid email"
	ReasonUnknownTicket    = "unknown ticket type"
	ReasonInvalidQuantity  = "invalid quantity"
	ReasonNoTickets        = "no tickets selected"
	ReasonInsufficient     = "insufficient availability"
	ReasonEventNotFound    = "event not found"
	ReasonBookingFailed    = "booking failed"
	ReasonMissingFields    = "please fill in all required fields"
	ReasonInvalidDate      = "date must be YYYY-MM-DD"
	ReasonInvalidTime      = "time must be HH:MM"
	ReasonNegativePrice    = "price must not be negative"
	ReasonNegativeQuantity = "quantity must not be negative"
)

// ValidationError is bad, user-correctable input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// InsufficientInventoryError means the request asks for more tickets than
// remain. AtCommit distinguishes the commit-time re-check from the pre-check.
type InsufficientInventoryError struct {
	AtCommit bool
}

func (e *InsufficientInventoryError) Error() string {
	if e.AtCommit {
		return ReasonInsufficient + " (changed while booking)"
	}
	return ReasonInsufficient
}

// StorageError wraps a persistence failure. It is not user-correctable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// Reason returns the user-facing reason string for a rejected booking.
func Reason(err error) string {
	var ve *ValidationError
	var ie *InsufficientInventoryError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Reason
	case errors.As(err, &ie):
		return ReasonInsufficient
	case errors.Is(err, repository.ErrNotFound):
		return ReasonEventNotFound
	default:
		return ReasonBookingFailed
	}
}

func reject(reason string) error { return &ValidationError{Reason: reason} }
