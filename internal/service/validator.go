package service

import (
	"regexp"
	"strings"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateBooking checks a booking request against a snapshot of remaining
// counts. It has no side effects, and the first failing check wins.
//
// The snapshot may already be stale when this returns; only the
// conditioned write in the store guarantees availability.
func ValidateBooking(req model.BookingRequest, snap model.Snapshot) error {
	if err := ValidateRequest(req); err != nil {
		return err
	}
	return checkAvailability(req.Quantities, snap)
}

// ValidateRequest runs the checks that need no inventory: attendee details
// and the shape of the quantity map.
func ValidateRequest(req model.BookingRequest) error {
	if strings.TrimSpace(req.AttendeeName) == "" {
		return reject(ReasonMissingName)
	}
	email := strings.TrimSpace(req.AttendeeEmail)
	if email == "" {
		return reject(ReasonMissingEmail)
	}
	if !emailPattern.MatchString(email) {
		return reject(ReasonInvalidEmail)
	}
	for t, qty := range req.Quantities {
		if !t.Valid() {
			return reject(ReasonUnknownTicket)
		}
		if qty < 0 {
			return reject(ReasonInvalidQuantity)
		}
	}
	if req.Quantities.Total() == 0 {
		return reject(ReasonNoTickets)
	}
	return nil
}

func checkAvailability(q model.Quantities, snap model.Snapshot) error {
	for t, qty := range q {
		if qty > snap.Remaining(t) {
			return &InsufficientInventoryError{}
		}
	}
	return nil
}
