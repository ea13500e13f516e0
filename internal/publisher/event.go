// Package publisher emits booking.confirmed domain events to a message
// broker after a booking commits. Publication is best effort: the booking
// is already durable when these functions run.
package publisher

import "context"

// BookingConfirmedTopic is the queue / topic name used by every publisher.
const BookingConfirmedTopic = "booking.confirmed"

// BookingConfirmedEvent carries enough for downstream consumers to log or
// run analytics without querying the inventory database.
type BookingConfirmedEvent struct {
	BookingID     string         `json:"booking_id"`
	EventID       string         `json:"event_id"`
	EventTitle    string         `json:"event_title"`
	AttendeeName  string         `json:"attendee_name"`
	AttendeeEmail string         `json:"attendee_email"`
	Quantities    map[string]int `json:"quantities"`
	ConfirmedAt   string         `json:"confirmed_at"`
}

// Publisher sends booking.confirmed events.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishBookingConfirmed(context.Context, BookingConfirmedEvent) error { return nil }

func (Noop) Close() error { return nil }
