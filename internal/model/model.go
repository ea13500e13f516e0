// Package model defines the core domain types for the ticket inventory and
// booking engine.
package model

import (
	"fmt"
	"sort"
	"time"
)

// TicketType is the closed set of ticket class labels an event can offer.
type TicketType string

const (
	TicketFull       TicketType = "full"
	TicketConcession TicketType = "concession"
)

// TicketTypes lists every known class in display order.
var TicketTypes = []TicketType{TicketFull, TicketConcession}

// ParseTicketType maps a label onto a known TicketType.
func ParseTicketType(s string) (TicketType, error) {
	for _, t := range TicketTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown ticket type %q", s)
}

// Valid reports whether t is one of the known classes.
func (t TicketType) Valid() bool {
	_, err := ParseTicketType(string(t))
	return err == nil
}

// Event is an organiser-owned listing. Drafts are invisible to attendees.
type Event struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Date         string        `json:"date"`
	Time         string        `json:"time"`
	IsPublished  bool          `json:"is_published"`
	CreatedAt    time.Time     `json:"created_at"`
	LastModified time.Time     `json:"last_modified"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
	Tickets      []TicketClass `json:"tickets"`
}

// TicketClass is one priced quantity pool of an event.
// Invariant after every committed transaction: 0 <= Remaining <= Original.
type TicketClass struct {
	Type       TicketType `json:"ticket_type"`
	PriceCents int64      `json:"price_cents"`
	Original   int        `json:"original"`
	Remaining  int        `json:"remaining"`
}

// SoldOut returns true when no tickets of the class remain.
func (c TicketClass) SoldOut() bool {
	return c.Remaining <= 0
}

// Snapshot is a consistent read of one event and all of its ticket classes.
type Snapshot struct {
	Event   Event                      `json:"event"`
	Classes map[TicketType]TicketClass `json:"classes"`
}

// Remaining returns the remaining count for a class; undefined classes have none.
func (s Snapshot) Remaining(t TicketType) int {
	return s.Classes[t].Remaining
}

// SortedClasses returns the classes ordered by TicketTypes.
func (s Snapshot) SortedClasses() []TicketClass {
	out := make([]TicketClass, 0, len(s.Classes))
	for _, t := range TicketTypes {
		if c, ok := s.Classes[t]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Quantities maps ticket classes to a number of tickets.
type Quantities map[TicketType]int

// Total sums all quantities.
func (q Quantities) Total() int {
	n := 0
	for _, v := range q {
		n += v
	}
	return n
}

// Positive returns only the classes with a quantity above zero.
func (q Quantities) Positive() Quantities {
	out := make(Quantities, len(q))
	for t, v := range q {
		if v > 0 {
			out[t] = v
		}
	}
	return out
}

// Types returns the classes present in q in a stable order, so that row
// locks are always taken in the same sequence.
func (q Quantities) Types() []TicketType {
	types := make([]TicketType, 0, len(q))
	for t := range q {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// BookingRequest is the transient input of one booking attempt.
type BookingRequest struct {
	EventID       string
	AttendeeName  string
	AttendeeEmail string
	Quantities    Quantities
}

// Booking is the ledger record written in the same transaction as the decrement.
type Booking struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	AttendeeName  string     `json:"attendee_name"`
	AttendeeEmail string     `json:"attendee_email"`
	Quantities    Quantities `json:"quantities"`
	CreatedAt     time.Time  `json:"created_at"`
}

// BookingConfirmation is handed back to the caller after a committed booking.
type BookingConfirmation struct {
	BookingID    string     `json:"booking_id"`
	EventID      string     `json:"event_id"`
	AttendeeName string     `json:"attendee_name"`
	EventTitle   string     `json:"event_title"`
	Quantities   Quantities `json:"quantities"`
	ConfirmedAt  time.Time  `json:"confirmed_at"`
}

// TicketClassInput is the organiser-submitted definition of a class.
type TicketClassInput struct {
	PriceCents int64 `json:"price_cents"`
	Quantity   int   `json:"quantity"`
}

// EventInput is the payload for creating or editing an event. Editing
// replaces both ticket classes wholesale.
type EventInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
	Time        string           `json:"time"`
	Full        TicketClassInput `json:"full"`
	Concession  TicketClassInput `json:"concession"`
}

// Classes converts the input into fresh ticket classes with remaining = original.
func (in EventInput) Classes() []TicketClass {
	return []TicketClass{
		{Type: TicketFull, PriceCents: in.Full.PriceCents, Original: in.Full.Quantity, Remaining: in.Full.Quantity},
		{Type: TicketConcession, PriceCents: in.Concession.PriceCents, Original: in.Concession.Quantity, Remaining: in.Concession.Quantity},
	}
}

// BookRequest is the JSON payload for a booking submission.
type BookRequest struct {
	AttendeeName  string         `json:"attendee_name"`
	AttendeeEmail string         `json:"attendee_email"`
	Quantities    map[string]int `json:"quantities"`
}

// LoginRequest is the organiser login payload.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued organiser token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// OrganiserEvents groups events the way the organiser home shows them.
type OrganiserEvents struct {
	Published []Event `json:"published"`
	Drafts    []Event `json:"drafts"`
}
