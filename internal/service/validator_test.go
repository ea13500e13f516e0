package service

import (
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
)

func snapshotWith(full, concession int) model.Snapshot {
	return model.Snapshot{
		Event: model.Event{ID: "ev-1", Title: "Jazz Night", IsPublished: true},
		Classes: map[model.TicketType]model.TicketClass{
			model.TicketFull:       {Type: model.TicketFull, Original: full, Remaining: full},
			model.TicketConcession: {Type: model.TicketConcession, Original: concession, Remaining: concession},
		},
	}
}

func TestValidateBooking(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(2, 5)
	valid := model.BookingRequest{
		EventID:       "ev-1",
		AttendeeName:  "Ada",
		AttendeeEmail: "ada@example.com",
		Quantities:    model.Quantities{model.TicketFull: 2, model.TicketConcession: 1},
	}

	tests := []struct {
		name         string
		mutate       func(r *model.BookingRequest)
		snap         model.Snapshot
		wantReason   string
		insufficient bool
	}{
		{
			name:   "valid request",
			mutate: func(r *model.BookingRequest) {},
		},
		{
			name:       "missing name",
			mutate:     func(r *model.BookingRequest) { r.AttendeeName = "   " },
			wantReason: ReasonMissingName,
		},
		{
			name: "name is checked before email",
			mutate: func(r *model.BookingRequest) {
				r.AttendeeName = ""
				r.AttendeeEmail = "not-an-email"
			},
			wantReason: ReasonMissingName,
		},
		{
			name:       "missing email",
			mutate:     func(r *model.BookingRequest) { r.AttendeeEmail = "" },
			wantReason: ReasonMissingEmail,
		},
		{
			name:       "email without domain dot",
			mutate:     func(r *model.BookingRequest) { r.AttendeeEmail = "ada@example" },
			wantReason: ReasonInvalidEmail,
		},
		{
			name:       "email with whitespace",
			mutate:     func(r *model.BookingRequest) { r.AttendeeEmail = "ada lovelace@example.com" },
			wantReason: ReasonInvalidEmail,
		},
		{
			name: "email checked before quantities",
			mutate: func(r *model.BookingRequest) {
				r.AttendeeEmail = "nope"
				r.Quantities = model.Quantities{}
			},
			wantReason: ReasonInvalidEmail,
		},
		{
			name:       "unknown ticket type",
			mutate:     func(r *model.BookingRequest) { r.Quantities = model.Quantities{"vip": 1} },
			wantReason: ReasonUnknownTicket,
		},
		{
			name:       "negative quantity",
			mutate:     func(r *model.BookingRequest) { r.Quantities = model.Quantities{model.TicketFull: -1, model.TicketConcession: 2} },
			wantReason: ReasonInvalidQuantity,
		},
		{
			name:       "no tickets selected",
			mutate:     func(r *model.BookingRequest) { r.Quantities = model.Quantities{model.TicketFull: 0, model.TicketConcession: 0} },
			wantReason: ReasonNoTickets,
		},
		{
			name:       "empty quantities",
			mutate:     func(r *model.BookingRequest) { r.Quantities = nil },
			wantReason: ReasonNoTickets,
		},
		{
			name:         "more than remaining",
			mutate:       func(r *model.BookingRequest) { r.Quantities = model.Quantities{model.TicketFull: 3} },
			insufficient: true,
		},
		{
			name:   "exactly the remaining count",
			mutate: func(r *model.BookingRequest) { r.Quantities = model.Quantities{model.TicketFull: 2, model.TicketConcession: 5} },
		},
		{
			name:   "zero for a sold out class is fine",
			mutate: func(r *model.BookingRequest) { r.Quantities = model.Quantities{model.TicketFull: 0, model.TicketConcession: 1} },
			snap:   snapshotWith(0, 1),
		},
		{
			name:         "class the event does not define",
			mutate:       func(r *model.BookingRequest) { r.Quantities = model.Quantities{model.TicketConcession: 1} },
			snap:         model.Snapshot{Classes: map[model.TicketType]model.TicketClass{model.TicketFull: {Type: model.TicketFull, Remaining: 4}}},
			insufficient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := valid
			req.Quantities = model.Quantities{}
			for k, v := range valid.Quantities {
				req.Quantities[k] = v
			}
			tt.mutate(&req)
			s := snap
			if tt.snap.Classes != nil {
				s = tt.snap
			}

			err := ValidateBooking(req, s)

			switch {
			case tt.insufficient:
				var ie *InsufficientInventoryError
				if !errors.As(err, &ie) {
					t.Fatalf("expected InsufficientInventoryError, got %v", err)
				}
				if ie.AtCommit {
					t.Fatalf("pre-check must not report AtCommit")
				}
			case tt.wantReason != "":
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.Reason != tt.wantReason {
					t.Fatalf("reason = %q, want %q", ve.Reason, tt.wantReason)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestValidateBookingDoesNotMutateSnapshot(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(2, 5)
	req := model.BookingRequest{
		AttendeeName:  "Ada",
		AttendeeEmail: "ada@example.com",
		Quantities:    model.Quantities{model.TicketFull: 1},
	}
	if err := ValidateBooking(req, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := snap.Remaining(model.TicketFull); got != 2 {
		t.Fatalf("remaining changed to %d", got)
	}
}

func TestReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{reject(ReasonMissingEmail), ReasonMissingEmail},
		{&InsufficientInventoryError{AtCommit: true}, ReasonInsufficient},
		{&StorageError{Op: "apply delta", Err: errors.New("disk full")}, ReasonBookingFailed},
	}
	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
