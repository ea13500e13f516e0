package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/publisher"
	"go.uber.org/zap"
)

// fallbackEventTitle stands in when the title cannot be read after commit.
const fallbackEventTitle = "the event"

// DefaultEmitTimeout bounds the post-commit title lookup and publication
// when the caller sets no tighter deadline.
const DefaultEmitTimeout = 5 * time.Second

// TitleLookup resolves an event id to its title.
type TitleLookup interface {
	EventTitle(ctx context.Context, id string) (string, error)
}

// ConfirmationEmitter turns a committed booking into the confirmation handed
// back to the caller and announces it on the configured publisher. Nothing
// it does can undo the commit.
type ConfirmationEmitter struct {
	titles    TitleLookup
	publisher publisher.Publisher
	logger    *zap.Logger
	limit     time.Duration
}

// NewConfirmationEmitter constructs a ConfirmationEmitter. A nil publisher
// disables event publication.
func NewConfirmationEmitter(titles TitleLookup, pub publisher.Publisher, logger *zap.Logger) *ConfirmationEmitter {
	if pub == nil {
		pub = publisher.Noop{}
	}
	return &ConfirmationEmitter{titles: titles, publisher: pub, logger: logger, limit: DefaultEmitTimeout}
}

// WithTimeout sets how long Emit may spend after a commit. Non-positive
// values keep the current limit.
func (e *ConfirmationEmitter) WithTimeout(d time.Duration) *ConfirmationEmitter {
	if d > 0 {
		e.limit = d
	}
	return e
}

func (e *ConfirmationEmitter) timeout() time.Duration {
	return e.limit
}

// Emit assembles the confirmation for a committed booking. It returns once
// the publication finishes or ctx is done, whichever is first; a publisher
// still running at that point is left to finish on its own.
func (e *ConfirmationEmitter) Emit(ctx context.Context, b model.Booking) model.BookingConfirmation {
	title, err := e.titles.EventTitle(ctx, b.EventID)
	if err != nil || title == "" {
		e.logger.Warn("event title lookup failed after commit",
			zap.String("event_id", b.EventID),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
		title = fallbackEventTitle
	}

	conf := model.BookingConfirmation{
		BookingID:    b.ID,
		EventID:      b.EventID,
		AttendeeName: b.AttendeeName,
		EventTitle:   title,
		Quantities:   b.Quantities,
		ConfirmedAt:  b.CreatedAt,
	}

	quantities := make(map[string]int, len(b.Quantities))
	for t, q := range b.Quantities {
		quantities[string(t)] = q
	}
	ev := publisher.BookingConfirmedEvent{
		BookingID:     b.ID,
		EventID:       b.EventID,
		EventTitle:    title,
		AttendeeName:  b.AttendeeName,
		AttendeeEmail: b.AttendeeEmail,
		Quantities:    quantities,
		ConfirmedAt:   b.CreatedAt.Format(time.RFC3339),
	}
	done := make(chan error, 1)
	go func() {
		done <- e.publisher.PublishBookingConfirmed(ctx, ev)
	}()
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		e.logger.Error("publish booking confirmation failed",
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
	return conf
}
