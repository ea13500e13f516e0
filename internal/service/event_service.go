package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/clock"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventStore persists the organiser side of events.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, publishedOnly bool) ([]model.Event, error)
	CreateEvent(ctx context.Context, ev model.Event) error
	ReplaceEvent(ctx context.Context, ev model.Event) error
	PublishEvent(ctx context.Context, id string, at time.Time) error
	DeleteEvent(ctx context.Context, id string) error
	ListBookings(ctx context.Context, eventID string) ([]model.Booking, error)
}

// EventService orchestrates the organiser event lifecycle: draft, edit,
// publish (one-way) and delete.
type EventService struct {
	store  EventStore
	locks  *EventLocks
	clock  clock.Clock
	logger *zap.Logger
}

// NewEventService wires the organiser workflow. locks must be the same
// EventLocks the BookingService uses so edits and bookings of one event
// serialise.
func NewEventService(store EventStore, locks *EventLocks, clk clock.Clock, logger *zap.Logger) *EventService {
	return &EventService{store: store, locks: locks, clock: clk, logger: logger}
}

// CreateEvent validates the input and stores a draft event with both ticket
// classes at remaining = original.
func (s *EventService) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	in, err := normaliseEventInput(in)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	ev := model.Event{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		Date:         in.Date,
		Time:         in.Time,
		CreatedAt:    now,
		LastModified: now,
		Tickets:      in.Classes(),
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", zap.String("event_id", ev.ID))
	return &ev, nil
}

// UpdateEvent replaces the event metadata and redefines its ticket classes
// wholesale. Tickets already sold are forgotten: remaining resets to the
// newly submitted quantity.
func (s *EventService) UpdateEvent(ctx context.Context, id string, in model.EventInput) (*model.Event, error) {
	in, err := normaliseEventInput(in)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	ev := model.Event{
		ID:           id,
		Title:        in.Title,
		Description:  in.Description,
		Date:         in.Date,
		Time:         in.Time,
		LastModified: s.clock.Now(),
		Tickets:      in.Classes(),
	}
	if err := s.store.ReplaceEvent(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.logger.Warn("event ticket classes reset by edit", zap.String("event_id", id))
	return s.GetEvent(ctx, id)
}

// PublishEvent makes a draft bookable. There is no way back to draft.
func (s *EventService) PublishEvent(ctx context.Context, id string) error {
	if err := s.store.PublishEvent(ctx, id, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("publish event: %w", err)
	}
	s.logger.Info("event published", zap.String("event_id", id))
	return nil
}

// DeleteEvent removes the event and its ticket classes.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.store.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.Info("event deleted", zap.String("event_id", id))
	return nil
}

// GetEvent returns any event, draft or published.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// ListPublished returns the events attendees can browse, soonest first.
func (s *EventService) ListPublished(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx, true)
}

// ListForOrganiser returns all events split into published and drafts.
func (s *EventService) ListForOrganiser(ctx context.Context) (*model.OrganiserEvents, error) {
	events, err := s.store.ListEvents(ctx, false)
	if err != nil {
		return nil, err
	}
	out := &model.OrganiserEvents{Published: []model.Event{}, Drafts: []model.Event{}}
	for _, ev := range events {
		if ev.IsPublished {
			out.Published = append(out.Published, ev)
		} else {
			out.Drafts = append(out.Drafts, ev)
		}
	}
	return out, nil
}

// ListBookings returns the booking ledger of an event. The ledger outlives
// the event, so rows are returned for deleted events too; an id that never
// took a booking yields an empty list.
func (s *EventService) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	bookings, err := s.store.ListBookings(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return bookings, nil
}

func normaliseEventInput(in model.EventInput) (model.EventInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)

	if in.Title == "" || in.Date == "" || in.Time == "" {
		return in, reject(ReasonMissingFields)
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return in, reject(ReasonInvalidDate)
	}
	if _, err := time.Parse("15:04", in.Time); err != nil {
		return in, reject(ReasonInvalidTime)
	}
	for _, c := range []model.TicketClassInput{in.Full, in.Concession} {
		if c.PriceCents < 0 {
			return in, reject(ReasonNegativePrice)
		}
		if c.Quantity < 0 {
			return in, reject(ReasonNegativeQuantity)
		}
	}
	return in, nil
}
