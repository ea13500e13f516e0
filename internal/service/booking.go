// Package service implements the booking engine: request validation, the
// per-event booking transaction, confirmation assembly, and the organiser
// event lifecycle that seeds the inventory.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/clock"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/Shivanand-hulikatti/ticket-inventory/internal/service"

// InventoryStore is the persistence contract of the booking engine.
// ApplyDelta is the only write path for remaining counts: it must apply
// every (non-positive) delta or none, re-checking remaining >= 0 at write
// time, and return repository.ErrConflict when the re-check fails.
type InventoryStore interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ApplyDelta(ctx context.Context, eventID string, delta model.Quantities, booking *model.Booking) error
}

// AttemptState is the lifecycle of one booking attempt. It is reported on
// the booking span and in rejection logs.
type AttemptState string

const (
	// StateReceived: the request is in hand and nothing has been checked.
	StateReceived AttemptState = "received"
	// StateValidated: request and availability checks passed on a snapshot.
	StateValidated AttemptState = "validated"
	// StateCommitting: the conditioned decrement is in flight.
	StateCommitting AttemptState = "committing"
	// StateCommitted is terminal. The decrement and ledger rows are durable.
	StateCommitted AttemptState = "committed"
	// StateAborted is terminal. Nothing was written.
	StateAborted AttemptState = "aborted"
)

// BookingService coordinates booking attempts: snapshot, validate and
// conditioned commit, serialised per event.
type BookingService struct {
	store   InventoryStore
	emitter *ConfirmationEmitter
	locks   *EventLocks
	clock   clock.Clock
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewBookingService constructs a BookingService. locks should be shared
// with the EventService so edits and bookings of one event do not interleave.
func NewBookingService(
	store InventoryStore,
	emitter *ConfirmationEmitter,
	locks *EventLocks,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:   store,
		emitter: emitter,
		locks:   locks,
		clock:   clk,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// GetBookableSnapshot returns a published event with all of its ticket
// classes, read together in one transaction.
func (s *BookingService) GetBookableSnapshot(ctx context.Context, eventID string) (*model.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "booking.snapshot", trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	snap, err := s.snapshot(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return snap, nil
}

func (s *BookingService) snapshot(ctx context.Context, eventID string) (*model.Snapshot, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, repository.ErrNotFound
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, &StorageError{Op: "read snapshot", Err: err}
	}
	if !ev.IsPublished {
		return nil, repository.ErrNotFound
	}

	snap := &model.Snapshot{Event: *ev, Classes: make(map[model.TicketType]model.TicketClass, len(ev.Tickets))}
	for _, c := range ev.Tickets {
		snap.Classes[c.Type] = c
	}
	return snap, nil
}

// SubmitBooking runs one booking attempt to a terminal state. On success the
// decrement is committed exactly once and a confirmation is returned. Any
// error means no state change: ValidationError, InsufficientInventoryError,
// repository.ErrNotFound or StorageError.
func (s *BookingService) SubmitBooking(ctx context.Context, req model.BookingRequest) (*model.BookingConfirmation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.submit", trace.WithAttributes(attribute.String("event.id", req.EventID)))
	defer span.End()

	req.AttendeeName = strings.TrimSpace(req.AttendeeName)
	req.AttendeeEmail = strings.TrimSpace(req.AttendeeEmail)
	log := s.logger.With(zap.String("event_id", req.EventID))

	state := StateReceived
	abort := func(err error) (*model.BookingConfirmation, error) {
		from := state
		state = StateAborted
		span.SetAttributes(attribute.String("booking.state", string(state)))

		var se *StorageError
		if errors.As(err, &se) {
			span.SetStatus(codes.Error, se.Op)
			log.Error("booking aborted", zap.String("from", string(from)), zap.Error(err))
		} else {
			log.Info("booking rejected", zap.String("from", string(from)), zap.String("reason", Reason(err)))
		}
		span.RecordError(err)
		return nil, err
	}

	// Malformed requests are turned away without touching the event lock
	// or the store.
	if err := ValidateRequest(req); err != nil {
		return abort(err)
	}

	release, err := s.locks.Acquire(ctx, req.EventID)
	if err != nil {
		return abort(err)
	}

	snap, err := s.snapshot(ctx, req.EventID)
	if err != nil {
		release()
		return abort(err)
	}
	if err := checkAvailability(req.Quantities, *snap); err != nil {
		release()
		return abort(err)
	}
	state = StateValidated

	// A caller that went away before the commit leaves nothing behind.
	if err := ctx.Err(); err != nil {
		release()
		return abort(err)
	}

	booking := model.Booking{
		ID:            uuid.NewString(),
		EventID:       req.EventID,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		Quantities:    req.Quantities.Positive(),
		CreatedAt:     s.clock.Now(),
	}
	state = StateCommitting
	err = s.commit(ctx, booking)
	release()
	if err != nil {
		return abort(err)
	}
	state = StateCommitted
	span.SetAttributes(
		attribute.String("booking.state", string(state)),
		attribute.String("booking.id", booking.ID),
		attribute.Int("booking.tickets", booking.Quantities.Total()),
	)
	log.Info("booking committed",
		zap.String("booking_id", booking.ID),
		zap.Int("tickets", booking.Quantities.Total()),
	)

	// The sale stands even if the caller disconnects from here on, but the
	// confirmation work is still bounded by the caller's deadline.
	emitCtx, cancel := emitContext(ctx, s.emitter.timeout())
	defer cancel()
	conf := s.emitter.Emit(emitCtx, booking)
	return &conf, nil
}

// emitContext detaches ctx from cancellation and bounds it by limit or by
// the caller's own deadline, whichever comes first.
func emitContext(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	deadline := time.Now().Add(limit)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return context.WithDeadline(detached, deadline)
}

func (s *BookingService) commit(ctx context.Context, booking model.Booking) error {
	ctx, span := s.tracer.Start(ctx, "booking.commit")
	defer span.End()

	delta := make(model.Quantities, len(booking.Quantities))
	for t, q := range booking.Quantities {
		delta[t] = -q
	}

	err := s.store.ApplyDelta(ctx, booking.EventID, delta, &booking)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return &InsufficientInventoryError{AtCommit: true}
	case errors.Is(err, repository.ErrNotFound):
		return repository.ErrNotFound
	default:
		return &StorageError{Op: "apply delta", Err: err}
	}
}
