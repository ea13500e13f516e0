package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists events, ticket classes and the booking ledger in
// PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var readSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// inTx runs fn inside a transaction and commits only when fn succeeds.
func (s *PostgresStore) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetEvent returns an event with all of its ticket classes. Both reads run
// in one repeatable-read transaction so the classes are mutually consistent.
func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var ev *model.Event
	err := s.inTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		var err error
		ev, err = scanEvent(tx.QueryRow(ctx,
			`SELECT id, title, description, event_date, event_time, is_published, created_at, last_modified, published_at
			 FROM events WHERE id = $1`,
			id,
		))
		if err != nil {
			return err
		}
		byEvent, err := s.ticketsFor(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		ev.Tickets = byEvent[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// EventTitle returns only the title of an event.
func (s *PostgresStore) EventTitle(ctx context.Context, id string) (string, error) {
	var title string
	err := s.db.QueryRow(ctx, `SELECT title FROM events WHERE id = $1`, id).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get event title: %w", err)
	}
	return title, nil
}

// ListEvents returns events with their ticket classes. Published events are
// ordered by date for attendees; the full list is newest first.
func (s *PostgresStore) ListEvents(ctx context.Context, publishedOnly bool) ([]model.Event, error) {
	query := `SELECT id, title, description, event_date, event_time, is_published, created_at, last_modified, published_at
	          FROM events ORDER BY created_at DESC`
	if publishedOnly {
		query = `SELECT id, title, description, event_date, event_time, is_published, created_at, last_modified, published_at
		         FROM events WHERE is_published ORDER BY event_date ASC, event_time ASC`
	}

	var events []model.Event
	err := s.inTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		defer rows.Close()

		var ids []string
		for rows.Next() {
			ev, err := scanEvent(rows)
			if err != nil {
				return err
			}
			events = append(events, *ev)
			ids = append(ids, ev.ID)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		rows.Close()

		byEvent, err := s.ticketsFor(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i := range events {
			events[i].Tickets = byEvent[events[i].ID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PostgresStore) ticketsFor(ctx context.Context, tx pgx.Tx, ids []string) (map[string][]model.TicketClass, error) {
	out := make(map[string][]model.TicketClass, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := tx.Query(ctx,
		`SELECT event_id, ticket_type, price_cents, original, remaining
		 FROM tickets WHERE event_id = ANY($1)
		 ORDER BY event_id, ticket_type DESC`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, ticketType string
		var c model.TicketClass
		if err := rows.Scan(&eventID, &ticketType, &c.PriceCents, &c.Original, &c.Remaining); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		c.Type = model.TicketType(ticketType)
		out[eventID] = append(out[eventID], c)
	}
	return out, rows.Err()
}

// ApplyDelta decrements the remaining count of every class in delta as one
// unit.
//
// The naive sequence (read remaining, compare in Go, then UPDATE each class)
// lets two transactions read the same pre-decrement value and both write,
// overselling the class. Here the event row is locked with SELECT … FOR
// UPDATE, which serialises bookings for the same event across processes,
// and every UPDATE is additionally conditioned on remaining + delta >= 0.
// A condition that matches zero rows aborts the whole transaction, rolling
// back any sibling class already decremented, and yields ErrConflict.
//
// When booking is non-nil it is written to the ledger in the same transaction.
func (s *PostgresStore) ApplyDelta(ctx context.Context, eventID string, delta model.Quantities, booking *model.Booking) error {
	for _, d := range delta {
		if d > 0 {
			return ErrInvalidDelta
		}
	}

	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var published bool
		err := tx.QueryRow(ctx,
			`SELECT is_published FROM events WHERE id = $1 FOR UPDATE`,
			eventID,
		).Scan(&published)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock event row: %w", err)
		}
		if !published {
			return ErrNotFound
		}

		for _, t := range delta.Types() {
			d := delta[t]
			if d == 0 {
				continue
			}
			tag, err := tx.Exec(ctx,
				`UPDATE tickets SET remaining = remaining + $1
				 WHERE event_id = $2 AND ticket_type = $3 AND remaining + $1 >= 0`,
				d, eventID, string(t),
			)
			if err != nil {
				return fmt.Errorf("decrement %s tickets: %w", t, err)
			}
			if tag.RowsAffected() == 0 {
				return ErrConflict
			}
		}

		if booking == nil {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO bookings (id, event_id, attendee_name, attendee_email, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			booking.ID, booking.EventID, booking.AttendeeName, booking.AttendeeEmail, booking.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		for _, t := range booking.Quantities.Types() {
			if _, err := tx.Exec(ctx,
				`INSERT INTO booking_items (booking_id, ticket_type, quantity) VALUES ($1, $2, $3)`,
				booking.ID, string(t), booking.Quantities[t],
			); err != nil {
				return fmt.Errorf("insert booking item: %w", err)
			}
		}
		return nil
	})
}

// CreateEvent inserts a draft event together with its ticket classes.
func (s *PostgresStore) CreateEvent(ctx context.Context, ev model.Event) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO events (id, title, description, event_date, event_time, is_published, created_at, last_modified)
			 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
			ev.ID, ev.Title, ev.Description, ev.Date, ev.Time, ev.CreatedAt, ev.LastModified,
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return insertTicketsPg(ctx, tx, ev.ID, ev.Tickets)
	})
}

// ReplaceEvent updates event metadata and redefines its ticket classes
// wholesale: previous remaining counts are discarded.
func (s *PostgresStore) ReplaceEvent(ctx context.Context, ev model.Event) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE events SET title = $2, description = $3, event_date = $4, event_time = $5, last_modified = $6
			 WHERE id = $1`,
			ev.ID, ev.Title, ev.Description, ev.Date, ev.Time, ev.LastModified,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE event_id = $1`, ev.ID); err != nil {
			return fmt.Errorf("reset tickets: %w", err)
		}
		return insertTicketsPg(ctx, tx, ev.ID, ev.Tickets)
	})
}

func insertTicketsPg(ctx context.Context, tx pgx.Tx, eventID string, classes []model.TicketClass) error {
	for _, c := range classes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tickets (event_id, ticket_type, price_cents, original, remaining)
			 VALUES ($1, $2, $3, $4, $5)`,
			eventID, string(c.Type), c.PriceCents, c.Original, c.Remaining,
		); err != nil {
			return fmt.Errorf("insert %s tickets: %w", c.Type, err)
		}
	}
	return nil
}

// PublishEvent marks an event as published. Publishing is one-way and
// publishing twice keeps the first published_at.
func (s *PostgresStore) PublishEvent(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE events SET is_published = TRUE, published_at = COALESCE(published_at, $2) WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event and its ticket classes. Ledger rows are kept.
func (s *PostgresStore) DeleteEvent(ctx context.Context, id string) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListBookings returns the ledger for an event, oldest first.
func (s *PostgresStore) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	rows, err := s.db.Query(ctx,
		`SELECT b.id, b.event_id, b.attendee_name, b.attendee_email, b.created_at, i.ticket_type, i.quantity
		 FROM bookings b JOIN booking_items i ON i.booking_id = b.id
		 WHERE b.event_id = $1
		 ORDER BY b.created_at ASC, b.id, i.ticket_type`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var ticketType string
		var qty int
		if err := rows.Scan(&b.ID, &b.EventID, &b.AttendeeName, &b.AttendeeEmail, &b.CreatedAt, &ticketType, &qty); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = appendBookingItem(bookings, b, model.TicketType(ticketType), qty)
	}
	return bookings, rows.Err()
}

// appendBookingItem folds one joined (booking, item) row into bookings,
// relying on rows for the same booking arriving consecutively.
func appendBookingItem(bookings []model.Booking, b model.Booking, t model.TicketType, qty int) []model.Booking {
	if n := len(bookings); n > 0 && bookings[n-1].ID == b.ID {
		bookings[n-1].Quantities[t] = qty
		return bookings
	}
	b.Quantities = model.Quantities{t: qty}
	return append(bookings, b)
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.Time,
		&ev.IsPublished, &ev.CreatedAt, &ev.LastModified, &ev.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &ev, nil
}
