package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
)

// Dialect captures the differences between the database/sql backends.
type Dialect struct {
	Name string
	// LockSuffix is appended to the event row read inside ApplyDelta.
	LockSuffix string
	Schema     []string
}

var (
	// SQLite serialises writers at the database level; no row lock clause exists.
	DialectSQLite = Dialect{Name: "sqlite", Schema: sqliteSchema}
	DialectMySQL  = Dialect{Name: "mysql", LockSuffix: " FOR UPDATE", Schema: mysqlSchema}
)

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
}

// SQLStore persists events, ticket classes and the booking ledger through
// database/sql. Timestamps are stored as Unix milliseconds so both drivers
// round-trip them identically.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore constructs a SQLStore.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// InitSchema creates the tables when they do not exist yet.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %s schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const sqlEventColumns = `id, title, description, event_date, event_time, is_published, created_at, last_modified, published_at`

// GetEvent returns an event with all of its ticket classes, read in one
// transaction.
func (s *SQLStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var ev *model.Event
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		ev, err = scanSQLEvent(tx.QueryRowContext(ctx,
			`SELECT `+sqlEventColumns+` FROM events WHERE id = ?`, id))
		if err != nil {
			return err
		}
		byEvent, err := ticketsForSQL(ctx, tx, []string{id})
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
func (s *SQLStore) EventTitle(ctx context.Context, id string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM events WHERE id = ?`, id).Scan(&title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get event title: %w", err)
	}
	return title, nil
}

// ListEvents returns events with their ticket classes.
func (s *SQLStore) ListEvents(ctx context.Context, publishedOnly bool) ([]model.Event, error) {
	query := `SELECT ` + sqlEventColumns + ` FROM events ORDER BY created_at DESC`
	if publishedOnly {
		query = `SELECT ` + sqlEventColumns + ` FROM events WHERE is_published = 1 ORDER BY event_date ASC, event_time ASC`
	}

	var events []model.Event
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		var ids []string
		for rows.Next() {
			ev, err := scanSQLEvent(rows)
			if err != nil {
				rows.Close()
				return err
			}
			events = append(events, *ev)
			ids = append(ids, ev.ID)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list events: %w", err)
		}

		byEvent, err := ticketsForSQL(ctx, tx, ids)
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

func ticketsForSQL(ctx context.Context, tx *sql.Tx, ids []string) (map[string][]model.TicketClass, error) {
	out := make(map[string][]model.TicketClass, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT event_id, ticket_type, price_cents, original, remaining
		 FROM tickets WHERE event_id IN (`+placeholders+`)
		 ORDER BY event_id, ticket_type DESC`,
		args...,
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

// ApplyDelta decrements every class in delta as one all-or-nothing unit.
// Each UPDATE only matches while remaining + delta >= 0; when any of them
// matches zero rows the transaction is rolled back and ErrConflict returned.
// The ledger row, when given, is written in the same transaction.
func (s *SQLStore) ApplyDelta(ctx context.Context, eventID string, delta model.Quantities, booking *model.Booking) error {
	for _, d := range delta {
		if d > 0 {
			return ErrInvalidDelta
		}
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var published bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_published FROM events WHERE id = ?`+s.dialect.LockSuffix, eventID,
		).Scan(&published)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
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
			res, err := tx.ExecContext(ctx,
				`UPDATE tickets SET remaining = remaining + ?
				 WHERE event_id = ? AND ticket_type = ? AND remaining + ? >= 0`,
				d, eventID, string(t), d,
			)
			if err != nil {
				return fmt.Errorf("decrement %s tickets: %w", t, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("decrement %s tickets: %w", t, err)
			}
			if n == 0 {
				return ErrConflict
			}
		}

		if booking == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (id, event_id, attendee_name, attendee_email, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			booking.ID, booking.EventID, booking.AttendeeName, booking.AttendeeEmail, toMillis(booking.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		for _, t := range booking.Quantities.Types() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO booking_items (booking_id, ticket_type, quantity) VALUES (?, ?, ?)`,
				booking.ID, string(t), booking.Quantities[t],
			); err != nil {
				return fmt.Errorf("insert booking item: %w", err)
			}
		}
		return nil
	})
}

// CreateEvent inserts a draft event together with its ticket classes.
func (s *SQLStore) CreateEvent(ctx context.Context, ev model.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, title, description, event_date, event_time, is_published, created_at, last_modified)
			 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
			ev.ID, ev.Title, ev.Description, ev.Date, ev.Time, toMillis(ev.CreatedAt), toMillis(ev.LastModified),
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return insertTicketsSQL(ctx, tx, ev.ID, ev.Tickets)
	})
}

// ReplaceEvent updates event metadata and redefines its ticket classes
// wholesale.
func (s *SQLStore) ReplaceEvent(ctx context.Context, ev model.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`+s.dialect.LockSuffix, ev.ID).Scan(&exists)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock event row: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE events SET title = ?, description = ?, event_date = ?, event_time = ?, last_modified = ?
			 WHERE id = ?`,
			ev.Title, ev.Description, ev.Date, ev.Time, toMillis(ev.LastModified), ev.ID,
		); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE event_id = ?`, ev.ID); err != nil {
			return fmt.Errorf("reset tickets: %w", err)
		}
		return insertTicketsSQL(ctx, tx, ev.ID, ev.Tickets)
	})
}

func insertTicketsSQL(ctx context.Context, tx *sql.Tx, eventID string, classes []model.TicketClass) error {
	for _, c := range classes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tickets (event_id, ticket_type, price_cents, original, remaining)
			 VALUES (?, ?, ?, ?, ?)`,
			eventID, string(c.Type), c.PriceCents, c.Original, c.Remaining,
		); err != nil {
			return fmt.Errorf("insert %s tickets: %w", c.Type, err)
		}
	}
	return nil
}

// PublishEvent marks an event as published, keeping the first published_at.
func (s *SQLStore) PublishEvent(ctx context.Context, id string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("publish event: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE events SET is_published = 1, published_at = COALESCE(published_at, ?) WHERE id = ?`,
			toMillis(at), id,
		); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return nil
	})
}

// DeleteEvent removes an event and its ticket classes. Ledger rows are kept.
func (s *SQLStore) DeleteEvent(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE event_id = ?`, id); err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListBookings returns the ledger for an event, oldest first.
func (s *SQLStore) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.event_id, b.attendee_name, b.attendee_email, b.created_at, i.ticket_type, i.quantity
		 FROM bookings b JOIN booking_items i ON i.booking_id = b.id
		 WHERE b.event_id = ?
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
		var createdAt int64
		var ticketType string
		var qty int
		if err := rows.Scan(&b.ID, &b.EventID, &b.AttendeeName, &b.AttendeeEmail, &createdAt, &ticketType, &qty); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.CreatedAt = fromMillis(createdAt)
		bookings = appendBookingItem(bookings, b, model.TicketType(ticketType), qty)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLEvent(row rowScanner) (*model.Event, error) {
	var ev model.Event
	var createdAt, lastModified int64
	var publishedAt sql.NullInt64
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.Time,
		&ev.IsPublished, &createdAt, &lastModified, &publishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	ev.CreatedAt = fromMillis(createdAt)
	ev.LastModified = fromMillis(lastModified)
	if publishedAt.Valid {
		t := fromMillis(publishedAt.Int64)
		ev.PublishedAt = &t
	}
	return &ev, nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
