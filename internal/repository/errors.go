// Package repository implements the inventory store and event persistence
// for the booking engine. PostgresStore uses pgx directly; SQLStore uses
// database/sql for SQLite and MySQL. Neither uses an ORM.
package repository

import "errors"

// ErrNotFound is returned when a requested event does not exist, or when a
// booking targets an event that is not published.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditioned decrement matched no row: the
// remaining count changed between the availability read and the write.
var ErrConflict = errors.New("insufficient remaining at commit time")

// ErrInvalidDelta is returned when ApplyDelta receives a positive delta.
// Inventory only ever decreases through a booking.
var ErrInvalidDelta = errors.New("delta must not be positive")
