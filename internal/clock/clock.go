// Package clock supplies the timestamps stamped on events, publications and
// bookings.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant. Values are UTC and truncated to
// microseconds, the precision of Postgres TIMESTAMPTZ.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns the wall clock.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return normalise(time.Now())
}

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock stopped at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: normalise(t)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new instant.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = normalise(m.now.Add(d))
	return m.now
}

// Set moves the clock to t, backwards if need be.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = normalise(t)
	m.mu.Unlock()
}

func normalise(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
