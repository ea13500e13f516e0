package service

import (
	"context"
	"sync"
)

// EventLocks hands out one mutual-exclusion section per event id. Bookings
// against different events never wait on each other. Entries are dropped
// once nobody holds or waits for them.
type EventLocks struct {
	mu    sync.Mutex
	locks map[string]*eventLock
}

type eventLock struct {
	sem  chan struct{}
	refs int
}

// NewEventLocks returns an empty lock table.
func NewEventLocks() *EventLocks {
	return &EventLocks{locks: make(map[string]*eventLock)}
}

// Acquire blocks until the section for eventID is free or ctx is done.
// The returned release func must be called exactly once.
func (l *EventLocks) Acquire(ctx context.Context, eventID string) (release func(), err error) {
	l.mu.Lock()
	el, ok := l.locks[eventID]
	if !ok {
		el = &eventLock{sem: make(chan struct{}, 1)}
		l.locks[eventID] = el
	}
	el.refs++
	l.mu.Unlock()

	select {
	case el.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-el.sem
				l.unref(eventID, el)
			})
		}, nil
	case <-ctx.Done():
		l.unref(eventID, el)
		return nil, ctx.Err()
	}
}

func (l *EventLocks) unref(eventID string, el *eventLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el.refs--
	if el.refs == 0 {
		delete(l.locks, eventID)
	}
}

// Len reports how many events currently have holders or waiters.
func (l *EventLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
