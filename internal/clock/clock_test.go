package clock

import (
	"sync"
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 10, 20, 0, 0, 123456789, time.FixedZone("CEST", 2*60*60))
	m := NewManual(start)

	want := time.Date(2025, 6, 10, 18, 0, 0, 123456000, time.UTC)
	if got := m.Now(); !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("now = %v, want %v in UTC", got, want)
	}

	if got := m.Advance(90 * time.Minute); !got.Equal(want.Add(90 * time.Minute)) {
		t.Fatalf("advance = %v", got)
	}
	if !m.Now().Equal(want.Add(90 * time.Minute)) {
		t.Fatalf("now after advance = %v", m.Now())
	}

	m.Set(want)
	if !m.Now().Equal(want) {
		t.Fatalf("now after set = %v", m.Now())
	}
}

func TestManualConcurrentAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Advance(time.Second)
			_ = m.Now()
		}()
	}
	wg.Wait()

	if got := m.Now(); !got.Equal(start.Add(50 * time.Second)) {
		t.Fatalf("now = %v, want %v", got, start.Add(50*time.Second))
	}
}

func TestSystemIsUTCMicroseconds(t *testing.T) {
	t.Parallel()

	now := NewSystem().Now()
	if now.Location() != time.UTC {
		t.Fatalf("location = %v", now.Location())
	}
	if now.Nanosecond()%1000 != 0 {
		t.Fatalf("now %v carries sub-microsecond precision", now)
	}
}
