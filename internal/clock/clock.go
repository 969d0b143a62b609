// Package clock supplies the two readings of "now" the tracker needs: a wall
// clock timestamp recorded on laps for display, and a monotonic offset that
// drives all duration arithmetic. The wall reading never feeds a duration.
package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Instant is one sample of both clocks.
type Instant struct {
	Wall time.Time
	Mono time.Duration
}

// Unix returns the wall reading in epoch seconds.
func (i Instant) Unix() int64 {
	return i.Wall.Unix()
}

// Clock samples both readings at once.
type Clock interface {
	Now() Instant
}

type clockworkClock struct {
	c      clockwork.Clock
	origin time.Time
}

// FromClockwork adapts a clockwork clock. Mono is measured from the moment
// of adaptation using the clock's own Since, which on the real clock reads
// the runtime's monotonic source.
func FromClockwork(c clockwork.Clock) Clock {
	return &clockworkClock{c: c, origin: c.Now()}
}

// System returns the process clock.
func System() Clock {
	return FromClockwork(clockwork.NewRealClock())
}

func (c *clockworkClock) Now() Instant {
	return Instant{
		Wall: c.c.Now().Round(0).UTC(),
		Mono: c.c.Since(c.origin),
	}
}

// Manual is a hand-driven clock for tests and replays. Advance moves both
// readings; Suspend moves only the wall clock, as a machine sleep does to the
// monotonic source.
type Manual struct {
	mu   sync.Mutex
	wall time.Time
	mono time.Duration
}

// NewManual returns a Manual clock whose wall reading starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{wall: start.UTC()}
}

func (m *Manual) Now() Instant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Instant{Wall: m.wall, Mono: m.mono}
}

// Advance moves both readings forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wall = m.wall.Add(d)
	m.mono += d
}

// Suspend moves the wall reading forward by d, leaving Mono unchanged.
func (m *Manual) Suspend(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wall = m.wall.Add(d)
}
