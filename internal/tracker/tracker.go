// Package tracker implements the day-session state machine: start and end of
// the working day, laps, user and system pauses, and the gap-excluding
// duration accounting that backs every lap.
package tracker

import (
	"sync"
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/clock"
	"github.com/Tiliavir/screen-time-tracker/internal/ledger"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
)

type session struct {
	dayKey       string
	accumulated  time.Duration
	lastActivity time.Duration // monotonic reading of the last accounting tick
	paused       bool
	origin       model.PauseOrigin
	lapStart     int64 // wall clock, epoch seconds; display only
}

// SessionState is a read-only view of the session for callers that need
// more than Status, such as the pause origin.
type SessionState struct {
	DayKey             string            `json:"day_key"`
	AccumulatedSeconds int64             `json:"accumulated_seconds"`
	Paused             bool              `json:"is_paused"`
	Origin             model.PauseOrigin `json:"pause_origin"`
	LapStart           int64             `json:"current_lap_start_timestamp"`
}

// Tracker owns the session and the ledger. Both are guarded by their own
// mutex; every operation holds both, session first, for its whole duration.
type Tracker struct {
	clock clock.Clock

	sessionMu sync.Mutex
	session   *session
	poisoned  bool
	policy    Policy

	ledgerMu sync.Mutex
	ledger   *ledger.Ledger

	observersMu sync.RWMutex
	observers   []Observer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock. Defaults to clock.System().
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithPolicy sets the thresholds.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) { t.policy = p.withDefaults() }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observers = append(t.observers, o) }
}

// New returns a tracker with no session and an empty ledger.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		clock:  clock.System(),
		ledger: ledger.New(),
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddObserver registers an observer after construction.
func (t *Tracker) AddObserver(o Observer) {
	t.observersMu.Lock()
	defer t.observersMu.Unlock()
	t.observers = append(t.observers, o)
}

// SetPolicy replaces the thresholds. It applies from the next operation on.
func (t *Tracker) SetPolicy(p Policy) error {
	return t.withState("set_policy", func() error {
		t.policy = p.withDefaults()
		return nil
	})
}

// Policy returns the thresholds in effect.
func (t *Tracker) Policy() Policy {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()
	return t.policy
}

// withState runs fn holding both locks. A panic inside fn poisons the tracker:
// the state may be half-updated, so every later call fails instead of reading it.
func (t *Tracker) withState(op string, fn func() error) (err error) {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()
	t.ledgerMu.Lock()
	defer t.ledgerMu.Unlock()

	if t.poisoned {
		return ErrLockAcquisitionFailed.WithMessagef("%s: state poisoned by an earlier panic", op)
	}
	defer func() {
		if r := recover(); r != nil {
			t.poisoned = true
			err = ErrLockAcquisitionFailed.WithMessagef("%s: %v", op, r)
		}
	}()
	return fn()
}

func (t *Tracker) emit(out []Transition) {
	if len(out) == 0 {
		return
	}
	t.observersMu.RLock()
	observers := t.observers
	t.observersMu.RUnlock()
	for _, tr := range out {
		for _, o := range observers {
			o.Observe(tr)
		}
	}
}

// accrue is the gap-excluding duration function. It only reads the monotonic
// reading of now. Must be called with the locks held.
func (t *Tracker) accrue(now clock.Instant, cause string, out *[]Transition) time.Duration {
	s := t.session
	if s.paused {
		return s.accumulated
	}
	elapsed := now.Mono - s.lastActivity
	s.lastActivity = now.Mono
	if elapsed < 0 {
		return s.accumulated
	}
	if elapsed > t.policy.GapThreshold {
		*out = append(*out, t.transition(KindGapExcluded, cause, now, -1, timecalc.Seconds(elapsed)))
		return s.accumulated
	}
	s.accumulated += elapsed
	return s.accumulated
}

func (t *Tracker) transition(kind Kind, cause string, now clock.Instant, lap int, seconds int64) Transition {
	tr := Transition{
		Kind:    kind,
		Cause:   cause,
		At:      now.Wall,
		Lap:     lap,
		Seconds: seconds,
	}
	if t.session != nil {
		tr.DayKey = t.session.dayKey
		tr.Origin = t.session.origin
	}
	return tr
}

// currentDay is the session's day, or today's key without a session.
func (t *Tracker) currentDay() string {
	if t.session != nil {
		return t.session.dayKey
	}
	return timecalc.DayKey(t.clock.Now().Wall)
}

// State returns the session view, or false when there is no session.
func (t *Tracker) State() (SessionState, bool) {
	var st SessionState
	var ok bool
	_ = t.withState("state", func() error {
		s := t.session
		if s == nil {
			return nil
		}
		ok = true
		st = SessionState{
			DayKey:             s.dayKey,
			AccumulatedSeconds: timecalc.Seconds(s.accumulated),
			Paused:             s.paused,
			Origin:             s.origin,
			LapStart:           s.lapStart,
		}
		return nil
	})
	return st, ok
}
