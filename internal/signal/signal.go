// Package signal turns periodic samples of the screen-lock and sleep state
// into debounced edge events for the tracker.
package signal

import "context"

// State is one sample of the host.
type State struct {
	Locked bool
	Asleep bool
}

// Prober samples the host state. Poll may block; implementations honour ctx.
type Prober interface {
	Poll(ctx context.Context) (State, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) (State, error)

func (f ProberFunc) Poll(ctx context.Context) (State, error) { return f(ctx) }

// Event is a debounced edge.
type Event string

const (
	LockDetected   Event = "lock_detected"
	UnlockDetected Event = "unlock_detected"
	SleepDetected  Event = "sleep_detected"
	WakeDetected   Event = "wake_detected"
)

// Never reports an unlocked, awake host.
var Never Prober = ProberFunc(func(context.Context) (State, error) { return State{}, nil })
