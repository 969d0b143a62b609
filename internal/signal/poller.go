package signal

import (
	"context"
	"errors"
	"sync"
)

// Poller debounces lock and sleep independently and converts stable flips
// into events. A resume edge (unlock or wake) is held back while the other
// condition still holds, so the tracker never resumes on a host that is
// still locked or asleep; it is released once both are clear.
type Poller struct {
	lockProbe  Prober
	sleepProbe Prober
	shared     bool

	mu    sync.Mutex
	lock  *Debouncer
	sleep *Debouncer
}

// NewPoller returns a Poller reading both conditions from p and requiring
// lockDebounce and sleepDebounce consecutive samples before an edge fires.
func NewPoller(p Prober, lockDebounce, sleepDebounce int) *Poller {
	poller := NewSplitPoller(p, p, lockDebounce, sleepDebounce)
	poller.shared = true
	return poller
}

// NewSplitPoller reads Locked from lockProbe and Asleep from sleepProbe. A
// failing probe only suspends its own condition.
func NewSplitPoller(lockProbe, sleepProbe Prober, lockDebounce, sleepDebounce int) *Poller {
	return &Poller{
		lockProbe:  lockProbe,
		sleepProbe: sleepProbe,
		lock:       NewDebouncer(lockDebounce),
		sleep:      NewDebouncer(sleepDebounce),
	}
}

// Sample polls once and returns the edges that fired, pause edges before
// resume edges. A condition whose probe failed keeps its debounced value and
// the error is returned alongside the events of the other condition.
func (p *Poller) Sample(ctx context.Context) ([]Event, error) {
	ls, lockErr := p.lockProbe.Poll(ctx)
	ss, sleepErr := ls, lockErr
	if !p.shared {
		ss, sleepErr = p.sleepProbe.Poll(ctx)
	}
	if lockErr != nil && sleepErr != nil {
		if p.shared {
			return nil, lockErr
		}
		return nil, errors.Join(lockErr, sleepErr)
	}
	err := errors.Join(lockErr, sleepErr)

	p.mu.Lock()
	defer p.mu.Unlock()

	var lockFlip, sleepFlip bool
	if lockErr == nil {
		lockFlip = p.lock.Observe(ls.Locked)
	}
	if sleepErr == nil {
		sleepFlip = p.sleep.Observe(ss.Asleep)
	}

	var events []Event
	if lockFlip && p.lock.Stable() {
		events = append(events, LockDetected)
	}
	if sleepFlip && p.sleep.Stable() {
		events = append(events, SleepDetected)
	}
	if p.lock.Stable() || p.sleep.Stable() {
		return events, err
	}
	// Both clear now, so any flip this sample was a resume.
	if sleepFlip {
		events = append(events, WakeDetected)
	}
	if lockFlip {
		events = append(events, UnlockDetected)
	}
	return events, err
}

// State returns the debounced lock and sleep values.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Locked: p.lock.Stable(), Asleep: p.sleep.Stable()}
}
