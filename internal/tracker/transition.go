package tracker

import (
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
)

// Kind names a state-machine transition.
type Kind string

const (
	KindDayStarted   Kind = "day_started"
	KindDayEnded     Kind = "day_ended"
	KindLapOpened    Kind = "lap_opened"
	KindLapClosed    Kind = "lap_closed"
	KindLapDiscarded Kind = "lap_discarded"
	KindPaused       Kind = "paused"
	KindResumed      Kind = "resumed"
	KindGapExcluded  Kind = "gap_excluded"
	KindRestored     Kind = "restored"
)

// Transition describes one change of tracker state. Lap is -1 when the
// transition does not concern a single lap.
type Transition struct {
	Kind    Kind
	Cause   string
	DayKey  string
	At      time.Time
	Lap     int
	Seconds int64
	Origin  model.PauseOrigin
	// Record is set on KindDayEnded.
	Record *model.DayRecord
}

// Observer receives transitions after the tracker has released its locks.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	Observe(Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Transition)

func (f ObserverFunc) Observe(tr Transition) { f(tr) }
