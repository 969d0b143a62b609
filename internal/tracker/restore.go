package tracker

import (
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
)

// RestoreResult reports what Restore did with the persisted session.
type RestoreResult struct {
	// Restored is true when the session was brought back (paused by the system).
	Restored bool
	// Discarded holds the day key of a persisted session that was dropped.
	Discarded string
	// Finalized lists records that were still active without a session and
	// have been closed.
	Finalized []string
}

// Snapshot returns a consistent copy of the session and the ledger. The
// session's accumulated time is brought up to date first.
func (t *Tracker) Snapshot() (model.Snapshot, error) {
	var snap model.Snapshot
	var out []Transition
	err := t.withState("snapshot", func() error {
		snap.DayRecords = t.ledger.Export()
		s := t.session
		if s == nil {
			return nil
		}
		t.accrue(t.clock.Now(), "snapshot", &out)
		snap.CurrentSession = &model.SessionSnapshot{
			DayKey:                   s.dayKey,
			CurrentLapStartTimestamp: s.lapStart,
			AccumulatedSeconds:       timecalc.Seconds(s.accumulated),
			IsPaused:                 s.paused,
			PauseOrigin:              s.origin,
		}
		return nil
	})
	t.emit(out)
	return snap, err
}

// Restore replaces the tracker state with a persisted snapshot. A session
// from a day other than today is dropped and its record finalized. A session
// from today comes back paused by the system with its accumulated seconds:
// nothing was accounted while the process was down, so it never resumes on
// its own. An open lap is closed at the last accounted second.
func (t *Tracker) Restore(snap model.Snapshot, today string) (RestoreResult, error) {
	var res RestoreResult
	var out []Transition
	err := t.withState("restore", func() error {
		t.ledger.Import(snap.DayRecords)
		t.session = nil
		now := t.clock.Now()

		cs := snap.CurrentSession
		if cs != nil {
			if _, ok := t.ledger.Get(cs.DayKey); cs.DayKey != today || !ok {
				res.Discarded = cs.DayKey
			} else {
				acc := cs.AccumulatedSeconds
				if acc < 0 {
					acc = 0
				}
				if start, open := t.ledger.OpenLapStart(cs.DayKey); open {
					if _, err := t.ledger.CloseOpenLap(cs.DayKey, start+acc, acc); err != nil {
						return err
					}
				}
				t.session = &session{
					dayKey:       cs.DayKey,
					accumulated:  time.Duration(acc) * time.Second,
					lastActivity: now.Mono,
					paused:       true,
					origin:       model.PauseSystem,
					lapStart:     cs.CurrentLapStartTimestamp,
				}
				res.Restored = true
				out = append(out, t.transition(KindRestored, "restore", now, -1, acc))
			}
		}

		for _, day := range t.ledger.Days() {
			if t.session != nil && day == t.session.dayKey {
				continue
			}
			rec, _ := t.ledger.Get(day)
			if !rec.IsActive && !t.ledger.HasOpenLap(day) {
				continue
			}
			var acc int64
			if cs != nil && cs.DayKey == day && cs.AccumulatedSeconds > 0 {
				acc = cs.AccumulatedSeconds
			}
			if start, open := t.ledger.OpenLapStart(day); open {
				if _, err := t.ledger.CloseOpenLap(day, start+acc, acc); err != nil {
					return err
				}
			}
			if _, err := t.ledger.Finalize(day); err != nil {
				return err
			}
			res.Finalized = append(res.Finalized, day)
		}
		return nil
	})
	t.emit(out)
	return res, err
}
