package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/clock"
	"github.com/Tiliavir/screen-time-tracker/internal/ledger"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
)

const msgNoSession = "No active session"

// StartDay creates the session and opens the first lap of today.
func (t *Tracker) StartDay() (string, error) {
	var msg string
	var out []Transition
	err := t.withState("start_day", func() error {
		if t.session != nil {
			return ErrAlreadyActive.WithMessagef("already tracking %s", t.session.dayKey)
		}
		now := t.clock.Now()
		day := timecalc.DayKey(now.Wall)
		if err := t.ledger.Begin(day, now.Unix()); err != nil {
			return fmt.Errorf("start day %s: %w", day, err)
		}
		t.session = &session{
			dayKey:       day,
			lastActivity: now.Mono,
			origin:       model.PauseNone,
			lapStart:     now.Unix(),
		}
		lap := len(t.ledger.Laps(day)) - 1
		out = append(out,
			t.transition(KindDayStarted, "start_day", now, -1, 0),
			t.transition(KindLapOpened, "start_day", now, lap, 0),
		)
		msg = fmt.Sprintf("Started tracking for %s", day)
		return nil
	})
	t.emit(out)
	return msg, err
}

// EndDay closes the open lap, freezes the day's total and removes the session.
func (t *Tracker) EndDay() (model.DayRecord, error) {
	var rec model.DayRecord
	var out []Transition
	err := t.withState("end_day", func() error {
		if t.session == nil {
			return ErrNoSession.WithMessage(msgNoSession)
		}
		now := t.clock.Now()
		day := t.session.dayKey
		if t.ledger.HasOpenLap(day) {
			if err := t.closeOpenLap(now, "end_day", &out); err != nil {
				return err
			}
		}

		var err error
		rec, err = t.ledger.Finalize(day)
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return ErrRecordNotFound.WithMessage(err.Error())
		}
		if err != nil {
			return err
		}
		t.session = nil
		ended := t.transition(KindDayEnded, "end_day", now, -1, rec.TotalDuration)
		ended.DayKey = day
		ended.Record = &rec
		out = append(out, ended)
		return nil
	})
	t.emit(out)
	return rec, err
}

// HandleScreenLock pauses a running session on behalf of the system.
func (t *Tracker) HandleScreenLock() (string, error) {
	return t.systemPause("screen_lock", "Screen locked - timer paused")
}

// HandleSystemSleep pauses a running session on behalf of the system.
func (t *Tracker) HandleSystemSleep() (string, error) {
	return t.systemPause("system_sleep", "System sleeping - timer paused")
}

// HandleScreenUnlock resumes a session paused by the system.
func (t *Tracker) HandleScreenUnlock() (string, error) {
	return t.systemResume("screen_unlock", "Screen unlocked - new lap started")
}

// HandleSystemWake resumes a session paused by the system.
func (t *Tracker) HandleSystemWake() (string, error) {
	return t.systemResume("system_wake", "System awake - new lap started")
}

func (t *Tracker) systemPause(cause, done string) (string, error) {
	var msg string
	var out []Transition
	err := t.withState(cause, func() error {
		s := t.session
		if s == nil {
			msg = msgNoSession
			return nil
		}
		if s.paused {
			// A user pause must stay a user pause.
			msg = fmt.Sprintf("Already paused (%s)", s.origin)
			return nil
		}
		now := t.clock.Now()
		if err := t.closeOpenLap(now, cause, &out); err != nil {
			return err
		}
		t.pause(model.PauseSystem, cause, now, &out)
		msg = done
		return nil
	})
	t.emit(out)
	return msg, err
}

func (t *Tracker) systemResume(cause, done string) (string, error) {
	var msg string
	var out []Transition
	err := t.withState(cause, func() error {
		s := t.session
		switch {
		case s == nil:
			msg = msgNoSession
			return nil
		case !s.paused:
			msg = "Timer already running"
			return nil
		case s.origin == model.PauseUser:
			msg = "Paused by user - not resuming"
			return nil
		}
		now := t.clock.Now()
		if err := t.openLap(now, cause, &out); err != nil {
			return err
		}
		msg = done
		return nil
	})
	t.emit(out)
	return msg, err
}

// AddLap closes the open lap (or drops it when it is too short to keep) and
// opens a new one. It also resumes a paused session.
func (t *Tracker) AddLap() (string, error) {
	var out []Transition
	err := t.withState("add_lap", func() error {
		s := t.session
		if s == nil {
			return ErrNoSession.WithMessage(msgNoSession)
		}
		now := t.clock.Now()
		if !s.paused && t.ledger.HasOpenLap(s.dayKey) {
			secs := timecalc.Seconds(t.accrue(now, "add_lap", &out))
			if time.Duration(secs)*time.Second > t.policy.MinLapLength {
				if err := t.closeOpenLap(now, "add_lap", &out); err != nil {
					return err
				}
			} else if err := t.discardOpenLap(now, "add_lap", &out); err != nil {
				return err
			}
		}
		return t.openLap(now, "add_lap", &out)
	})
	t.emit(out)
	if err != nil {
		return "", err
	}
	return "New lap added successfully", nil
}

// StopLap ends the open lap and pauses the session on behalf of the user.
// A lap shorter than the discard threshold is removed instead of closed.
func (t *Tracker) StopLap() (string, error) {
	var msg string
	var out []Transition
	err := t.withState("stop_lap", func() error {
		s := t.session
		if s == nil {
			return ErrNoSession.WithMessage(msgNoSession)
		}
		if s.paused {
			return ErrAlreadyPaused.WithMessagef("session paused (%s)", s.origin)
		}
		now := t.clock.Now()
		secs := timecalc.Seconds(t.accrue(now, "stop_lap", &out))
		if time.Duration(secs)*time.Second < t.policy.DiscardBelow {
			if err := t.discardOpenLap(now, "stop_lap", &out); err != nil {
				return err
			}
			msg = fmt.Sprintf("Lap discarded (shorter than %s)", t.policy.DiscardBelow)
		} else {
			if err := t.closeOpenLap(now, "stop_lap", &out); err != nil {
				return err
			}
			msg = "Lap stopped successfully"
		}
		t.pause(model.PauseUser, "stop_lap", now, &out)
		return nil
	})
	t.emit(out)
	return msg, err
}

// Tick is an accounting tick with no other effect. The poller calls it on
// every sample so that elapsed time is folded in before it looks like a gap.
func (t *Tracker) Tick() error {
	var out []Transition
	err := t.withState("tick", func() error {
		if t.session == nil {
			return nil
		}
		t.accrue(t.clock.Now(), "tick", &out)
		return nil
	})
	t.emit(out)
	return err
}

// Status returns the live view of the session, or nil without one.
func (t *Tracker) Status() (*model.Status, error) {
	var st *model.Status
	var out []Transition
	err := t.withState("status", func() error {
		s := t.session
		if s == nil {
			return nil
		}
		closed := t.ledger.ClosedTotal(s.dayKey)
		if s.paused {
			st = &model.Status{DayKey: s.dayKey, TotalSessionDuration: closed}
			return nil
		}
		current := timecalc.Seconds(t.accrue(t.clock.Now(), "status", &out))
		st = &model.Status{
			DayKey:               s.dayKey,
			CurrentLapDuration:   current,
			TotalSessionDuration: closed + current,
			IsActive:             true,
		}
		return nil
	})
	t.emit(out)
	return st, err
}

// Laps returns the laps of the session's day, or of today without a session.
func (t *Tracker) Laps() ([]model.Lap, error) {
	var laps []model.Lap
	err := t.withState("laps", func() error {
		laps = t.ledger.Laps(t.currentDay())
		return nil
	})
	return laps, err
}

// Record returns a copy of the record for day.
func (t *Tracker) Record(day string) (model.DayRecord, bool, error) {
	var rec model.DayRecord
	var ok bool
	err := t.withState("record", func() error {
		rec, ok = t.ledger.Get(day)
		return nil
	})
	return rec, ok, err
}

func (t *Tracker) closeOpenLap(now clock.Instant, cause string, out *[]Transition) error {
	s := t.session
	secs := timecalc.Seconds(t.accrue(now, cause, out))
	idx, err := t.ledger.CloseOpenLap(s.dayKey, now.Unix(), secs)
	if errors.Is(err, ledger.ErrRecordNotFound) {
		return ErrRecordNotFound.WithMessage(err.Error())
	}
	if err != nil {
		return err
	}
	*out = append(*out, t.transition(KindLapClosed, cause, now, idx, secs))
	return nil
}

func (t *Tracker) discardOpenLap(now clock.Instant, cause string, out *[]Transition) error {
	s := t.session
	secs := timecalc.Seconds(s.accumulated)
	idx, err := t.ledger.DiscardOpenLap(s.dayKey)
	if errors.Is(err, ledger.ErrRecordNotFound) {
		return ErrRecordNotFound.WithMessage(err.Error())
	}
	if err != nil {
		return err
	}
	s.accumulated = 0
	*out = append(*out, t.transition(KindLapDiscarded, cause, now, idx, secs))
	return nil
}

func (t *Tracker) openLap(now clock.Instant, cause string, out *[]Transition) error {
	s := t.session
	if err := t.ledger.OpenLap(s.dayKey, now.Unix()); err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return ErrRecordNotFound.WithMessage(err.Error())
		}
		return err
	}
	wasPaused := s.paused
	s.accumulated = 0
	s.lastActivity = now.Mono
	s.lapStart = now.Unix()
	s.paused = false
	s.origin = model.PauseNone
	if wasPaused {
		*out = append(*out, t.transition(KindResumed, cause, now, -1, 0))
	}
	lap := len(t.ledger.Laps(s.dayKey)) - 1
	*out = append(*out, t.transition(KindLapOpened, cause, now, lap, 0))
	return nil
}

func (t *Tracker) pause(origin model.PauseOrigin, cause string, now clock.Instant, out *[]Transition) {
	s := t.session
	s.paused = true
	s.origin = origin
	*out = append(*out, t.transition(KindPaused, cause, now, -1, 0))
}
