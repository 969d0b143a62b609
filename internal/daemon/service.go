package daemon

import (
	"context"

	"github.com/Tiliavir/screen-time-tracker/internal/api"
	"github.com/Tiliavir/screen-time-tracker/internal/clock"
	"github.com/Tiliavir/screen-time-tracker/internal/journal"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/signal"
	"github.com/Tiliavir/screen-time-tracker/internal/storage"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// Signal kinds accepted by Service.Signal.
const (
	SignalLock   = "lock"
	SignalUnlock = "unlock"
	SignalSleep  = "sleep"
	SignalWake   = "wake"
)

var signalOps = map[string]func(*tracker.Tracker) (string, error){
	SignalLock:   (*tracker.Tracker).HandleScreenLock,
	SignalUnlock: (*tracker.Tracker).HandleScreenUnlock,
	SignalSleep:  (*tracker.Tracker).HandleSystemSleep,
	SignalWake:   (*tracker.Tracker).HandleSystemWake,
}

var eventSignals = map[signal.Event]string{
	signal.LockDetected:   SignalLock,
	signal.UnlockDetected: SignalUnlock,
	signal.SleepDetected:  SignalSleep,
	signal.WakeDetected:   SignalWake,
}

// Service is the command surface of a running daemon. Every call that
// touches the tracker goes through the dispatcher.
type Service struct {
	tracker    *tracker.Tracker
	dispatcher *Dispatcher
	clock      clock.Clock
	base       string
	journal    journal.Store
}

// StartDay begins today's session.
func (s *Service) StartDay(ctx context.Context) (string, error) {
	return dispatch(ctx, s.dispatcher, "start_day", s.tracker.StartDay)
}

// EndDay finishes the session and returns the frozen record.
func (s *Service) EndDay(ctx context.Context) (model.DayRecord, error) {
	return dispatch(ctx, s.dispatcher, "end_day", s.tracker.EndDay)
}

// AddLap closes the running lap and opens the next.
func (s *Service) AddLap(ctx context.Context) (string, error) {
	return dispatch(ctx, s.dispatcher, "add_lap", s.tracker.AddLap)
}

// StopLap pauses the session on behalf of the user.
func (s *Service) StopLap(ctx context.Context) (string, error) {
	return dispatch(ctx, s.dispatcher, "stop_lap", s.tracker.StopLap)
}

// Signal applies a lock, unlock, sleep or wake notification.
func (s *Service) Signal(ctx context.Context, kind string) (string, error) {
	op, ok := signalOps[kind]
	if !ok {
		return "", api.ErrUnknownSignal.WithMessagef("unknown signal %q (want lock, unlock, sleep or wake)", kind)
	}
	return dispatch(ctx, s.dispatcher, "signal_"+kind, func() (string, error) {
		return op(s.tracker)
	})
}

// Status returns the live status, nil without a session.
func (s *Service) Status(ctx context.Context) (*model.Status, error) {
	return dispatch(ctx, s.dispatcher, "status", s.tracker.Status)
}

// Session returns the session view including the pause origin, nil without
// a session.
func (s *Service) Session(ctx context.Context) (*tracker.SessionState, error) {
	return dispatch(ctx, s.dispatcher, "session", func() (*tracker.SessionState, error) {
		st, ok := s.tracker.State()
		if !ok {
			return nil, nil
		}
		return &st, nil
	})
}

// Laps returns the laps of day. An empty day means the current day. Days
// no longer in memory are read from the archive.
func (s *Service) Laps(ctx context.Context, day string) ([]model.Lap, error) {
	if day == "" {
		return dispatch(ctx, s.dispatcher, "laps", s.tracker.Laps)
	}
	if _, err := timecalc.ParseDayKey(day); err != nil {
		return nil, api.ErrInvalidDay.WithMessage(err.Error())
	}
	lookup, err := dispatch(ctx, s.dispatcher, "record", func() (recordLookup, error) {
		r, ok, err := s.tracker.Record(day)
		return recordLookup{rec: r, ok: ok}, err
	})
	if err != nil {
		return nil, err
	}
	if lookup.ok {
		return lookup.rec.Laps, nil
	}
	archived, found, err := storage.LoadDay(s.base, day)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, tracker.ErrRecordNotFound.WithMessagef("no record for %s", day)
	}
	return archived.Laps, nil
}

type recordLookup struct {
	rec model.DayRecord
	ok  bool
}

// Journal returns the journaled transitions of day, today when empty.
func (s *Service) Journal(ctx context.Context, day string) ([]journal.Entry, error) {
	if s.journal == nil {
		return nil, api.ErrUnavailable.WithMessage("journal is disabled")
	}
	if day == "" {
		day = timecalc.DayKey(s.clock.Now().Wall)
	} else if _, err := timecalc.ParseDayKey(day); err != nil {
		return nil, api.ErrInvalidDay.WithMessage(err.Error())
	}
	return s.journal.ByDay(ctx, day)
}

// postEvent forwards a poller edge without waiting.
func (s *Service) postEvent(ev signal.Event) error {
	kind, ok := eventSignals[ev]
	if !ok {
		return api.ErrUnknownSignal.WithMessagef("unknown poller event %q", ev)
	}
	op := signalOps[kind]
	return s.dispatcher.Post("poller_"+kind, func() (any, error) {
		msg, err := op(s.tracker)
		return msg, err
	})
}
