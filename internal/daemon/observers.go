package daemon

import (
	"log/slog"

	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
	"github.com/Tiliavir/screen-time-tracker/internal/metrics"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// metricsObserver feeds transitions into the recorder.
type metricsObserver struct {
	rec metrics.Recorder
}

func (m metricsObserver) Observe(tr tracker.Transition) {
	m.rec.IncTransition(string(tr.Kind))
	switch tr.Kind {
	case tracker.KindLapClosed:
		m.rec.ObserveLapSeconds(tr.Seconds)
	case tracker.KindGapExcluded:
		m.rec.AddExcludedGapSeconds(tr.Seconds)
	case tracker.KindDayStarted, tracker.KindResumed, tracker.KindLapOpened:
		m.rec.SetSessionActive(true)
	case tracker.KindPaused, tracker.KindDayEnded, tracker.KindRestored:
		m.rec.SetSessionActive(false)
	}
}

// logObserver writes one line per transition.
type logObserver struct{}

func (logObserver) Observe(tr tracker.Transition) {
	attrs := []any{
		logfields.Transition(string(tr.Kind)),
		logfields.Day(tr.DayKey),
		logfields.Cause(tr.Cause),
	}
	if tr.Lap >= 0 {
		attrs = append(attrs, logfields.Lap(tr.Lap))
	}
	if tr.Seconds != 0 {
		attrs = append(attrs, logfields.Seconds(tr.Seconds))
	}
	if tr.Origin != "" && tr.Origin != model.PauseNone {
		attrs = append(attrs, logfields.Origin(string(tr.Origin)))
	}
	if tr.Kind == tracker.KindGapExcluded {
		slog.Info("Excluded gap from accounting", attrs...)
		return
	}
	slog.Debug("Tracker transition", attrs...)
}
