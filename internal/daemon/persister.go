package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
	"github.com/Tiliavir/screen-time-tracker/internal/metrics"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/storage"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// SnapshotSource yields a consistent copy of tracker state.
type SnapshotSource interface {
	Snapshot() (model.Snapshot, error)
}

// Persister writes state.json off the command path. It observes the
// tracker, so every state change requests a write; requests that arrive
// while a write is pending collapse into it. Ended days are also archived.
// Write failures are logged and counted, never surfaced to commands.
type Persister struct {
	base     string
	source   SnapshotSource
	recorder metrics.Recorder

	mu       sync.Mutex
	archives []model.DayRecord

	flushMu sync.Mutex
	wake    chan struct{}
}

// NewPersister writes below base.
func NewPersister(base string, src SnapshotSource, rec metrics.Recorder) *Persister {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Persister{
		base:     base,
		source:   src,
		recorder: rec,
		wake:     make(chan struct{}, 1),
	}
}

func (p *Persister) Observe(tr tracker.Transition) {
	switch tr.Kind {
	case tracker.KindGapExcluded:
		// Snapshot itself accrues and may emit this; the interval job covers it.
		return
	case tracker.KindDayEnded:
		if tr.Record != nil {
			p.mu.Lock()
			p.archives = append(p.archives, tr.Record.Clone())
			p.mu.Unlock()
		}
	}
	p.Request()
}

// Request asks for a write without waiting for it.
func (p *Persister) Request() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run serves write requests until ctx is cancelled.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			_ = p.Flush()
		}
	}
}

// Flush archives ended days and writes the snapshot now.
func (p *Persister) Flush() error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	pending := p.archives
	p.archives = nil
	p.mu.Unlock()

	for _, rec := range pending {
		if err := storage.SaveDay(p.base, rec); err != nil {
			slog.Error("Failed to archive day", logfields.Day(rec.Date), logfields.Error(err))
		}
	}

	snap, err := p.source.Snapshot()
	if err != nil {
		p.recorder.IncSnapshotWrite(false)
		slog.Error("Failed to take snapshot", logfields.Error(err))
		return err
	}
	if err := storage.SaveSnapshot(p.base, snap); err != nil {
		p.recorder.IncSnapshotWrite(false)
		slog.Error("Failed to write snapshot", logfields.Path(storage.StatePath(p.base)), logfields.Error(err))
		return err
	}
	p.recorder.IncSnapshotWrite(true)
	return nil
}
