package journal

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// DefaultBuffer is the number of transitions queued before new ones are dropped.
const DefaultBuffer = 256

// Writer is a tracker.Observer that hands transitions to a Store on its own
// goroutine. Observe never blocks; when the queue is full the transition is
// dropped and counted.
type Writer struct {
	store   Store
	queue   chan Entry
	dropped atomic.Int64
	done    chan struct{}
}

// NewWriter returns a Writer with a queue of size buffer (DefaultBuffer when
// buffer < 1). Call Run to start draining.
func NewWriter(store Store, buffer int) *Writer {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Writer{
		store: store,
		queue: make(chan Entry, buffer),
		done:  make(chan struct{}),
	}
}

func (w *Writer) Observe(tr tracker.Transition) {
	select {
	case w.queue <- FromTransition(tr):
	default:
		w.dropped.Add(1)
		slog.Warn("Journal queue full, dropping transition", logfields.Transition(string(tr.Kind)), logfields.Day(tr.DayKey))
	}
}

// Dropped returns how many transitions were not journaled.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Run writes queued entries until ctx is cancelled, then flushes what is
// left with a short deadline.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return
		case e := <-w.queue:
			batch := w.collect(e)
			if err := w.store.Append(ctx, batch...); err != nil {
				slog.Error("Journal write failed", logfields.Error(err))
			}
		}
	}
}

// Done is closed when Run has returned.
func (w *Writer) Done() <-chan struct{} { return w.done }

// collect drains whatever else is already queued behind first.
func (w *Writer) collect(first Entry) []Entry {
	batch := []Entry{first}
	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}

func (w *Writer) flush() {
	select {
	case e := <-w.queue:
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.store.Append(ctx, w.collect(e)...); err != nil {
			slog.Error("Journal flush failed", logfields.Error(err))
		}
	default:
	}
}
