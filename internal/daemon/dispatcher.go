package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
	"github.com/Tiliavir/screen-time-tracker/internal/metrics"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// ErrStopped is returned for commands submitted after the dispatcher exited.
var ErrStopped = errors.New("dispatcher stopped")

// ErrQueueFull is returned by Post when the queue has no room.
var ErrQueueFull = errors.New("dispatcher queue full")

// DefaultQueueSize bounds pending commands.
const DefaultQueueSize = 64

type result struct {
	value any
	err   error
}

type job struct {
	name  string
	fn    func() (any, error)
	reply chan result
}

// Dispatcher serializes every command on one goroutine: user commands from
// the HTTP surface, poller events and ticks are applied in arrival order.
// Once a command is dequeued it runs to completion; the caller's context
// only bounds how long it waits.
type Dispatcher struct {
	queue    chan job
	recorder metrics.Recorder
	done     chan struct{}
}

// NewDispatcher returns a dispatcher with room for size pending commands.
func NewDispatcher(size int, rec metrics.Recorder) *Dispatcher {
	if size < 1 {
		size = DefaultQueueSize
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Dispatcher{
		queue:    make(chan job, size),
		recorder: rec,
		done:     make(chan struct{}),
	}
}

// Run consumes commands until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.queue:
			d.exec(j)
		}
	}
}

func (d *Dispatcher) exec(j job) {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				res = result{err: fmt.Errorf("%s: panic: %v", j.name, r)}
			}
		}()
		res.value, res.err = j.fn()
	}()

	d.recorder.IncCommand(j.name, resultLabel(res.err))
	if res.err != nil && resultLabel(res.err) == metrics.ResultFailed {
		slog.Error("Command failed", logfields.Command(j.name), logfields.Error(res.err))
	}
	if j.reply != nil {
		j.reply <- res
	}
}

func resultLabel(err error) metrics.ResultLabel {
	if err == nil {
		return metrics.ResultSuccess
	}
	var te *tracker.Error
	if errors.As(err, &te) && te.Code != tracker.ErrLockAcquisitionFailed.Code {
		return metrics.ResultRejected
	}
	return metrics.ResultFailed
}

// Do submits fn and waits for its result.
func (d *Dispatcher) Do(ctx context.Context, name string, fn func() (any, error)) (any, error) {
	reply := make(chan result, 1)
	select {
	case d.queue <- job{name: name, fn: fn, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.done:
		return nil, ErrStopped
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.done:
		// The command may have completed just before exit.
		select {
		case r := <-reply:
			return r.value, r.err
		default:
			return nil, ErrStopped
		}
	}
}

// Post submits fn without waiting. It never blocks.
func (d *Dispatcher) Post(name string, fn func() (any, error)) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case d.queue <- job{name: name, fn: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}

// dispatch is Do with a typed result.
func dispatch[T any](ctx context.Context, d *Dispatcher, name string, fn func() (T, error)) (T, error) {
	var out T
	_, err := d.Do(ctx, name, func() (any, error) {
		v, err := fn()
		out = v
		return nil, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
