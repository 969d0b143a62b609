// Package daemon runs the tracker as a long-lived process: it restores the
// last snapshot, polls the host for lock and sleep, persists state, and
// serves the command surface over local HTTP.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Tiliavir/screen-time-tracker/internal/api"
	"github.com/Tiliavir/screen-time-tracker/internal/clock"
	"github.com/Tiliavir/screen-time-tracker/internal/config"
	"github.com/Tiliavir/screen-time-tracker/internal/journal"
	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
	"github.com/Tiliavir/screen-time-tracker/internal/metrics"
	"github.com/Tiliavir/screen-time-tracker/internal/signal"
	"github.com/Tiliavir/screen-time-tracker/internal/storage"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

const shutdownTimeout = 5 * time.Second

// Daemon owns the tracker and everything that drives it.
type Daemon struct {
	cfg   config.Config
	base  string
	clock clock.Clock

	tracker    *tracker.Tracker
	dispatcher *Dispatcher
	persister  *Persister
	poller     *signal.Poller
	scheduler  *Scheduler
	service    *Service

	recorder metrics.Recorder
	prom     *metrics.PrometheusRecorder
	journal  *journal.SQLiteStore
	jwriter  *journal.Writer

	watchConfig bool
	workers     WorkerGroup
	probeErrors probeErrors
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(d *Daemon) { d.clock = c }
}

// WithProber replaces the platform lock and sleep probes.
func WithProber(p signal.Prober) Option {
	return func(d *Daemon) {
		d.poller = signal.NewPoller(p, d.cfg.Poller.LockDebounce, d.cfg.Poller.SleepDebounce)
	}
}

// WithoutConfigWatch disables hot reload of config.json.
func WithoutConfigWatch() Option {
	return func(d *Daemon) { d.watchConfig = false }
}

// New assembles a daemon storing its data below base.
func New(cfg config.Config, base string, opts ...Option) (*Daemon, error) {
	d := &Daemon{
		cfg:         cfg,
		base:        base,
		clock:       clock.System(),
		recorder:    metrics.NoopRecorder{},
		watchConfig: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if !cfg.Daemon.DisableMetrics {
		d.prom = metrics.NewPrometheusRecorder(prom.NewRegistry())
		d.recorder = d.prom
	}

	d.tracker = tracker.New(
		tracker.WithClock(d.clock),
		tracker.WithPolicy(cfg.TrackerPolicy()),
		tracker.WithObserver(metricsObserver{rec: d.recorder}),
		tracker.WithObserver(logObserver{}),
	)
	d.dispatcher = NewDispatcher(DefaultQueueSize, d.recorder)
	d.persister = NewPersister(base, d.tracker, d.recorder)
	d.tracker.AddObserver(d.persister)

	if !cfg.Daemon.DisableJournal {
		store, err := journal.NewSQLiteStore(filepath.Join(base, journal.FileName))
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		d.journal = store
		d.jwriter = journal.NewWriter(store, journal.DefaultBuffer)
		d.tracker.AddObserver(d.jwriter)
	}

	if d.poller == nil && !cfg.Poller.Disabled {
		lock, err := d.lockProber()
		if err != nil {
			return nil, err
		}
		sleep := signal.NewClockJumpProbe(d.clock, signal.DefaultJumpThreshold, cfg.Poller.SleepDebounce)
		d.poller = signal.NewSplitPoller(lock, sleep, cfg.Poller.LockDebounce, cfg.Poller.SleepDebounce)
	}

	d.service = &Service{
		tracker:    d.tracker,
		dispatcher: d.dispatcher,
		clock:      d.clock,
		base:       base,
	}
	if d.journal != nil {
		d.service.journal = d.journal
	}
	return d, nil
}

func (d *Daemon) lockProber() (signal.Prober, error) {
	if len(d.cfg.Poller.LockCommand) == 0 {
		return signal.PlatformLockProbe(), nil
	}
	p, err := signal.NewCommandLockProbe(d.cfg.Poller.LockCommand)
	if err != nil {
		return nil, fmt.Errorf("poller lock_command: %w", err)
	}
	return p, nil
}

// Service returns the command surface.
func (d *Daemon) Service() *Service { return d.service }

// Tracker returns the underlying tracker.
func (d *Daemon) Tracker() *tracker.Tracker { return d.tracker }

// Restore loads state.json into the tracker and archives the days it
// finalized. A corrupt snapshot has been moved aside by the store; the
// daemon then starts empty.
func (d *Daemon) Restore() (tracker.RestoreResult, error) {
	snap, found, err := storage.LoadSnapshot(d.base)
	if errors.Is(err, storage.ErrCorrupt) {
		slog.Warn("Snapshot was corrupt, starting with empty state", logfields.Error(err))
		return tracker.RestoreResult{}, nil
	}
	if err != nil {
		return tracker.RestoreResult{}, err
	}
	if !found {
		return tracker.RestoreResult{}, nil
	}

	today := timecalc.DayKey(d.clock.Now().Wall)
	res, err := d.tracker.Restore(snap, today)
	if err != nil {
		return res, fmt.Errorf("restoring snapshot: %w", err)
	}
	if res.Discarded != "" {
		slog.Info("Discarded session from another day", logfields.Day(res.Discarded))
	}
	if res.Restored {
		slog.Info("Restored session, paused until resumed", logfields.Day(today))
	}
	for _, day := range res.Finalized {
		rec, ok, err := d.tracker.Record(day)
		if err != nil || !ok {
			continue
		}
		if err := storage.SaveDay(d.base, rec); err != nil {
			slog.Error("Failed to archive day", logfields.Day(day), logfields.Error(err))
		}
	}
	return res, nil
}

// Run restores state, starts the background jobs and serves HTTP until ctx
// is cancelled. A final snapshot is written on the way out.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.Restore(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", d.cfg.Daemon.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.cfg.Daemon.Addr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve is Run on an existing listener and without the restore step.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	d.workers.Go(func() { d.dispatcher.Run(runCtx) })
	d.workers.Go(func() { d.persister.Run(runCtx) })
	if d.jwriter != nil {
		d.workers.Go(func() { d.jwriter.Run(runCtx) })
	}
	if d.watchConfig {
		d.startConfigWatcher(runCtx)
	}

	sched, err := NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}
	d.scheduler = sched
	if err := d.scheduleJobs(runCtx); err != nil {
		_ = sched.Stop()
		return err
	}
	sched.Start()

	var metricsHandler http.Handler
	if d.prom != nil {
		metricsHandler = d.prom.Handler()
	}
	srv := &http.Server{
		Handler:           api.NewServer(d.service, metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	slog.Info("Daemon listening", logfields.Addr(ln.Addr().String()))

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
	}
	return errors.Join(runErr, d.shutdown(srv, stop))
}

func (d *Daemon) scheduleJobs(ctx context.Context) error {
	if d.poller != nil {
		if _, err := d.scheduler.ScheduleEvery("poller", d.cfg.PollInterval(), func() { d.sample(ctx) }); err != nil {
			return err
		}
	}
	if _, err := d.scheduler.ScheduleEvery("tick", d.cfg.TickInterval(), d.tick); err != nil {
		return err
	}
	_, err := d.scheduler.ScheduleEvery("snapshot", d.cfg.SnapshotInterval(), d.persister.Request)
	return err
}

// sample runs one poller cycle and forwards the edges it produced.
func (d *Daemon) sample(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, d.cfg.PollInterval()+signal.DefaultCommandTimeout)
	defer cancel()

	events, err := d.poller.Sample(probeCtx)
	if d.probeErrors.changed(err) {
		if err != nil {
			slog.Warn("Signal probe failing, its condition is held until it recovers", logfields.Error(err))
		} else {
			slog.Info("Signal probe recovered")
		}
	} else if err != nil {
		slog.Debug("Signal probe still failing", logfields.Error(err))
	}
	for _, ev := range events {
		d.recorder.IncSignal(string(ev))
		slog.Info("Signal detected", logfields.Event(string(ev)))
		if err := d.service.postEvent(ev); err != nil {
			slog.Warn("Could not queue signal", logfields.Event(string(ev)), logfields.Error(err))
		}
	}
}

// tick queues an accounting tick. It runs whether or not the poller does.
func (d *Daemon) tick() {
	if err := d.dispatcher.Post("tick", func() (any, error) { return nil, d.tracker.Tick() }); err != nil {
		slog.Debug("Could not queue tick", logfields.Error(err))
	}
}

func (d *Daemon) startConfigWatcher(ctx context.Context) {
	w, err := config.NewWatcher(d.base, func(cfg config.Config) {
		policy := cfg.TrackerPolicy()
		err := d.dispatcher.Post("set_policy", func() (any, error) {
			return nil, d.tracker.SetPolicy(policy)
		})
		if err != nil {
			slog.Warn("Could not apply reloaded thresholds", logfields.Error(err))
		}
	})
	if err != nil {
		slog.Warn("Config hot reload unavailable", logfields.Error(err))
		return
	}
	d.workers.Go(func() {
		if err := w.Run(ctx); err != nil {
			slog.Warn("Config watcher stopped", logfields.Error(err))
		}
	})
}

func (d *Daemon) shutdown(srv *http.Server, stop context.CancelFunc) error {
	slog.Info("Shutting down daemon")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := d.scheduler.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}
	stop()
	if err := d.workers.StopAndWait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for workers: %w", err))
	}
	if err := d.persister.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("final snapshot: %w", err))
	}
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing journal: %w", err))
		}
	}
	return errors.Join(errs...)
}
