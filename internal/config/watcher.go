package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
)

// DefaultReloadDebounce collapses editor save bursts into one reload.
const DefaultReloadDebounce = 500 * time.Millisecond

// Watcher re-reads config.json when it changes and hands the result to a
// callback. Environment overrides are applied again on every reload.
type Watcher struct {
	base     string
	path     string
	debounce time.Duration
	onReload func(Config)
	watcher  *fsnotify.Watcher
	reloadCh chan struct{}
}

// NewWatcher watches base/config.json. onReload runs on the watcher's own
// goroutine and must not block for long.
func NewWatcher(base string, onReload func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return &Watcher{
		base:     abs,
		path:     FilePath(abs),
		debounce: DefaultReloadDebounce,
		onReload: onReload,
		watcher:  fw,
		reloadCh: make(chan struct{}, 1),
	}, nil
}

// SetDebounce overrides the reload debounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run watches until ctx is cancelled, then closes the underlying watcher.
// The directory is watched rather than the file so atomic saves
// (write tmp, rename) are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(w.base); err != nil {
		_ = w.watcher.Close()
		return fmt.Errorf("failed to watch config directory %s: %w", w.base, err)
	}
	slog.Info("Starting configuration watcher", logfields.Path(w.path))

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.reloadLoop(ctx)
	}()

	w.watchLoop(ctx)
	<-done
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", logfields.Error(err))
	}
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", logfields.Path(ev.Name), logfields.Event(ev.Op.String()))
				w.trigger()
			case ev.Has(fsnotify.Remove):
				slog.Warn("Config file removed", logfields.Path(ev.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) trigger() {
	select {
	case w.reloadCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.reloadCh:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Read(w.base)
	if err != nil {
		slog.Error("Failed to reload configuration", logfields.Error(err))
		return
	}
	cfg.applyEnv()
	slog.Info("Configuration reloaded", logfields.Path(w.path))
	w.onReload(cfg)
}
