package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/screen-time-tracker/internal/api"
	"github.com/Tiliavir/screen-time-tracker/internal/clock"
	"github.com/Tiliavir/screen-time-tracker/internal/config"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/signal"
	"github.com/Tiliavir/screen-time-tracker/internal/storage"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

var day0 = time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

type switchProber struct {
	locked atomic.Bool
}

func (p *switchProber) Poll(context.Context) (signal.State, error) {
	return signal.State{Locked: p.locked.Load()}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	// Accounting is driven by the manual clock, ticks arrive in real time.
	cfg.Tracker.GapThresholdSeconds = 3600
	cfg.Poller.IntervalMillis = 10
	cfg.Poller.LockDebounce = 2
	cfg.Snapshot.IntervalSeconds = 1
	return cfg
}

type harness struct {
	d      *Daemon
	client *api.Client
	clk    *clock.Manual
	probe  *switchProber
	base   string
	cancel context.CancelFunc
	done   chan error
}

func startDaemon(t *testing.T, cfg config.Config, base string) *harness {
	t.Helper()
	h := &harness{clk: clock.NewManual(day0), probe: &switchProber{}, base: base}
	opts := []Option{WithClock(h.clk), WithoutConfigWatch()}
	if !cfg.Poller.Disabled {
		opts = append(opts, WithProber(h.probe))
	}
	d, err := New(cfg, base, opts...)
	require.NoError(t, err)
	h.d = d

	_, err = d.Restore()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h.client = api.NewClient(ln.Addr().String())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- d.Serve(ctx, ln) }()

	require.Eventually(t, func() bool { return h.client.Health(context.Background()) == nil }, 2*time.Second, 10*time.Millisecond)
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestDaemonEndToEnd(t *testing.T) {
	base := t.TempDir()
	h := startDaemon(t, testConfig(), base)
	ctx := context.Background()

	msg, err := h.client.StartDay(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Started tracking for 2026-02-27", msg)

	_, err = h.client.StartDay(ctx)
	require.ErrorIs(t, err, tracker.ErrAlreadyActive)

	h.clk.Advance(90 * time.Second)
	st, err := h.client.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.IsActive)
	assert.EqualValues(t, 90, st.TotalSessionDuration)

	// The poller sees the lock and pauses the session.
	h.probe.locked.Store(true)
	require.Eventually(t, func() bool {
		s, err := h.client.Session(ctx)
		return err == nil && s != nil && s.Paused && s.Origin == model.PauseSystem
	}, 2*time.Second, 10*time.Millisecond)

	h.probe.locked.Store(false)
	require.Eventually(t, func() bool {
		s, err := h.client.Session(ctx)
		return err == nil && s != nil && !s.Paused
	}, 2*time.Second, 10*time.Millisecond)

	h.clk.Advance(30 * time.Second)
	rec, err := h.client.EndDay(ctx)
	require.NoError(t, err)
	assert.False(t, rec.IsActive)
	assert.EqualValues(t, 120, rec.TotalDuration)
	require.Len(t, rec.Laps, 2)

	st, err = h.client.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(base, "2026", "02", "27.json"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	laps, err := h.client.Laps(ctx, "2026-02-27")
	require.NoError(t, err)
	assert.Len(t, laps, 2)

	_, err = h.client.Laps(ctx, "2026-01-01")
	require.ErrorIs(t, err, tracker.ErrRecordNotFound)
	_, err = h.client.Laps(ctx, "yesterday")
	require.ErrorIs(t, err, api.ErrInvalidDay)

	_, err = h.client.Signal(ctx, "reboot")
	require.ErrorIs(t, err, api.ErrUnknownSignal)

	require.Eventually(t, func() bool {
		entries, err := h.client.Journal(ctx, "2026-02-27")
		if err != nil {
			return false
		}
		for _, e := range entries {
			if e.Kind == string(tracker.KindDayEnded) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	h.stop(t)

	snap, found, err := storage.LoadSnapshot(base)
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, snap.CurrentSession)
	assert.EqualValues(t, 120, snap.DayRecords["2026-02-27"].TotalDuration)
}

func TestDaemonAccruesWithPollerDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Tracker.GapThresholdSeconds = 5
	cfg.Poller.Disabled = true
	cfg.Daemon.DisableJournal = true
	h := startDaemon(t, cfg, t.TempDir())
	defer h.stop(t)
	ctx := context.Background()

	_, err := h.client.StartDay(ctx)
	require.NoError(t, err)

	// Ticks run every 10ms in real time while the clock moves a second per step.
	for range 20 {
		h.clk.Advance(time.Second)
		time.Sleep(30 * time.Millisecond)
	}

	rec, err := h.client.EndDay(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20, rec.TotalDuration)
}

func TestProbeErrorsReportedOnChange(t *testing.T) {
	var p probeErrors
	assert.False(t, p.changed(nil))
	assert.True(t, p.changed(errors.New("loginctl: executable file not found")))
	assert.False(t, p.changed(errors.New("loginctl: executable file not found")))
	assert.True(t, p.changed(nil))
	assert.False(t, p.changed(nil))
}

func TestDaemonRestoresSameDaySessionPaused(t *testing.T) {
	base := t.TempDir()
	start := day0.Unix()
	require.NoError(t, storage.SaveSnapshot(base, model.Snapshot{
		CurrentSession: &model.SessionSnapshot{
			DayKey:                   "2026-02-27",
			CurrentLapStartTimestamp: start,
			AccumulatedSeconds:       600,
		},
		DayRecords: map[string]model.DayRecord{
			"2026-02-27": {Date: "2026-02-27", IsActive: true, Laps: []model.Lap{{StartTime: start}}},
		},
	}))

	cfg := testConfig()
	cfg.Daemon.DisableJournal = true
	h := startDaemon(t, cfg, base)
	defer h.stop(t)
	ctx := context.Background()

	s, err := h.client.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Paused)
	assert.Equal(t, model.PauseSystem, s.Origin)
	assert.EqualValues(t, 600, s.AccumulatedSeconds)

	laps, err := h.client.Laps(ctx, "")
	require.NoError(t, err)
	require.Len(t, laps, 1)
	require.NotNil(t, laps[0].Duration)
	assert.EqualValues(t, 600, *laps[0].Duration)

	_, err = h.client.Journal(ctx, "")
	require.ErrorIs(t, err, api.ErrUnavailable)
}

func TestDaemonRestoreArchivesStaleDay(t *testing.T) {
	base := t.TempDir()
	prev := day0.Add(-24 * time.Hour).Unix()
	require.NoError(t, storage.SaveSnapshot(base, model.Snapshot{
		CurrentSession: &model.SessionSnapshot{
			DayKey:                   "2026-02-26",
			CurrentLapStartTimestamp: prev,
			AccumulatedSeconds:       300,
		},
		DayRecords: map[string]model.DayRecord{
			"2026-02-26": {Date: "2026-02-26", IsActive: true, Laps: []model.Lap{{StartTime: prev}}},
		},
	}))

	d, err := New(testConfig(), base, WithClock(clock.NewManual(day0)), WithProber(signal.Never), WithoutConfigWatch())
	require.NoError(t, err)
	res, err := d.Restore()
	require.NoError(t, err)
	assert.Equal(t, "2026-02-26", res.Discarded)
	assert.Equal(t, []string{"2026-02-26"}, res.Finalized)

	rec, found, err := storage.LoadDay(base, "2026-02-26")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, rec.IsActive)
	assert.EqualValues(t, 300, rec.TotalDuration)
	require.NoError(t, d.journal.Close())
}

func TestDaemonCorruptSnapshotStartsEmpty(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(storage.StatePath(base), []byte("{nope"), 0o600))

	cfg := testConfig()
	cfg.Daemon.DisableJournal = true
	d, err := New(cfg, base, WithClock(clock.NewManual(day0)), WithProber(signal.Never), WithoutConfigWatch())
	require.NoError(t, err)
	res, err := d.Restore()
	require.NoError(t, err)
	assert.False(t, res.Restored)
	_, ok := d.Tracker().State()
	assert.False(t, ok)
}
