package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCreatesTemplateOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	data, err := os.ReadFile(FilePath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"gap_threshold_seconds": 5`)

	// The template must parse back to the defaults.
	again, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), again)
}

func TestReadPartialFileFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `// comment line
{
  // another
  "tracker": {"discard_below_seconds": 10},
  "daemon": {"addr": "127.0.0.1:9000"}
}`
	require.NoError(t, os.WriteFile(FilePath(dir), []byte(content), 0o600))

	cfg, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Tracker.DiscardBelowSeconds)
	assert.Equal(t, DefaultGapThresholdSeconds, cfg.Tracker.GapThresholdSeconds)
	assert.Equal(t, "127.0.0.1:9000", cfg.Daemon.Addr)
	assert.Equal(t, DefaultLockDebounce, cfg.Poller.LockDebounce)

	p := cfg.TrackerPolicy()
	assert.Equal(t, 10*time.Second, p.DiscardBelow)
	assert.Equal(t, 5*time.Second, p.GapThreshold)
	assert.Equal(t, time.Second, p.MinLapLength)
}

func TestReadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(FilePath(dir), []byte("{not json"), 0o600))

	cfg, err := Read(dir)
	require.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STT_ADDR", "127.0.0.1:1234")
	t.Setenv("STT_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.Daemon.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	// Register the variable with t.Setenv so it is restored, then clear it so
	// the .env file can provide it.
	t.Setenv("STT_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("STT_LOG_LEVEL"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFile), []byte("STT_LOG_LEVEL=warn\n"), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}

func TestLogLevelFallback(t *testing.T) {
	cfg := Default()
	cfg.Daemon.LogLevel = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	cfg.Daemon.LogLevel = "ERROR"
	assert.Equal(t, slog.LevelError, cfg.LogLevel())
}

func TestIntervals(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 30*time.Second, cfg.SnapshotInterval())
}

func TestReadClampsPollIntervalBelowGapThreshold(t *testing.T) {
	dir := t.TempDir()
	content := `{"tracker": {"gap_threshold_seconds": 5}, "poller": {"interval_ms": 8000}}`
	require.NoError(t, os.WriteFile(FilePath(dir), []byte(content), 0o600))

	cfg, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, 2500, cfg.Poller.IntervalMillis)
	assert.Equal(t, 2500*time.Millisecond, cfg.TickInterval())
}

func TestTickInterval(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.TickInterval())

	cfg.Tracker.GapThresholdSeconds = 1
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval(), "capped at half the gap threshold")

	cfg.Poller.Disabled = true
	cfg.Poller.IntervalMillis = 10
	assert.Equal(t, 10*time.Millisecond, cfg.TickInterval())
}

func TestStripLineComments(t *testing.T) {
	in := []byte("  // a\n{\"x\": 1}\n\t// b\n")
	assert.Equal(t, "{\"x\": 1}\n\n", string(stripLineComments(in)))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(dir)
	require.NoError(t, err)

	got := make(chan Config, 4)
	w, err := NewWatcher(dir, func(c Config) { got <- c })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(FilePath(dir), []byte(`{"tracker": {"gap_threshold_seconds": 9}}`), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-got:
			if cfg.Tracker.GapThresholdSeconds == 9 {
				return
			}
		case <-deadline:
			t.Fatal("config reload not observed")
		}
	}
}
