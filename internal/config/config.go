package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// Config is the root configuration for stt, stored in ~/.stt/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	Tracker  TrackerConfig  `json:"tracker"`
	Poller   PollerConfig   `json:"poller"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Daemon   DaemonConfig   `json:"daemon"`
}

// TrackerConfig holds the noise filters of the state machine.
type TrackerConfig struct {
	// GapThresholdSeconds is the longest step between two accounting ticks still counted.
	GapThresholdSeconds int `json:"gap_threshold_seconds"`
	// MinLapSeconds is the length a lap must exceed to survive "stt lap".
	MinLapSeconds int `json:"min_lap_seconds"`
	// DiscardBelowSeconds is the length under which "stt stop" drops the lap.
	DiscardBelowSeconds int `json:"discard_below_seconds"`
}

// PollerConfig controls lock and sleep detection.
type PollerConfig struct {
	IntervalMillis int `json:"interval_ms"`
	LockDebounce   int `json:"lock_debounce"`
	SleepDebounce  int `json:"sleep_debounce"`
	// LockCommand replaces the platform lock probe. The screen counts as
	// locked when the command exits 0.
	LockCommand []string `json:"lock_command"`
	Disabled    bool     `json:"disabled"`
}

// SnapshotConfig controls the periodic state.json writer.
type SnapshotConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// DaemonConfig controls the background process.
type DaemonConfig struct {
	Addr           string `json:"addr"`
	LogLevel       string `json:"log_level"`
	DisableMetrics bool   `json:"disable_metrics"`
	DisableJournal bool   `json:"disable_journal"`
}

const (
	DefaultGapThresholdSeconds = 5
	DefaultMinLapSeconds       = 1
	DefaultDiscardBelowSeconds = 3
	DefaultPollIntervalMillis  = 1000
	DefaultLockDebounce        = 2
	DefaultSleepDebounce       = 1
	DefaultSnapshotSeconds     = 30
	DefaultAddr                = "127.0.0.1:7431"
	DefaultLogLevel            = "info"

	FileName = "config.json"
	EnvFile  = ".env"
)

// Default returns a Config pre-filled with the built-in defaults.
func Default() Config {
	cfg := Config{}
	cfg.fillDefaults()
	return cfg
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// stt configuration – ~/.stt/config.json
//
// All settings are optional; the defaults below are what stt uses when a
// value is missing or zero. Thresholds are reloaded while "stt run" is running.
{
  // ── Time accounting ───────────────────────────────────────────────────────
  "tracker": {
    // A step between two accounting ticks longer than this is treated as an
    // undetected suspend and not counted.
    "gap_threshold_seconds": 5,

    // "stt lap" keeps the running lap only if it is longer than this.
    "min_lap_seconds": 1,

    // "stt stop" drops the running lap if it is shorter than this.
    "discard_below_seconds": 3
  },

  // ── Lock / sleep detection ────────────────────────────────────────────────
  "poller": {
    "interval_ms": 1000,

    // Consecutive identical samples required before a lock/unlock fires.
    "lock_debounce": 2,
    "sleep_debounce": 1,

    // Optional command replacing the built-in lock probe; exit status 0 = locked.
    // e.g. ["sh", "-c", "pgrep -x swaylock"]
    "lock_command": [],

    "disabled": false
  },

  "snapshot": {
    // How often ~/.stt/state.json is rewritten while the daemon runs.
    "interval_seconds": 30
  },

  "daemon": {
    // Listen address of "stt run"; other commands talk to it.
    "addr": "127.0.0.1:7431",
    // debug, info, warn, error
    "log_level": "info",
    "disable_metrics": false,
    "disable_journal": false
  }
}
`

// FilePath returns the path of the config file inside base.
func FilePath(base string) string {
	return filepath.Join(base, FileName)
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads base/config.json, creating it with annotated defaults on first
// run. base/.env is loaded into the environment first (existing variables
// win), then STT_ADDR and STT_LOG_LEVEL override the file.
func Load(base string) (Config, error) {
	envPath := filepath.Join(base, EnvFile)
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not load env file", logfields.Path(envPath), logfields.Error(err))
	}

	cfg, err := Read(base)
	if err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Read parses base/config.json without consulting the environment.
func Read(base string) (Config, error) {
	path := FilePath(base)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			slog.Warn("Could not create config file", logfields.Path(path), logfields.Error(writeErr))
		}
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	if c.Tracker.GapThresholdSeconds <= 0 {
		c.Tracker.GapThresholdSeconds = DefaultGapThresholdSeconds
	}
	if c.Tracker.MinLapSeconds <= 0 {
		c.Tracker.MinLapSeconds = DefaultMinLapSeconds
	}
	if c.Tracker.DiscardBelowSeconds <= 0 {
		c.Tracker.DiscardBelowSeconds = DefaultDiscardBelowSeconds
	}
	if c.Poller.IntervalMillis <= 0 {
		c.Poller.IntervalMillis = DefaultPollIntervalMillis
	}
	// A poll slower than the gap threshold would turn every sample into a gap.
	if gapMillis := c.Tracker.GapThresholdSeconds * 1000; c.Poller.IntervalMillis >= gapMillis {
		c.Poller.IntervalMillis = gapMillis / 2
	}
	if c.Poller.LockDebounce <= 0 {
		c.Poller.LockDebounce = DefaultLockDebounce
	}
	if c.Poller.SleepDebounce <= 0 {
		c.Poller.SleepDebounce = DefaultSleepDebounce
	}
	if c.Snapshot.IntervalSeconds <= 0 {
		c.Snapshot.IntervalSeconds = DefaultSnapshotSeconds
	}
	if c.Daemon.Addr == "" {
		c.Daemon.Addr = DefaultAddr
	}
	if c.Daemon.LogLevel == "" {
		c.Daemon.LogLevel = DefaultLogLevel
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STT_ADDR"); v != "" {
		c.Daemon.Addr = v
	}
	if v := os.Getenv("STT_LOG_LEVEL"); v != "" {
		c.Daemon.LogLevel = v
	}
}

// TrackerPolicy converts the tracker section.
func (c Config) TrackerPolicy() tracker.Policy {
	return tracker.Policy{
		GapThreshold: time.Duration(c.Tracker.GapThresholdSeconds) * time.Second,
		MinLapLength: time.Duration(c.Tracker.MinLapSeconds) * time.Second,
		DiscardBelow: time.Duration(c.Tracker.DiscardBelowSeconds) * time.Second,
	}
}

// PollInterval returns the poller period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.IntervalMillis) * time.Millisecond
}

// TickInterval is the accounting tick period: the poll interval, but never
// more than half the gap threshold.
func (c Config) TickInterval() time.Duration {
	tick := c.PollInterval()
	if half := c.TrackerPolicy().GapThreshold / 2; half > 0 && tick > half {
		tick = half
	}
	return tick
}

// SnapshotInterval returns the snapshot writer period.
func (c Config) SnapshotInterval() time.Duration {
	return time.Duration(c.Snapshot.IntervalSeconds) * time.Second
}

// LogLevel parses Daemon.LogLevel, falling back to info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Daemon.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
