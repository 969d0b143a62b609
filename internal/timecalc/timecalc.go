package timecalc

import (
	"fmt"
	"time"
)

// DayKeyLayout is the layout of ledger keys and archive file names.
const DayKeyLayout = "2006-01-02"

// DayKey returns the ledger key for t. Day boundaries are UTC so a session is
// attributed to the same day regardless of the host's local zone.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD key into midnight UTC of that day.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return t, nil
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatClock renders an epoch-seconds timestamp as local HH:MM:SS.
func FormatClock(epoch int64) string {
	return time.Unix(epoch, 0).Local().Format("15:04:05")
}

// Seconds truncates d to whole seconds.
func Seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
