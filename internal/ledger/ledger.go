// Package ledger holds the per-day lap records. A Ledger is not safe for
// concurrent use; the tracker serializes access to it.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
)

var (
	ErrRecordNotFound = errors.New("day record not found")
	ErrNoOpenLap      = errors.New("no open lap")
	ErrLapAlreadyOpen = errors.New("a lap is already open")
)

// Ledger maps day keys to their records.
type Ledger struct {
	records map[string]*model.DayRecord
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{records: make(map[string]*model.DayRecord)}
}

// Begin marks the record for day as active and opens a lap at start. A record
// that was ended earlier the same day is reopened and keeps its laps.
func (l *Ledger) Begin(day string, start int64) error {
	rec, ok := l.records[day]
	if !ok {
		rec = &model.DayRecord{Date: day, Laps: []model.Lap{}}
		l.records[day] = rec
	}
	rec.IsActive = true
	return l.OpenLap(day, start)
}

// OpenLap appends a new open lap.
func (l *Ledger) OpenLap(day string, start int64) error {
	rec, err := l.record(day)
	if err != nil {
		return err
	}
	if hasOpenLap(rec) {
		return fmt.Errorf("open lap on %s: %w", day, ErrLapAlreadyOpen)
	}
	rec.Laps = append(rec.Laps, model.Lap{StartTime: start})
	return nil
}

// CloseOpenLap sets end time and duration on the open lap and returns its index.
func (l *Ledger) CloseOpenLap(day string, end, duration int64) (int, error) {
	rec, err := l.record(day)
	if err != nil {
		return -1, err
	}
	if !hasOpenLap(rec) {
		return -1, fmt.Errorf("close lap on %s: %w", day, ErrNoOpenLap)
	}
	i := len(rec.Laps) - 1
	rec.Laps[i].EndTime = &end
	rec.Laps[i].Duration = &duration
	return i, nil
}

// DiscardOpenLap removes the open lap from the sequence and returns the index
// it occupied.
func (l *Ledger) DiscardOpenLap(day string) (int, error) {
	rec, err := l.record(day)
	if err != nil {
		return -1, err
	}
	if !hasOpenLap(rec) {
		return -1, fmt.Errorf("discard lap on %s: %w", day, ErrNoOpenLap)
	}
	i := len(rec.Laps) - 1
	rec.Laps = rec.Laps[:i]
	return i, nil
}

// HasOpenLap reports whether day has an open lap.
func (l *Ledger) HasOpenLap(day string) bool {
	rec, ok := l.records[day]
	return ok && hasOpenLap(rec)
}

// ClosedTotal sums the durations of the closed laps of day.
func (l *Ledger) ClosedTotal(day string) int64 {
	rec, ok := l.records[day]
	if !ok {
		return 0
	}
	return sumDurations(rec.Laps)
}

// Finalize freezes the total of day and marks it inactive.
func (l *Ledger) Finalize(day string) (model.DayRecord, error) {
	rec, err := l.record(day)
	if err != nil {
		return model.DayRecord{}, err
	}
	rec.TotalDuration = sumDurations(rec.Laps)
	rec.IsActive = false
	return rec.Clone(), nil
}

// Get returns a copy of the record for day.
func (l *Ledger) Get(day string) (model.DayRecord, bool) {
	rec, ok := l.records[day]
	if !ok {
		return model.DayRecord{}, false
	}
	return rec.Clone(), true
}

// Laps returns a copy of the laps of day, or an empty slice.
func (l *Ledger) Laps(day string) []model.Lap {
	rec, ok := l.records[day]
	if !ok {
		return []model.Lap{}
	}
	return rec.Clone().Laps
}

// Days returns the known day keys in ascending order.
func (l *Ledger) Days() []string {
	days := make([]string, 0, len(l.records))
	for k := range l.records {
		days = append(days, k)
	}
	sort.Strings(days)
	return days
}

// Export copies every record.
func (l *Ledger) Export() map[string]model.DayRecord {
	out := make(map[string]model.DayRecord, len(l.records))
	for k, rec := range l.records {
		out[k] = rec.Clone()
	}
	return out
}

// Import replaces the ledger contents. Map keys win over the Date field.
func (l *Ledger) Import(records map[string]model.DayRecord) {
	l.records = make(map[string]*model.DayRecord, len(records))
	for k, rec := range records {
		c := rec.Clone()
		c.Date = k
		l.records[k] = &c
	}
}

// OpenLapStart returns the start time of the open lap of day.
func (l *Ledger) OpenLapStart(day string) (int64, bool) {
	rec, ok := l.records[day]
	if !ok || !hasOpenLap(rec) {
		return 0, false
	}
	return rec.Laps[len(rec.Laps)-1].StartTime, true
}

func (l *Ledger) record(day string) (*model.DayRecord, error) {
	rec, ok := l.records[day]
	if !ok {
		return nil, fmt.Errorf("%s: %w", day, ErrRecordNotFound)
	}
	return rec, nil
}

func hasOpenLap(rec *model.DayRecord) bool {
	return len(rec.Laps) > 0 && rec.Laps[len(rec.Laps)-1].Open()
}

func sumDurations(laps []model.Lap) int64 {
	var total int64
	for _, lap := range laps {
		if lap.Duration != nil {
			total += *lap.Duration
		}
	}
	return total
}
