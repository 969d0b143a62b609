package model

// Lap is one contiguous interval of tracked work. Timestamps are epoch
// seconds (UTC). EndTime and Duration are nil while the lap is open.
type Lap struct {
	StartTime int64  `json:"start_time" yaml:"start_time"`
	EndTime   *int64 `json:"end_time" yaml:"end_time"`
	Duration  *int64 `json:"duration" yaml:"duration"`
}

// Open reports whether the lap has not been closed yet.
func (l Lap) Open() bool {
	return l.EndTime == nil
}

// DayRecord is the accounting of one calendar day, keyed by Date (YYYY-MM-DD, UTC).
type DayRecord struct {
	Date          string `json:"date" yaml:"date"`
	TotalDuration int64  `json:"total_duration" yaml:"total_duration"`
	Laps          []Lap  `json:"laps" yaml:"laps"`
	IsActive      bool   `json:"is_active" yaml:"is_active"`
}

// Clone returns a deep copy of the record.
func (r DayRecord) Clone() DayRecord {
	out := r
	out.Laps = make([]Lap, len(r.Laps))
	for i, l := range r.Laps {
		out.Laps[i] = l.clone()
	}
	return out
}

func (l Lap) clone() Lap {
	out := Lap{StartTime: l.StartTime}
	if l.EndTime != nil {
		end := *l.EndTime
		out.EndTime = &end
	}
	if l.Duration != nil {
		dur := *l.Duration
		out.Duration = &dur
	}
	return out
}

// PauseOrigin tells a manual pause apart from one caused by lock or sleep.
type PauseOrigin string

const (
	PauseNone   PauseOrigin = "none"
	PauseUser   PauseOrigin = "user"
	PauseSystem PauseOrigin = "system"
)

// Status is the live view of the current session.
type Status struct {
	DayKey               string `json:"day_key"`
	CurrentLapDuration   int64  `json:"current_lap_duration"`
	TotalSessionDuration int64  `json:"total_session_duration"`
	IsActive             bool   `json:"is_active"`
}
