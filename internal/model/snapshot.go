package model

// SessionSnapshot is the persisted form of the in-memory session.
type SessionSnapshot struct {
	DayKey                   string      `json:"day_key"`
	CurrentLapStartTimestamp int64       `json:"current_lap_start_timestamp"`
	AccumulatedSeconds       int64       `json:"accumulated_seconds"`
	IsPaused                 bool        `json:"is_paused"`
	PauseOrigin              PauseOrigin `json:"pause_origin,omitempty"`
}

// Snapshot is the top-level structure stored in ~/.stt/state.json.
type Snapshot struct {
	CurrentSession *SessionSnapshot     `json:"current_session"`
	DayRecords     map[string]DayRecord `json:"day_records"`
}
