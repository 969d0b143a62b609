package tracker

import "time"

const (
	DefaultGapThreshold = 5 * time.Second
	DefaultMinLapLength = 1 * time.Second
	DefaultDiscardBelow = 3 * time.Second
)

// Policy holds the noise filters of the state machine. None of the defaults
// has a derivation; they are tunable.
type Policy struct {
	// GapThreshold is the largest elapsed time between two accounting ticks
	// that is still counted. Anything longer is treated as an undetected suspend.
	GapThreshold time.Duration
	// MinLapLength is the length an open lap must exceed for AddLap to keep it.
	MinLapLength time.Duration
	// DiscardBelow is the length under which StopLap drops the open lap.
	DiscardBelow time.Duration
}

// DefaultPolicy returns 5s / 1s / 3s.
func DefaultPolicy() Policy {
	return Policy{
		GapThreshold: DefaultGapThreshold,
		MinLapLength: DefaultMinLapLength,
		DiscardBelow: DefaultDiscardBelow,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.GapThreshold <= 0 {
		p.GapThreshold = d.GapThreshold
	}
	if p.MinLapLength < 0 {
		p.MinLapLength = d.MinLapLength
	}
	if p.DiscardBelow < 0 {
		p.DiscardBelow = d.DiscardBelow
	}
	return p
}
