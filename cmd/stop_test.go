package cmd

import "testing"

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"}, // paused session: current_lap_duration is 0
		{2, "2s"}, // below the discard threshold
		{90, "1m 30s"},
		{5400, "1h 30m 0s"},
		{86399, "23h 59m 59s"}, // longest lap a day can hold
	}
	for _, tt := range tests {
		got := formatElapsed(tt.seconds)
		if got != tt.want {
			t.Errorf("formatElapsed(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
