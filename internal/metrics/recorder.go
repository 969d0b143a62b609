// Package metrics defines the observability hooks of the tracker daemon and
// their Prometheus implementation.
package metrics

// ResultLabel enumerates command outcomes.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultRejected ResultLabel = "rejected"
	ResultFailed   ResultLabel = "failed"
)

// Recorder receives daemon measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncCommand(command string, result ResultLabel)
	IncTransition(kind string)
	ObserveLapSeconds(seconds int64)
	AddExcludedGapSeconds(seconds int64)
	IncSignal(event string)
	IncSnapshotWrite(success bool)
	SetSessionActive(active bool)
}

// NoopRecorder is the default when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) IncCommand(string, ResultLabel) {}
func (NoopRecorder) IncTransition(string)           {}
func (NoopRecorder) ObserveLapSeconds(int64)        {}
func (NoopRecorder) AddExcludedGapSeconds(int64)    {}
func (NoopRecorder) IncSignal(string)               {}
func (NoopRecorder) IncSnapshotWrite(bool)          {}
func (NoopRecorder) SetSessionActive(bool)          {}
