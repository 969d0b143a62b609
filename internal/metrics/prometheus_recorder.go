package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stt"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	commands      *prom.CounterVec
	transitions   *prom.CounterVec
	lapSeconds    prom.Histogram
	excludedGaps  prom.Counter
	signals       *prom.CounterVec
	snapshots     *prom.CounterVec
	sessionActive prom.Gauge
}

// NewPrometheusRecorder registers the metrics on reg, or on a fresh registry
// when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Tracker commands by name and outcome",
		}, []string{"command", "result"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State-machine transitions by kind",
		}, []string{"kind"}),
		lapSeconds: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "lap_duration_seconds",
			Help:      "Duration of closed laps",
			Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		excludedGaps: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "excluded_gap_seconds_total",
			Help:      "Elapsed seconds not counted because they looked like an undetected suspend",
		}),
		signals: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Lock and sleep edges emitted by the poller",
		}, []string{"event"}),
		snapshots: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Snapshot writes by outcome",
		}, []string{"result"}),
		sessionActive: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "1 while time is accruing",
		}),
	}
	reg.MustRegister(pr.commands, pr.transitions, pr.lapSeconds, pr.excludedGaps, pr.signals, pr.snapshots, pr.sessionActive)
	return pr
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncCommand(command string, result ResultLabel) {
	p.commands.WithLabelValues(command, string(result)).Inc()
}

func (p *PrometheusRecorder) IncTransition(kind string) {
	p.transitions.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) ObserveLapSeconds(seconds int64) {
	p.lapSeconds.Observe(float64(seconds))
}

func (p *PrometheusRecorder) AddExcludedGapSeconds(seconds int64) {
	if seconds <= 0 {
		return
	}
	p.excludedGaps.Add(float64(seconds))
}

func (p *PrometheusRecorder) IncSignal(event string) {
	p.signals.WithLabelValues(event).Inc()
}

func (p *PrometheusRecorder) IncSnapshotWrite(success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.snapshots.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetSessionActive(active bool) {
	if active {
		p.sessionActive.Set(1)
		return
	}
	p.sessionActive.Set(0)
}
