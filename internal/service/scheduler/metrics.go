package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for retraining cycles.
type Metrics struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	running       prometheus.Gauge
	totalLabels   prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewMetrics creates and registers scheduler metrics with the given registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retrainer_cycles_total",
			Help: "Total number of retraining cycles by result",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retrainer_cycle_duration_seconds",
			Help:    "Duration of retraining cycles",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retrainer_running",
			Help: "Whether a retraining cycle is in progress",
		}),
		totalLabels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retrainer_total_labels",
			Help: "Number of labels seen by the most recent cycle",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retrainer_last_success_timestamp_seconds",
			Help: "Unix time of the last successful retraining",
		}),
	}

	// Expose every result label from the start.
	for _, r := range []string{"success", "failure", "skipped"} {
		m.cycles.WithLabelValues(r)
	}

	registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.running,
		m.totalLabels,
		m.lastSuccess,
	)

	return m
}

// CycleStarted marks a cycle as in progress.
func (m *Metrics) CycleStarted() {
	if m == nil {
		return
	}
	m.running.Set(1)
}

// CycleFinished records the outcome of a cycle.
func (m *Metrics) CycleFinished(result string, duration time.Duration, labels int, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.running.Set(0)
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(duration.Seconds())
	if labels >= 0 {
		m.totalLabels.Set(float64(labels))
	}
	if result == "success" {
		m.lastSuccess.Set(float64(finishedAt.Unix()))
	}
}
