// Package metrics wires the orchestrator's counters and gauges into
// Prometheus, exposed over HTTP via promhttp (A3).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every exported series. It implements worker.Metrics
// so the job worker can report through it without importing the
// Prometheus client directly.
type Metrics struct {
	queueDepth          prometheus.Gauge
	jobsProcessed       *prometheus.CounterVec
	jobDuration         *prometheus.HistogramVec
	compositorReconnect prometheus.Counter
	healthScore         *prometheus.GaugeVec
	forwardDecisions    *prometheus.CounterVec
}

// New registers every series against reg and returns the handle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "motherstream_queue_depth",
			Help: "Number of DJs currently queued, including the lead.",
		}),
		jobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "motherstream_jobs_processed_total",
			Help: "Jobs completed by the worker, by job type.",
		}, []string{"job_type"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "motherstream_job_duration_seconds",
			Help:    "Job execution time, by job type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_type"}),
		compositorReconnect: factory.NewCounter(prometheus.CounterOpts{
			Name: "motherstream_compositor_reconnects_total",
			Help: "Compositor client reconnect attempts, successful or not.",
		}),
		healthScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "motherstream_health_score",
			Help: "Most recent health score per monitored source.",
		}, []string{"source"}),
		forwardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "motherstream_forward_decisions_total",
			Help: "Ingest control decisions, by outcome.",
		}, []string{"decision"}),
	}
}

// JobProcessed implements worker.Metrics.
func (m *Metrics) JobProcessed(jobType string, duration time.Duration) {
	m.jobsProcessed.WithLabelValues(jobType).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// SetQueueDepth records the current queue length.
func (m *Metrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// CompositorReconnected implements compositor.Options.OnReconnect.
func (m *Metrics) CompositorReconnected() {
	m.compositorReconnect.Inc()
}

// SetHealthScore records the latest score for source.
func (m *Metrics) SetHealthScore(source string, score int) {
	m.healthScore.WithLabelValues(source).Set(float64(score))
}

// ForwardDecision records one ingest control outcome: "forward",
// "queued", "rejected", or "not-forward".
func (m *Metrics) ForwardDecision(decision string) {
	m.forwardDecisions.WithLabelValues(decision).Inc()
}
