package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the retention scheduler.
type Metrics struct {
	Registered *prometheus.CounterVec
	Due        prometheus.Counter
	Deleted    *prometheus.CounterVec
	Failed     *prometheus.CounterVec
	Escalated  prometheus.Counter
	RunLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_retention_registrations_total",
			Help: "Deletion obligations registered by data category",
		}, []string{"category"}),
		Due: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_retention_due_total",
			Help: "Registrations picked up by the scheduler",
		}),
		Deleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_retention_deleted_total",
			Help: "Registrations whose data was deleted, by category",
		}, []string{"category"}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_retention_failures_total",
			Help: "Failed deletion attempts by category",
		}, []string{"category"}),
		Escalated: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_retention_escalated_total",
			Help: "Registrations escalated after missing the grace window",
		}),
		RunLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_retention_run_duration_seconds",
			Help:    "Duration of one scheduler pass",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncRegistered(category string) {
	if m == nil {
		return
	}
	m.Registered.WithLabelValues(category).Inc()
}

func (m *Metrics) AddDue(n int) {
	if m == nil {
		return
	}
	m.Due.Add(float64(n))
}

func (m *Metrics) IncDeleted(category string) {
	if m == nil {
		return
	}
	m.Deleted.WithLabelValues(category).Inc()
}

func (m *Metrics) IncFailed(category string) {
	if m == nil {
		return
	}
	m.Failed.WithLabelValues(category).Inc()
}

func (m *Metrics) IncEscalated() {
	if m == nil {
		return
	}
	m.Escalated.Inc()
}

func (m *Metrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.RunLatency.Observe(seconds)
}
