package compliance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for compliance audit emission.
type Metrics struct {
	EventsEmitted   prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers compliance audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_audit_compliance_emitted_total",
			Help: "Total number of compliance audit events persisted",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_audit_compliance_persist_failures_total",
			Help: "Total number of compliance audit writes that failed and aborted the caller",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_audit_compliance_persist_duration_seconds",
			Help:    "Latency of compliance audit writes",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEventsEmitted() {
	if m == nil {
		return
	}
	m.EventsEmitted.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(d.Seconds())
}
