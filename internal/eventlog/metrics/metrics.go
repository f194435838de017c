package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the event log.
type Metrics struct {
	AppendDuration  *prometheus.HistogramVec
	EventsAppended  *prometheus.CounterVec
	AppendConflicts *prometheus.CounterVec
	RelayPublished  prometheus.Counter
	RelayLag        prometheus.Gauge
	Consumed        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AppendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guardian_eventlog_append_duration_seconds",
			Help:    "Latency of event log appends",
			Buckets: prometheus.DefBuckets,
		}, []string{"aggregate_type"}),
		EventsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_eventlog_events_appended_total",
			Help: "Events committed to the log",
		}, []string{"aggregate_type"}),
		AppendConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_eventlog_append_conflicts_total",
			Help: "Appends rejected by optimistic concurrency",
		}, []string{"aggregate_type"}),
		RelayPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_eventlog_relay_published_total",
			Help: "Events published to the broker by the relay",
		}),
		RelayLag: f.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_eventlog_relay_batch_size",
			Help: "Size of the last relay batch; sustained maxima indicate lag",
		}),
		Consumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_eventlog_consumed_total",
			Help: "Events handled by subscribers, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveAppend(aggregateType string, d time.Duration, n int) {
	if m == nil {
		return
	}
	m.AppendDuration.WithLabelValues(aggregateType).Observe(d.Seconds())
	m.EventsAppended.WithLabelValues(aggregateType).Add(float64(n))
}

func (m *Metrics) IncConflict(aggregateType string) {
	if m == nil {
		return
	}
	m.AppendConflicts.WithLabelValues(aggregateType).Inc()
}

func (m *Metrics) AddPublished(n int) {
	if m == nil {
		return
	}
	m.RelayPublished.Add(float64(n))
	m.RelayLag.Set(float64(n))
}

func (m *Metrics) IncConsumed(outcome string) {
	if m == nil {
		return
	}
	m.Consumed.WithLabelValues(outcome).Inc()
}
