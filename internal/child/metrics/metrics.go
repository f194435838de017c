package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for profile operations.
type Metrics struct {
	Operations *prometheus.CounterVec
	Conflicts  *prometheus.CounterVec
	Blocked    prometheus.Counter
	Erasures   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_child_operations_total",
			Help: "Profile operations by operation and outcome code",
		}, []string{"operation", "outcome"}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_child_append_conflicts_total",
			Help: "Optimistic append conflicts retried after reload",
		}, []string{"operation"}),
		Blocked: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_child_responses_blocked_total",
			Help: "Assistant responses not stored because safety review refused delivery",
		}),
		Erasures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_child_erasures_total",
			Help: "Completed erasures by scope and reason",
		}, []string{"scope", "reason"}),
	}
}

func (m *Metrics) IncOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) IncConflict(op string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncBlocked() {
	if m == nil {
		return
	}
	m.Blocked.Inc()
}

func (m *Metrics) IncErasure(scope, reason string) {
	if m == nil {
		return
	}
	m.Erasures.WithLabelValues(scope, reason).Inc()
}
