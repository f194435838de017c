package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the consent engine.
type Metrics struct {
	Checks        *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
	RateLimited   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_consent_checks_total",
			Help: "Authorization checks by kind and outcome",
		}, []string{"kind", "outcome"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_consent_verifications_total",
			Help: "Code verification attempts by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_consent_transitions_total",
			Help: "Consent and relationship state transitions by event type",
		}, []string{"event"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_consent_code_deliveries_total",
			Help: "Verification code deliveries by channel and outcome",
		}, []string{"channel", "outcome"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_consent_rate_limited_total",
			Help: "Verification initiations refused by the per-channel limit",
		}),
	}
}

func (m *Metrics) IncCheck(kind, outcome string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncVerification(purpose, outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(purpose, outcome).Inc()
}

func (m *Metrics) IncTransition(event string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(event).Inc()
}

func (m *Metrics) IncDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
