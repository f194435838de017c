package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the safety pipeline.
type Metrics struct {
	Decisions        *prometheus.CounterVec
	Vetoes           *prometheus.CounterVec
	AnalyzerFailures *prometheus.CounterVec
	AnalyzerLatency  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_safety_decisions_total",
			Help: "Safety evaluations by recommended action and risk level",
		}, []string{"action", "risk_level"}),
		Vetoes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_safety_vetoes_total",
			Help: "Hard-threshold vetoes by analyzer",
		}, []string{"analyzer"}),
		AnalyzerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_safety_analyzer_failures_total",
			Help: "Analyzer calls that failed, timed out or returned malformed output",
		}, []string{"analyzer"}),
		AnalyzerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guardian_safety_analyzer_duration_seconds",
			Help:    "Analyzer call latency",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"analyzer"}),
	}
}

func (m *Metrics) IncDecision(action, level string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(action, level).Inc()
}

func (m *Metrics) IncVeto(analyzer string) {
	if m == nil {
		return
	}
	m.Vetoes.WithLabelValues(analyzer).Inc()
}

func (m *Metrics) IncAnalyzerFailure(analyzer string) {
	if m == nil {
		return
	}
	m.AnalyzerFailures.WithLabelValues(analyzer).Inc()
}

func (m *Metrics) ObserveAnalyzer(analyzer string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalyzerLatency.WithLabelValues(analyzer).Observe(d.Seconds())
}
