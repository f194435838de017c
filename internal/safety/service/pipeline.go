// Package service runs the safety analyzers over candidate content and folds
// their results into a single fail-closed decision.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"guardian/internal/safety/metrics"
	"guardian/internal/safety/models"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/requestcontext"
)

// Analyzer scores candidate content for one concern. Implementations must be
// safe for concurrent use.
type Analyzer interface {
	Kind() models.AnalyzerKind
	Analyze(ctx context.Context, c models.Candidate, child models.ChildContext) (models.Assessment, error)
}

// Notifier receives incidents that need a human.
type Notifier interface {
	Notify(ctx context.Context, incident Incident)
}

// Incident describes an escalation or a degraded evaluation.
type Incident struct {
	ChildContext models.ChildContext
	Result       *models.Result
	Reason       string
}

const defaultAnalyzerTimeout = 2 * time.Second

// Pipeline evaluates candidates against every configured analyzer.
type Pipeline struct {
	analyzers []Analyzer
	policy    models.Policy
	timeout   time.Duration
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithAnalyzerTimeout bounds each analyzer call.
func WithAnalyzerTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New builds a pipeline. The policy must be valid and there must be exactly
// one analyzer per kind.
func New(policy models.Policy, analyzers []Analyzer, opts ...Option) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[models.AnalyzerKind]bool, len(analyzers))
	for _, a := range analyzers {
		if !a.Kind().IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown analyzer kind %q", a.Kind()))
		}
		if seen[a.Kind()] {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate analyzer %s", a.Kind()))
		}
		seen[a.Kind()] = true
	}
	for _, k := range models.Kinds {
		if !seen[k] {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("missing analyzer %s", k))
		}
	}
	p := &Pipeline{
		analyzers: analyzers,
		policy:    policy,
		timeout:   defaultAnalyzerTimeout,
		logger:    slog.Default(),
		tracer:    otel.Tracer("guardian/safety"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Evaluate classifies the candidate. Analyzer failures never surface as an
// error; they are scored as worst case. An error is returned only for an
// unusable request.
func (p *Pipeline) Evaluate(ctx context.Context, c models.Candidate, child models.ChildContext) (*models.Result, error) {
	if strings.TrimSpace(c.Text) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "candidate content is empty")
	}
	ctx, span := p.tracer.Start(ctx, "safety.Evaluate", trace.WithAttributes(
		attribute.String("child.id", child.ChildID.String()),
		attribute.String("candidate.source", c.Source),
	))
	defer span.End()

	results := make([]models.SubResult, len(p.analyzers))
	var g errgroup.Group
	for i, a := range p.analyzers {
		g.Go(func() error {
			results[i] = p.run(ctx, a, c, child)
			return nil
		})
	}
	_ = g.Wait()

	res := p.aggregate(results)
	res.EvaluatedAt = requestcontext.Now(ctx)

	span.SetAttributes(
		attribute.String("safety.action", string(res.RecommendedAction)),
		attribute.String("safety.risk_level", string(res.RiskLevel)),
	)
	p.metrics.IncDecision(string(res.RecommendedAction), string(res.RiskLevel))
	for _, k := range res.VetoedBy {
		p.metrics.IncVeto(string(k))
	}
	p.report(ctx, child, res)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, a Analyzer, c models.Candidate, child models.ChildContext) models.SubResult {
	kind := a.Kind()
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	assessment, err := callAnalyzer(callCtx, a, c, child)
	latency := time.Since(start)
	p.metrics.ObserveAnalyzer(string(kind), latency)

	if err == nil {
		err = checkAssessment(assessment)
	}
	if err != nil {
		p.metrics.IncAnalyzerFailure(string(kind))
		p.logger.WarnContext(ctx, "safety analyzer failed; scoring as worst case",
			"analyzer", kind,
			"child_id", child.ChildID,
			"error", err,
		)
		return models.SubResult{
			Kind:     kind,
			Severity: 1,
			Label:    models.LabelUnavailable,
			Failed:   true,
			Error:    err.Error(),
			Latency:  latency,
		}
	}

	severity := assessment.Score
	if kind.HigherIsSafer() {
		severity = 1 - assessment.Score
	}
	return models.SubResult{
		Kind:     kind,
		Score:    assessment.Score,
		Severity: severity,
		Label:    assessment.Label,
		Latency:  latency,
	}
}

// callAnalyzer enforces the deadline even for analyzers that ignore ctx and
// converts panics into failures.
func callAnalyzer(ctx context.Context, a Analyzer, c models.Candidate, child models.ChildContext) (models.Assessment, error) {
	type outcome struct {
		a   models.Assessment
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("analyzer panicked: %v", r)}
			}
		}()
		res, err := a.Analyze(ctx, c, child)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.a, o.err
	case <-ctx.Done():
		return models.Assessment{}, dErrors.Wrap(ctx.Err(), dErrors.CodeSafetyAnalyzerUnavailable, "analyzer timed out")
	}
}

var errMalformed = errors.New("malformed analyzer output")

func checkAssessment(a models.Assessment) error {
	if math.IsNaN(a.Score) || math.IsInf(a.Score, 0) || a.Score < 0 || a.Score > 1 {
		return fmt.Errorf("%w: score %v outside [0,1]", errMalformed, a.Score)
	}
	if a.Label == "" {
		return fmt.Errorf("%w: missing label", errMalformed)
	}
	return nil
}

// aggregate applies the veto rule first; only when no analyzer reaches its
// hard threshold does the weighted severity pick a band.
func (p *Pipeline) aggregate(results []models.SubResult) *models.Result {
	res := &models.Result{Results: orderByKind(results)}

	var weighted, total float64
	for i := range res.Results {
		sr := &res.Results[i]
		ap := p.policy.Analyzers[sr.Kind]
		if sr.Severity >= ap.HardThreshold {
			sr.Veto = true
			res.VetoedBy = append(res.VetoedBy, sr.Kind)
		}
		weighted += sr.Severity * ap.Weight
		total += ap.Weight
	}
	res.WeightedSeverity = weighted / total

	if len(res.VetoedBy) > 0 {
		res.RiskLevel = models.RiskCritical
		res.RecommendedAction = models.ActionBlock
		return res
	}
	res.RiskLevel = p.policy.Level(res.WeightedSeverity)
	res.RecommendedAction = p.policy.Actions[res.RiskLevel]
	return res
}

func orderByKind(in []models.SubResult) []models.SubResult {
	out := make([]models.SubResult, 0, len(in))
	for _, k := range models.Kinds {
		for _, sr := range in {
			if sr.Kind == k {
				out = append(out, sr)
			}
		}
	}
	return out
}

func (p *Pipeline) report(ctx context.Context, child models.ChildContext, res *models.Result) {
	var reason string
	switch failed := res.Failed(); {
	case res.RecommendedAction == models.ActionEscalateToHuman:
		reason = "escalated_to_human"
	case len(failed) > 0:
		reason = "analyzer_unavailable"
	case len(res.VetoedBy) > 0:
		reason = "hard_threshold_veto"
	default:
		return
	}
	if p.notifier == nil {
		p.logger.ErrorContext(ctx, "CRITICAL: safety incident with no notifier configured",
			"child_id", child.ChildID,
			"reason", reason,
		)
		return
	}
	p.notifier.Notify(ctx, Incident{ChildContext: child, Result: res, Reason: reason})
}
