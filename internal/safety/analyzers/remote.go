// Package analyzers holds the analyzer implementations wired into the
// safety pipeline.
package analyzers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"guardian/internal/safety/models"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/circuit"
)

type analyzeRequest struct {
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"`
	Language string `json:"language,omitempty"`
	Age      int    `json:"age"`
}

type analyzeResponse struct {
	Score *float64 `json:"score"`
	Label string   `json:"label"`
}

// Remote calls an external model endpoint: POST {base}/v1/analyze/{kind}.
type Remote struct {
	kind    models.AnalyzerKind
	client  *resty.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type RemoteOption func(*Remote)

func WithLogger(logger *slog.Logger) RemoteOption {
	return func(r *Remote) {
		r.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) RemoteOption {
	return func(r *Remote) {
		r.breaker = b
	}
}

// NewRemote builds a client for one analyzer kind. The pipeline bounds each
// call with its own deadline; timeout here is a backstop for the transport.
func NewRemote(kind models.AnalyzerKind, baseURL, apiKey string, timeout time.Duration, opts ...RemoteOption) *Remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	r := &Remote{
		kind:    kind,
		client:  client,
		breaker: circuit.New("safety-" + string(kind)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) Kind() models.AnalyzerKind {
	return r.kind
}

func (r *Remote) Analyze(ctx context.Context, c models.Candidate, child models.ChildContext) (models.Assessment, error) {
	if !r.breaker.Allow() {
		return models.Assessment{}, dErrors.New(dErrors.CodeSafetyAnalyzerUnavailable, fmt.Sprintf("%s analyzer circuit open", r.kind))
	}

	var out analyzeResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(analyzeRequest{Text: c.Text, Source: c.Source, Language: c.Language, Age: child.Age}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/v1/analyze/" + string(r.kind))
	if err == nil && resp.IsError() {
		err = fmt.Errorf("status %d", resp.StatusCode())
	}
	if err == nil && out.Score == nil {
		err = fmt.Errorf("response has no score")
	}
	if err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "safety analyzer circuit opened", "analyzer", r.kind)
		}
		return models.Assessment{}, dErrors.Wrap(err, dErrors.CodeSafetyAnalyzerUnavailable, fmt.Sprintf("%s analyzer call failed", r.kind))
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "safety analyzer circuit closed", "analyzer", r.kind)
	}
	return models.Assessment{Score: *out.Score, Label: out.Label}, nil
}
