// Package channel delivers verification codes to parents over email and SMS
// gateways.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"regexp"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"guardian/internal/consent/models"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/retry"
)

// Message is one code delivery. Code is plaintext and must never be logged.
type Message struct {
	Method      models.Method
	Destination string
	Code        string
	Purpose     models.Purpose
	ExpiresAt   time.Time
}

// Sender delivers a message or returns CodeVerificationDeliveryFailed.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// ValidateDestination checks that dest is a plausible address for method.
func ValidateDestination(method models.Method, dest string) error {
	switch method {
	case models.MethodEmail:
		if _, err := mail.ParseAddress(dest); err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "destination is not a valid email address")
		}
	case models.MethodSMS:
		if !phonePattern.MatchString(dest) {
			return dErrors.New(dErrors.CodeInvalidInput, "destination must be an E.164 phone number")
		}
	default:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("method %s does not deliver codes", method))
	}
	return nil
}

// Router picks the sender registered for a message's method.
type Router struct {
	senders map[models.Method]Sender
}

func NewRouter(senders map[models.Method]Sender) *Router {
	return &Router{senders: senders}
}

func (r *Router) Send(ctx context.Context, msg Message) error {
	s, ok := r.senders[msg.Method]
	if !ok {
		return dErrors.New(dErrors.CodeVerificationDeliveryFailed, fmt.Sprintf("no %s channel configured", msg.Method))
	}
	return s.Send(ctx, msg)
}

type deliveryRequest struct {
	To        string    `json:"to"`
	Template  string    `json:"template"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gateway posts messages to an HTTP delivery provider. Sends are throttled
// to the provider's rate and retried with backoff on transport errors and
// 5xx responses.
type Gateway struct {
	method  models.Method
	client  *resty.Client
	limiter *rate.Limiter
	policy  retry.Policy
	logger  *slog.Logger
}

type GatewayOption func(*Gateway)

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithRetryPolicy(p retry.Policy) GatewayOption {
	return func(g *Gateway) {
		g.policy = p
	}
}

// WithRate limits sends per second; burst allows short spikes.
func WithRate(perSecond float64, burst int) GatewayOption {
	return func(g *Gateway) {
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewGateway(method models.Method, baseURL, apiKey string, opts ...GatewayOption) *Gateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	g := &Gateway{
		method:  method,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(20), 5),
		policy:  retry.DefaultPolicy(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type statusError struct {
	status int
}

func (e statusError) Error() string {
	return fmt.Sprintf("gateway returned status %d", e.status)
}

func (g *Gateway) Send(ctx context.Context, msg Message) error {
	body := deliveryRequest{
		To:        msg.Destination,
		Template:  "verification_" + string(msg.Purpose),
		Code:      msg.Code,
		ExpiresAt: msg.ExpiresAt,
	}
	attempt := 0
	err := retry.Do(ctx, g.policy, retryable, func(ctx context.Context) error {
		attempt++
		if err := g.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(body).
			Post("/v1/messages")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return statusError{status: resp.StatusCode()}
		}
		return nil
	})
	if err != nil {
		g.logger.WarnContext(ctx, "verification delivery failed",
			"channel", g.method,
			"attempts", attempt,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeVerificationDeliveryFailed, fmt.Sprintf("could not deliver %s verification code", g.method))
	}
	return nil
}

// retryable keeps 4xx responses out of the retry loop; the request itself is wrong.
func retryable(err error) bool {
	if se, ok := err.(statusError); ok {
		return se.status >= http.StatusInternalServerError || se.status == http.StatusTooManyRequests
	}
	return true
}

// Recorder keeps messages in memory instead of sending them. It backs
// deployments without gateways configured and tests that need the code.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	fail error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every subsequent Send return err wrapped as a delivery failure.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return dErrors.Wrap(r.fail, dErrors.CodeVerificationDeliveryFailed, "could not deliver verification code")
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Last returns the newest message sent to dest.
func (r *Recorder) Last(dest string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Destination == dest {
			return r.sent[i], true
		}
	}
	return Message{}, false
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
