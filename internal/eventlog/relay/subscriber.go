package relay

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"guardian/internal/eventlog/metrics"
	"guardian/internal/eventlog/models"
	"guardian/pkg/platform/retry"
)

// Handler applies one event to a projection. It must be idempotent: the
// subscriber delivers at least once.
type Handler func(ctx context.Context, e models.Event) error

// Consumer is the subset of *kgo.Client the subscriber needs.
type Consumer interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

// Subscriber feeds broker records to a handler and commits after handling.
type Subscriber struct {
	consumer Consumer
	handler  Handler
	policy   retry.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type SubscriberOption func(*Subscriber)

func WithSubscriberLogger(logger *slog.Logger) SubscriberOption {
	return func(s *Subscriber) { s.logger = logger }
}

func WithSubscriberMetrics(m *metrics.Metrics) SubscriberOption {
	return func(s *Subscriber) { s.metrics = m }
}

func WithRetryPolicy(p retry.Policy) SubscriberOption {
	return func(s *Subscriber) { s.policy = p }
}

func NewSubscriber(consumer Consumer, handler Handler, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		consumer: consumer,
		handler:  handler,
		policy:   retry.DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls until ctx is cancelled or the client is closed.
func (s *Subscriber) Run(ctx context.Context) {
	for {
		fetches := s.consumer.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			s.logger.WarnContext(ctx, "fetch error", "topic", topic, "partition", partition, "error", err)
		})

		var handled []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			s.Handle(ctx, rec)
			handled = append(handled, rec)
		})
		if len(handled) == 0 {
			continue
		}
		if err := s.consumer.CommitRecords(ctx, handled...); err != nil {
			s.logger.WarnContext(ctx, "commit failed; records will be redelivered", "error", err)
		}
	}
}

// Handle decodes and applies one record, retrying transient handler errors.
// A record that still fails is logged and skipped so one poison record cannot
// wedge a partition.
func (s *Subscriber) Handle(ctx context.Context, rec *kgo.Record) bool {
	e, err := FromRecord(rec)
	if err != nil {
		s.metrics.IncConsumed("undecodable")
		s.logger.ErrorContext(ctx, "skipping undecodable record", "error", err)
		return false
	}
	err = retry.Do(ctx, s.policy, func(error) bool { return true }, func(ctx context.Context) error {
		return s.handler(ctx, e)
	})
	if err != nil {
		s.metrics.IncConsumed("failed")
		s.logger.ErrorContext(ctx, "projection handler failed; skipping event",
			"event_id", e.ID,
			"event_type", e.Type,
			"aggregate_id", e.AggregateID,
			"error", err,
		)
		return false
	}
	s.metrics.IncConsumed("ok")
	return true
}
