// Package eventlog is the append-only source of truth for every aggregate.
// Stores speak sentinel errors; Log translates them into coded domain errors
// and adds tracing and metrics.
package eventlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"guardian/internal/eventlog/metrics"
	"guardian/internal/eventlog/models"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/requestcontext"
)

// Store is the persistence contract implemented by memory and postgres stores.
type Store interface {
	Append(ctx context.Context, key models.StreamKey, expectedVersion int64, events []models.Event) ([]models.Event, error)
	Load(ctx context.Context, key models.StreamKey, fromVersion int64) ([]models.Event, error)
	LoadFromOffset(ctx context.Context, offset int64, limit int) ([]models.Event, error)
	Version(ctx context.Context, key models.StreamKey) (int64, error)
}

// Log wraps a Store.
type Log struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Log)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Log) { l.metrics = m }
}

func New(store Store, opts ...Option) *Log {
	l := &Log{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("guardian/eventlog"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append commits events with versions expectedVersion+1.. and returns the new
// head version. A stale expectedVersion yields CodeConcurrencyConflict and
// nothing is written.
func (l *Log) Append(ctx context.Context, aggregateType string, aggregateID uuid.UUID, expectedVersion int64, events []models.Event) (int64, error) {
	if len(events) == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "append requires at least one event")
	}
	if expectedVersion < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "expected version must not be negative")
	}
	key := models.StreamKey{AggregateType: aggregateType, AggregateID: aggregateID}

	ctx, span := l.tracer.Start(ctx, "eventlog.Append", trace.WithAttributes(
		attribute.String("aggregate.type", aggregateType),
		attribute.String("aggregate.id", aggregateID.String()),
		attribute.Int64("expected_version", expectedVersion),
		attribute.Int("events", len(events)),
	))
	defer span.End()

	md := models.Metadata{
		Actor:     string(requestcontext.ActorOf(ctx)),
		RequestID: requestcontext.RequestID(ctx),
	}
	if pid := requestcontext.ParentID(ctx); !pid.IsNil() {
		md.ActorID = pid.String()
	} else if dev := requestcontext.DeviceID(ctx); dev != "" {
		md.ActorID = dev
	}
	stamped := make([]models.Event, len(events))
	for i, e := range events {
		if e.Type == "" {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "event type is required")
		}
		if e.Metadata == (models.Metadata{}) {
			e.Metadata = md
		}
		stamped[i] = e
	}

	start := time.Now()
	committed, err := l.store.Append(ctx, key, expectedVersion, stamped)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		if errors.Is(err, sentinel.ErrConflict) {
			l.metrics.IncConflict(aggregateType)
			return 0, dErrors.Wrap(err, dErrors.CodeConcurrencyConflict, "stream "+key.String()+" moved past expected version")
		}
		l.logger.ErrorContext(ctx, "event log append failed",
			"aggregate_type", aggregateType,
			"aggregate_id", aggregateID,
			"error", err,
		)
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "event log unavailable")
	}
	l.metrics.ObserveAppend(aggregateType, time.Since(start), len(committed))
	head := committed[len(committed)-1].Version
	span.SetAttributes(attribute.Int64("committed_version", head))
	return head, nil
}

// Load returns the stream after fromVersion in commit order.
func (l *Log) Load(ctx context.Context, aggregateType string, aggregateID uuid.UUID, fromVersion int64) ([]models.Event, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.Load", trace.WithAttributes(
		attribute.String("aggregate.type", aggregateType),
		attribute.String("aggregate.id", aggregateID.String()),
	))
	defer span.End()

	events, err := l.store.Load(ctx, models.StreamKey{AggregateType: aggregateType, AggregateID: aggregateID}, fromVersion)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "event log unavailable")
	}
	return events, nil
}

// LoadFromOffset serves catch-up consumers.
func (l *Log) LoadFromOffset(ctx context.Context, offset int64, limit int) ([]models.Event, error) {
	events, err := l.store.LoadFromOffset(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "event log unavailable")
	}
	return events, nil
}

// Version returns the head version of a stream, 0 when it does not exist.
func (l *Log) Version(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (int64, error) {
	v, err := l.store.Version(ctx, models.StreamKey{AggregateType: aggregateType, AggregateID: aggregateID})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "event log unavailable")
	}
	return v, nil
}
