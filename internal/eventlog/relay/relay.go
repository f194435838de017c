// Package relay moves committed events from the log to the broker and back
// out to projections.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"guardian/internal/eventlog/metrics"
	"guardian/internal/eventlog/models"
)

// Source is the catch-up read side of the event log.
type Source interface {
	LoadFromOffset(ctx context.Context, offset int64, limit int) ([]models.Event, error)
}

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Checkpoints stores the last published global offset.
type Checkpoints interface {
	Load(ctx context.Context, name string) (int64, error)
	Save(ctx context.Context, name string, offset int64) error
}

const (
	headerEventType     = "event_type"
	headerAggregateType = "aggregate_type"
)

// Relay publishes events in global offset order, keyed by aggregate id so a
// partition preserves each aggregate's order. Delivery is at-least-once: the
// checkpoint only advances after the broker acknowledged the whole batch.
type Relay struct {
	source      Source
	producer    Producer
	checkpoints Checkpoints
	name        string
	batchSize   int
	interval    time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option { return func(r *Relay) { r.logger = logger } }
func WithMetrics(m *metrics.Metrics) Option { return func(r *Relay) { r.metrics = m } }
func WithBatchSize(n int) Option            { return func(r *Relay) { r.batchSize = n } }
func WithInterval(d time.Duration) Option   { return func(r *Relay) { r.interval = d } }
func WithName(name string) Option           { return func(r *Relay) { r.name = name } }
func WithCheckpoints(cp Checkpoints) Option { return func(r *Relay) { r.checkpoints = cp } }

func New(source Source, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		source:      source,
		producer:    producer,
		checkpoints: NewMemoryCheckpoints(),
		name:        "kafka-relay",
		batchSize:   500,
		interval:    time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce publishes at most one batch and returns how many events went out.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	from, err := r.checkpoints.Load(ctx, r.name)
	if err != nil {
		return 0, err
	}
	events, err := r.source.LoadFromOffset(ctx, from, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, len(events))
	for i, e := range events {
		rec, err := ToRecord(e)
		if err != nil {
			return 0, err
		}
		records[i] = rec
	}
	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("publish events: %w", err)
	}
	last := events[len(events)-1].Offset
	if err := r.checkpoints.Save(ctx, r.name, last); err != nil {
		return 0, fmt.Errorf("save checkpoint: %w", err)
	}
	r.metrics.AddPublished(len(events))
	return len(events), nil
}

// Run drains the log until ctx is cancelled, sleeping only when caught up.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "event relay batch failed", "error", err)
		}
		if n == r.batchSize && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ToRecord encodes an event as a broker record keyed by aggregate id.
func ToRecord(e models.Event) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return &kgo.Record{
		Key:   []byte(e.AggregateID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerEventType, Value: []byte(e.Type)},
			{Key: headerAggregateType, Value: []byte(e.AggregateType)},
		},
	}, nil
}

// FromRecord decodes a record produced by ToRecord.
func FromRecord(rec *kgo.Record) (models.Event, error) {
	var e models.Event
	if err := json.Unmarshal(rec.Value, &e); err != nil {
		return models.Event{}, fmt.Errorf("decode record at %s/%d@%d: %w", rec.Topic, rec.Partition, rec.Offset, err)
	}
	return e, nil
}

// MemoryCheckpoints keeps relay progress in process memory.
type MemoryCheckpoints struct {
	mu      sync.Mutex
	offsets map[string]int64
}

func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{offsets: make(map[string]int64)}
}

func (m *MemoryCheckpoints) Load(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offsets[name], nil
}

func (m *MemoryCheckpoints) Save(_ context.Context, name string, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset > m.offsets[name] {
		m.offsets[name] = offset
	}
	return nil
}

// LocalProducer hands records straight to a handler in process. It stands in
// for the broker when none is configured, so projections still follow the log.
type LocalProducer struct {
	handler Handler
}

func NewLocalProducer(handler Handler) *LocalProducer {
	return &LocalProducer{handler: handler}
}

func (p *LocalProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, rec := range rs {
		e, err := FromRecord(rec)
		if err == nil {
			err = p.handler(ctx, e)
		}
		results = append(results, kgo.ProduceResult{Record: rec, Err: err})
		if err != nil {
			break
		}
	}
	return results
}
