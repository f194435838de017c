package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"guardian/internal/eventlog"
	"guardian/internal/eventlog/models"
	"guardian/internal/eventlog/store/memory"
	"guardian/pkg/platform/retry"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make(kgo.ProduceResults, len(rs))
	for i, r := range rs {
		results[i] = kgo.ProduceResult{Record: r, Err: p.err}
		if p.err == nil {
			p.records = append(p.records, r)
		}
	}
	return results
}

func appendEvents(t *testing.T, log *eventlog.Log, agg uuid.UUID, from int64, types ...string) {
	t.Helper()
	events := make([]models.Event, len(types))
	for i, typ := range types {
		e, err := models.NewEvent(models.AggregateChild, agg, typ, struct{}{}, time.Now())
		require.NoError(t, err)
		events[i] = e
	}
	_, err := log.Append(context.Background(), models.AggregateChild, agg, from, events)
	require.NoError(t, err)
}

func TestRelay_PublishesInOffsetOrderKeyedByAggregate(t *testing.T) {
	log := eventlog.New(memory.New())
	a, b := uuid.New(), uuid.New()
	appendEvents(t, log, a, 0, "A1", "A2")
	appendEvents(t, log, b, 0, "B1")

	producer := &fakeProducer{}
	r := New(log, producer, WithBatchSize(10))

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, producer.records, 3)
	assert.Equal(t, a.String(), string(producer.records[0].Key))
	assert.Equal(t, b.String(), string(producer.records[2].Key))

	decoded, err := FromRecord(producer.records[1])
	require.NoError(t, err)
	assert.Equal(t, "A2", decoded.Type)
	assert.Equal(t, int64(2), decoded.Version)

	n, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "checkpoint must advance past published events")
}

func TestRelay_FailedPublishDoesNotAdvanceCheckpoint(t *testing.T) {
	log := eventlog.New(memory.New())
	appendEvents(t, log, uuid.New(), 0, "A1")

	producer := &fakeProducer{err: errors.New("broker down")}
	cp := NewMemoryCheckpoints()
	r := New(log, producer, WithCheckpoints(cp))

	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	off, _ := cp.Load(context.Background(), "kafka-relay")
	assert.Zero(t, off)

	producer.err = nil
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSubscriber_HandleRetriesThenSucceeds(t *testing.T) {
	e, err := models.NewEvent(models.AggregateChild, uuid.New(), "ChildRegistered", struct{}{}, time.Now())
	require.NoError(t, err)
	rec, err := ToRecord(e)
	require.NoError(t, err)

	calls := 0
	s := NewSubscriber(nil, func(_ context.Context, got models.Event) error {
		calls++
		assert.Equal(t, e.ID, got.ID)
		if calls < 2 {
			return errors.New("projection busy")
		}
		return nil
	}, WithRetryPolicy(retry.Policy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxAttempts: 3}))

	assert.True(t, s.Handle(context.Background(), rec))
	assert.Equal(t, 2, calls)
}

func TestSubscriber_SkipsUndecodableRecord(t *testing.T) {
	s := NewSubscriber(nil, func(context.Context, models.Event) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.False(t, s.Handle(context.Background(), &kgo.Record{Value: []byte("not json")}))
}

func TestLocalProducer_FeedsHandlerAndStopsAtFirstFailure(t *testing.T) {
	log := eventlog.New(memory.New())
	appendEvents(t, log, uuid.New(), 0, "A1", "A2")

	var seen []string
	fail := true
	handler := func(_ context.Context, e models.Event) error {
		if e.Type == "A2" && fail {
			fail = false
			return errors.New("projection unavailable")
		}
		seen = append(seen, e.Type)
		return nil
	}
	cp := NewMemoryCheckpoints()
	r := New(log, NewLocalProducer(handler), WithName("local"), WithCheckpoints(cp))

	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	off, _ := cp.Load(context.Background(), "local")
	assert.Zero(t, off)

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"A1", "A1", "A2"}, seen, "redelivery is at-least-once")
}
