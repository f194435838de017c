//go:build integration

package relay_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"guardian/internal/eventlog"
	"guardian/internal/eventlog/models"
	"guardian/internal/eventlog/relay"
	"guardian/internal/eventlog/store/memory"
	"guardian/internal/platform/config"
	"guardian/internal/platform/kafka"
	"guardian/pkg/testutil/containers"
)

func TestRelayRoundTripThroughBroker(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	cfg := config.Kafka{
		Brokers:       rp.Brokers,
		Topic:         "guardian.test-events",
		ConsumerGroup: "guardian-test",
		Partitions:    3,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	producer, err := kafka.NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, cfg.Topic, cfg.Partitions))

	log := eventlog.New(memory.New())
	agg := uuid.New()
	var batch []models.Event
	for _, typ := range []string{"ChildRegistered", "AllowedTopicAdded", "InteractionRecorded"} {
		e, err := models.NewEvent(models.AggregateChild, agg, typ, struct{}{}, time.Now())
		require.NoError(t, err)
		batch = append(batch, e)
	}
	_, err = log.Append(ctx, models.AggregateChild, agg, 0, batch)
	require.NoError(t, err)

	n, err := relay.New(log, producer).RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	consumer, err := kafka.NewConsumer(cfg)
	require.NoError(t, err)
	defer consumer.Close()

	var mu sync.Mutex
	var seen []int64
	sub := relay.NewSubscriber(consumer, func(_ context.Context, e models.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Version)
		if len(seen) == 3 {
			cancel()
		}
		return nil
	})
	sub.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int64{1, 2, 3}, seen)
}
