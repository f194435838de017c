package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"guardian/internal/eventlog/relay"
	"guardian/internal/platform/config"
	"guardian/internal/platform/httpserver"
	"guardian/internal/platform/kafka"
	"guardian/internal/platform/logger"
	"guardian/internal/platform/metrics"
)

// main loads configuration, builds the application and runs it until a
// termination signal arrives. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogFormat, cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("guardian stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := metrics.NewRegistry()

	inf, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer inf.Close()

	app, err := buildApp(cfg, inf, reg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := httpserver.New(cfg.Server, app.Router(cfg, reg))

	workers, cancelWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("background worker started", "worker", name)
			fn(workers)
			log.Info("background worker stopped", "worker", name)
		}()
	}

	start("retention-scheduler", app.scheduler.Run)
	if err := startRelay(ctx, cfg, inf, app, log, start); err != nil {
		cancelWorkers()
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting guardian", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			cancelWorkers()
			wg.Wait()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	cancelWorkers()
	wg.Wait()
	log.Info("guardian stopped")
	return nil
}

// startRelay publishes the event log to Kafka and feeds the child projection
// from the topic. Without brokers the projection follows the log in process.
func startRelay(ctx context.Context, cfg config.Config, inf *infra, app *app, log *slog.Logger, start func(string, func(context.Context))) error {
	m := app.eventMetrics
	if len(cfg.Kafka.Brokers) == 0 {
		local := relay.New(app.events, relay.NewLocalProducer(app.projector.Handle),
			relay.WithName("child-projection"),
			relay.WithCheckpoints(relay.NewMemoryCheckpoints()),
			relay.WithInterval(cfg.Kafka.RelayInterval),
			relay.WithLogger(log),
			relay.WithMetrics(m),
		)
		log.Warn("kafka not configured; projecting events in process")
		start("projection-relay", local.Run)
		return nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	if err := kafka.EnsureTopic(ctx, producer, cfg.Kafka.Topic, cfg.Kafka.Partitions); err != nil {
		producer.Close()
		return err
	}
	consumer, err := kafka.NewConsumer(cfg.Kafka)
	if err != nil {
		producer.Close()
		return err
	}
	inf.closers = append(inf.closers, producer.Close, consumer.Close)

	publisher := relay.New(app.events, producer,
		relay.WithCheckpoints(inf.checkpoints()),
		relay.WithInterval(cfg.Kafka.RelayInterval),
		relay.WithLogger(log),
		relay.WithMetrics(m),
	)
	subscriber := relay.NewSubscriber(consumer, app.projector.Handle,
		relay.WithSubscriberLogger(log),
		relay.WithSubscriberMetrics(m),
	)
	start("kafka-relay", publisher.Run)
	start("projection-subscriber", subscriber.Run)
	return nil
}
