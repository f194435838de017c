// Package security provides a non-blocking audit publisher for events that
// need human attention. Emit never fails the caller; events are buffered and
// flushed to the store in the background.
package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "guardian/pkg/platform/audit"
	"guardian/pkg/requestcontext"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 500 * time.Millisecond
)

// Publisher buffers security events and flushes them asynchronously.
type Publisher struct {
	store         audit.Store
	buffer        *RingBuffer
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) { p.buffer = NewRingBuffer(n) }
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// New creates the publisher and starts its flush loop.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		buffer:        NewRingBuffer(0),
		logger:        slog.Default(),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Emit enqueues a security event, dropping the oldest buffered event if full.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	event.Category = audit.CategorySecurity
	if event.Severity == "" {
		event.Severity = audit.SeverityWarning
	}
	if event.Actor == "" {
		event.Actor = string(requestcontext.ActorOf(ctx))
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	p.buffer.Enqueue(event)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			p.flush(context.Background())
			return
		case <-ticker.C:
			p.flush(context.Background())
		case <-p.wake:
			p.flush(context.Background())
		}
	}
}

func (p *Publisher) flush(ctx context.Context) {
	for {
		batch := p.buffer.DequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return
		}
		for i, event := range batch {
			if err := p.store.Append(ctx, event); err != nil {
				p.logger.WarnContext(ctx, "security audit write failed, requeueing",
					"action", event.Action,
					"error", err,
				)
				for _, e := range batch[i:] {
					p.buffer.Enqueue(e)
				}
				return
			}
		}
	}
}

// Dropped reports how many events were lost to buffer overflow.
func (p *Publisher) Dropped() int64 {
	return p.buffer.Dropped()
}

// Close stops the loop after draining what the store will accept.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
	return nil
}
