// Package worker delivers queued notifications to external sinks.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/vibrapulse/internal/domain/model"
	"github.com/okian/vibrapulse/pkg/logger"
	"github.com/okian/vibrapulse/pkg/metrics"
)

const (
	defaultWorkerCount     = 2
	defaultDeliveryTimeout = 10 * time.Second
)

// Sink receives notifications, e.g. a message broker or an object store.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n model.Notification) error
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Notification
}

// InMemoryWorker drains the queue and fans each notification out to sinks.
type InMemoryWorker struct {
	queue           Queue
	sinks           []Sink
	name            string
	deliveryTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}
	logger   logger.Logger
}

// NewInMemoryWorker creates a worker delivering to sinks.
func NewInMemoryWorker(q Queue, sinks []Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:           q,
		sinks:           sinks,
		name:            "worker",
		deliveryTimeout: defaultDeliveryTimeout,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes notifications until the queue is drained, ctx is done or
// the worker is stopped.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			w.process(ctx, n)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// stop aborts Run without draining.
func (w *InMemoryWorker) stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

// process delivers n to every sink. Sink failures are logged and counted
// and never stop the remaining sinks.
func (w *InMemoryWorker) process(ctx context.Context, n model.Notification) { //nolint:gocritic // value semantics across the channel
	for _, s := range w.sinks {
		start := time.Now()
		dctx, cancel := context.WithTimeout(ctx, w.deliveryTimeout)
		err := s.Deliver(dctx, n)
		cancel()
		ms := float64(time.Since(start).Milliseconds())

		if err != nil {
			metrics.RecordDelivery(s.Name(), "error", ms)
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", s.Name())
			w.logger.Error(ctx, "delivery failed",
				logger.String("sink", s.Name()),
				logger.String("report_id", n.ReportID),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordDelivery(s.Name(), "ok", ms)
		w.logger.Debug(ctx, "delivered",
			logger.String("sink", s.Name()),
			logger.String("report_id", n.ReportID),
		)
	}
}

// Pool runs several workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	wg      sync.WaitGroup
}

// NewPool creates workerCount workers sharing q and sinks.
func NewPool(workerCount int, q Queue, sinks []Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, sinks, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the queue and lets workers drain it. Workers still busy
// when ctx is done are stopped and an error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		metrics.UpdateWorkerCount(0)
		return nil
	case <-ctx.Done():
		for _, w := range p.workers {
			w.stop()
		}
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
