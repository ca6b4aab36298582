// Package worker runs the background pool that refills the standings cache
// after mutations invalidate it.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/jansou/internal/adapters/mq/queue"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/logger"
	"github.com/okian/jansou/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	defaultJobTimeout   = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Warmer computes a standings table, caching it as a side effect.
type Warmer interface {
	GetStandings(ctx context.Context, slug string, month *model.Month) ([]model.Standing, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes warm-up jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker once its current job is done.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	warmer  Warmer
	name    string
	timeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, warmer Warmer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		warmer:   warmer,
		name:     "warmer",
		timeout:  defaultJobTimeout,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. The dequeue feed is released when Run returns.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	jobs := w.queue.Dequeue(feedCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Warn(ctx, "standings warm-up failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	_, err := w.warmer.GetStandings(ctx, job.Group, job.Month)
	metrics.RecordWarmLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	if err != nil {
		metrics.RecordWarmJob("failed")
		metrics.RecordErrorByComponent("worker", "warm_error")
		return fmt.Errorf("warm %s (%s): %w", job.Group, job.Key(), err)
	}

	metrics.RecordWarmJob("done")
	w.logger.Debug(ctx, "standings warmed", logger.String("group", job.Group), logger.String("key", job.Key()))
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below 1 uses the default.
func NewPool(workerCount int, q Queue, warmer Warmer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("warm-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, warmer,
			append([]Option{WithName("warmer-" + strconv.Itoa(i))}, opts...)...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool. Workers keep running after ctx is
// cancelled; they stop only through Shutdown, once the queue is drained.
func (p *Pool) Start(ctx context.Context) {
	runCtx := context.WithoutCancel(ctx)
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
	p.logger.Info(ctx, "standings warm-up pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue, so pending jobs drain, and waits for every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, ctx.Err())
		}
	}
	return nil
}
