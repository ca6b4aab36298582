// Package queue carries standings warm-up jobs from committed mutations to
// the background workers.
//
// Jobs for the same table coalesce while one is pending, and a full queue
// drops jobs instead of blocking the caller.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/jansou/internal/domain/dedupe"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job asks for one standings table of a group to be recomputed and cached.
// A nil Month is the all-time table.
type Job struct {
	GroupID int64
	Group   string
	Month   *model.Month
}

// Key identifies the table the job refreshes.
func (j Job) Key() string {
	if j.Month == nil {
		return fmt.Sprintf("%d:", j.GroupID)
	}
	return fmt.Sprintf("%d:%s", j.GroupID, j.Month)
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job unless an identical one is already pending.
	// Returns false if the queue is closed or full.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns a channel that receives jobs until the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of pending jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs and closes every dequeue channel.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	pending  dedupe.Deduper

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		pending:  dedupe.NewInMemoryDeduper(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateWarmQueueDepth(0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordWarmJob("closed")
		return false
	}
	if q.pending.SeenAndRecord(ctx, j.Key()) {
		metrics.RecordWarmJob("coalesced")
		return true
	}

	select {
	case q.jobs <- j:
		metrics.RecordWarmJob("enqueued")
		metrics.UpdateWarmQueueDepth(len(q.jobs))
		return true
	case <-ctx.Done():
		q.pending.Unrecord(ctx, j.Key())
		metrics.RecordWarmJob("cancelled")
		return false
	default:
		q.pending.Unrecord(ctx, j.Key())
		metrics.RecordWarmJob("dropped")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
// A job stops being pending once it is handed out, so a later invalidation
// schedules a fresh refill.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			q.pending.Unrecord(ctx, j.Key())
			metrics.UpdateWarmQueueDepth(len(q.jobs))
			select {
			case out <- j:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
