package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/jansou/internal/adapters/mq/queue"
	"github.com/okian/jansou/internal/adapters/mq/worker"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once

	mu      sync.Mutex
	feedCtx context.Context
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	mq.mu.Lock()
	mq.feedCtx = ctx
	mq.mu.Unlock()
	return mq.jobs
}

func (mq *mockQueue) feed() context.Context {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.feedCtx
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type call struct {
	slug  string
	month string
}

type mockWarmer struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
	delay time.Duration
}

func (m *mockWarmer) GetStandings(ctx context.Context, slug string, month *model.Month) ([]model.Standing, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := call{slug: slug}
	if month != nil {
		c.month = month.String()
	}
	m.calls = append(m.calls, c)
	if err := m.fail[slug]; err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *mockWarmer) seen() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue with jobs", t, func() {
		q := newMockQueue()
		warmer := &mockWarmer{fail: map[string]error{"broken": errors.New("boom")}}
		w := worker.NewInMemoryWorker(q, warmer, worker.WithName("warmer-test"))

		march := model.Month{Year: 2025, Month: time.March}
		q.jobs <- queue.Job{GroupID: 1, Group: "club"}
		q.jobs <- queue.Job{GroupID: 2, Group: "broken"}
		q.jobs <- queue.Job{GroupID: 1, Group: "club", Month: &march}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("Then every job is warmed in order and a failure does not stop the worker", func() {
			convey.So(waitFor(func() bool { return len(warmer.seen()) == 3 }), convey.ShouldBeTrue)
			convey.So(warmer.seen(), convey.ShouldResemble, []call{
				{slug: "club"},
				{slug: "broken"},
				{slug: "club", month: "2025-03"},
			})
		})

		convey.Convey("Then shutdown returns once the worker stops", func() {
			convey.So(waitFor(func() bool { return len(warmer.seen()) == 3 }), convey.ShouldBeTrue)
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})

		convey.Convey("Then shutdown releases the dequeue feed", func() {
			convey.So(waitFor(func() bool { return len(warmer.seen()) == 3 }), convey.ShouldBeTrue)
			feed := q.feed()
			convey.So(feed, convey.ShouldNotBeNil)
			convey.So(feed.Err(), convey.ShouldBeNil)

			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(feed.Err(), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a slow warmer and a short job timeout", t, func() {
		q := newMockQueue()
		warmer := &mockWarmer{delay: time.Second}
		w := worker.NewInMemoryWorker(q, warmer, worker.WithJobTimeout(10*time.Millisecond))
		q.jobs <- queue.Job{GroupID: 1, Group: "club"}
		_ = q.Close()

		convey.Convey("Then the job is abandoned and the worker exits on the closed queue", func() {
			done := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(done)
			}()
			exited := false
			select {
			case <-done:
				exited = true
			case <-time.After(time.Second):
			}
			convey.So(exited, convey.ShouldBeTrue)
			convey.So(warmer.seen(), convey.ShouldBeEmpty)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over the in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		warmer := &mockWarmer{}
		pool := worker.NewPool(3, q, warmer)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When jobs for several groups are enqueued", func() {
			for i, slug := range []string{"a", "b", "c", "d"} {
				convey.So(q.Enqueue(ctx, queue.Job{GroupID: int64(i + 1), Group: slug}), convey.ShouldBeTrue)
			}

			convey.Convey("Then all are warmed and shutdown drains cleanly", func() {
				convey.So(waitFor(func() bool { return len(warmer.seen()) == 4 }), convey.ShouldBeTrue)
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool whose start context is cancelled with jobs still queued", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		warmer := &mockWarmer{delay: 20 * time.Millisecond}
		pool := worker.NewPool(1, q, warmer)

		ctx, cancel := context.WithCancel(context.Background())
		pool.Start(ctx)
		for i, slug := range []string{"a", "b", "c", "d", "e"} {
			convey.So(q.Enqueue(context.Background(), queue.Job{GroupID: int64(i + 1), Group: slug}), convey.ShouldBeTrue)
		}
		cancel()

		convey.Convey("Then shutdown still warms every pending job", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(len(warmer.seen()), convey.ShouldEqual, 5)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), &mockWarmer{})

		convey.Convey("Then the default size is used", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 2)
		})
	})
}
