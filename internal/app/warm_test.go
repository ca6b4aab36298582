package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/jansou/internal/adapters/mq/queue"
	service "github.com/okian/jansou/internal/app"
)

// recordingQueue keeps the keys of every job it is handed.
type recordingQueue struct {
	mu   sync.Mutex
	keys []string
}

func (q *recordingQueue) Enqueue(_ context.Context, j queue.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.keys = append(q.keys, j.Key())
	return true
}

func (q *recordingQueue) take() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.keys
	q.keys = nil
	return out
}

func TestService_WarmQueue(t *testing.T) {
	Convey("Given a service that schedules standings warm-up", t, func() {
		ctx := context.Background()
		q := &recordingQueue{}
		now := time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)
		svc := service.New(openStore(t), service.WithWarmQueue(q), service.WithClock(func() time.Time { return now }))
		g := newGroup(t, svc)
		q.take()
		allTime := jobKey(g.ID, "")

		Convey("When a dated session is submitted", func() {
			_, err := svc.SubmitSession(ctx, g.Slug, dated(reference("s-1"), 2025, time.March, 14))
			So(err, ShouldBeNil)

			Convey("Then the all-time table and the session's month are scheduled", func() {
				So(q.take(), ShouldResemble, []string{allTime, jobKey(g.ID, "2025-03")})
			})

			Convey("And moving it to another month schedules both months", func() {
				q.take()
				_, err := svc.UpdateSession(ctx, g.Slug, "s-1", dated(reference("s-1"), 2025, time.February, 2))
				So(err, ShouldBeNil)
				So(q.take(), ShouldResemble, []string{allTime, jobKey(g.ID, "2025-03"), jobKey(g.ID, "2025-02")})
			})

			Convey("And deleting it schedules the month it was in", func() {
				q.take()
				_, err := svc.DeleteSession(ctx, g.Slug, "s-1")
				So(err, ShouldBeNil)
				So(q.take(), ShouldResemble, []string{allTime, jobKey(g.ID, "2025-03")})
			})
		})

		Convey("When an undated session is submitted", func() {
			_, err := svc.SubmitSession(ctx, g.Slug, reference("s-2"))
			So(err, ShouldBeNil)

			Convey("Then the current month is scheduled", func() {
				So(q.take(), ShouldResemble, []string{allTime, jobKey(g.ID, "2025-04")})
			})
		})

		Convey("When a submission is rejected", func() {
			_, err := svc.SubmitSession(ctx, g.Slug, session("bad", map[string]int{"Alice": 1}))
			So(err, ShouldNotBeNil)

			Convey("Then nothing is scheduled", func() {
				So(q.take(), ShouldBeEmpty)
			})
		})

		Convey("When a player joins", func() {
			_, err := svc.AddPlayer(ctx, g.Slug, "Eve")
			So(err, ShouldBeNil)

			Convey("Then only the all-time table is scheduled", func() {
				So(q.take(), ShouldResemble, []string{allTime})
			})
		})
	})
}

func jobKey(groupID int64, month string) string {
	j := queue.Job{GroupID: groupID}
	if month == "" {
		return j.Key()
	}
	return j.Key() + month
}
