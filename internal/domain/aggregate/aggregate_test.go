package aggregate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/jansou/internal/domain/aggregate"
	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

func cfg() scoring.Config {
	return scoring.Config{TargetScore: 30000, Uma: [4]int{15, 5, -5, -15}, ChomboEnabled: true}
}

func entry(session string, player int64, raw, chombo int) model.SessionEntry {
	return model.SessionEntry{SessionID: session, PlayerID: player, RawScore: raw, Chombo: chombo, CreatedAt: base}
}

func session(id string, entries ...model.SessionEntry) aggregate.Session {
	return aggregate.Session{SessionID: id, Entries: entries}
}

func TestEvaluate(t *testing.T) {
	Convey("Given the reference session", t, func() {
		s := session("s-1",
			entry("s-1", 1, 30000, 0),
			entry("s-1", 2, 35000, 0),
			entry("s-1", 3, 25000, 0),
			entry("s-1", 4, 10000, 0),
		)

		Convey("When evaluating", func() {
			res, err := aggregate.Evaluate(s, cfg())
			So(err, ShouldBeNil)

			Convey("Then results are ordered by placement with full breakdown", func() {
				So(len(res), ShouldEqual, 4)
				So(res[0].PlayerID, ShouldEqual, 2)
				So(res[0].BaseScore, ShouldEqual, 5)
				So(res[0].Uma, ShouldEqual, 15)
				So(res[0].Total, ShouldEqual, 20)
				So(res[3].PlayerID, ShouldEqual, 4)
				So(res[3].Total, ShouldEqual, -35)
			})

			Convey("And the uma components sum to zero", func() {
				uma := 0.0
				for _, r := range res {
					uma += r.Uma
				}
				So(uma, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an incomplete session", t, func() {
		s := session("s-2", entry("s-2", 1, 30000, 0), entry("s-2", 2, 30000, 0))

		Convey("Then evaluation fails as incomplete", func() {
			_, err := aggregate.Evaluate(s, cfg())
			So(errors.Is(err, errs.ErrIncompleteSession), ShouldBeTrue)
		})
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given a player with two complete sessions and one incomplete", t, func() {
		sessions := []aggregate.Session{
			session("s-1",
				entry("s-1", 1, 30000, 0),
				entry("s-1", 2, 35000, 0),
				entry("s-1", 3, 25000, 0),
				entry("s-1", 4, 10000, 0),
			),
			session("s-2",
				entry("s-2", 1, 45000, 1),
				entry("s-2", 2, 25000, 0),
				entry("s-2", 3, 25000, 0),
				entry("s-2", 4, 5000, 0),
			),
			session("s-3",
				entry("s-3", 1, 50000, 2),
				entry("s-3", 2, 10000, 0),
			),
		}

		Convey("When summarizing player 1", func() {
			sum, err := aggregate.Summarize(1, sessions, cfg())
			So(err, ShouldBeNil)

			Convey("Then only complete sessions count as games", func() {
				So(sum.GamesPlayed, ShouldEqual, 2)
				// s-1: 0 + 5 = 5; s-2: 15 + 15 - 30 = 0
				So(sum.Total, ShouldEqual, 5)
				So(sum.AveragePerGame, ShouldEqual, 2.5)
				So(sum.AveragePlacement, ShouldEqual, 1.5)
				So(sum.PlacementCounts, ShouldResemble, [4]int{1, 1, 0, 0})
			})

			Convey("And chombo from the incomplete session is still counted", func() {
				So(sum.ChomboCount, ShouldEqual, 3)
			})
		})

		Convey("When summarizing player 2, tied in s-2", func() {
			sum, err := aggregate.Summarize(2, sessions, cfg())
			So(err, ShouldBeNil)

			Convey("Then the shared placement feeds the average", func() {
				So(sum.GamesPlayed, ShouldEqual, 2)
				So(sum.AveragePlacement, ShouldEqual, 1.75) // (1 + 2.5) / 2
				// 2.5 rounds half to even -> 2nd
				So(sum.PlacementCounts, ShouldResemble, [4]int{1, 1, 0, 0})
			})
		})

		Convey("When summarizing twice", func() {
			first, _ := aggregate.Summarize(3, sessions, cfg())
			reversed := []aggregate.Session{sessions[2], sessions[1], sessions[0]}
			second, _ := aggregate.Summarize(3, reversed, cfg())

			Convey("Then the output is identical regardless of input order", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When the group disables the chombo penalty", func() {
			off := cfg()
			off.ChomboEnabled = false
			with, _ := aggregate.Summarize(1, sessions, cfg())
			without, _ := aggregate.Summarize(1, sessions, off)

			Convey("Then only the penalty of complete sessions is removed from the total", func() {
				So(without.Total-with.Total, ShouldEqual, 30)
				So(without.ChomboCount, ShouldEqual, with.ChomboCount)
			})
		})
	})

	Convey("Given a player with only incomplete sessions", t, func() {
		sessions := []aggregate.Session{
			session("s-9", entry("s-9", 7, 30000, 0), entry("s-9", 8, 30000, 0), entry("s-9", 9, 30000, 0)),
		}

		Convey("Then the summary has zero games and zero averages", func() {
			sum, err := aggregate.Summarize(7, sessions, cfg())
			So(err, ShouldBeNil)
			So(sum.GamesPlayed, ShouldEqual, 0)
			So(sum.Total, ShouldEqual, 0)
			So(sum.AveragePerGame, ShouldEqual, 0)
			So(sum.AveragePlacement, ShouldEqual, 0)
		})
	})

	Convey("Given an over-full session of five entries", t, func() {
		s := session("s-5",
			entry("s-5", 1, 30000, 0), entry("s-5", 2, 30000, 0), entry("s-5", 3, 30000, 0),
			entry("s-5", 4, 30000, 0), entry("s-5", 5, 30000, 0),
		)

		Convey("Then it contributes no games either", func() {
			sum, err := aggregate.Summarize(1, []aggregate.Session{s}, cfg())
			So(err, ShouldBeNil)
			So(sum.GamesPlayed, ShouldEqual, 0)
		})
	})
}

func TestGroupSessions(t *testing.T) {
	Convey("Given interleaved entries", t, func() {
		entries := []model.SessionEntry{
			entry("b", 1, 1, 0), entry("a", 1, 1, 0), entry("b", 2, 1, 0),
		}

		Convey("Then sessions are bucketed and sorted by id", func() {
			got := aggregate.GroupSessions(entries)
			So(len(got), ShouldEqual, 2)
			So(got[0].SessionID, ShouldEqual, "a")
			So(len(got[1].Entries), ShouldEqual, 2)
		})
	})

	Convey("Given a session with a recorded date", t, func() {
		played := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
		e := entry("x", 1, 1, 0)
		e.SessionDate = &played

		Convey("Then the recorded date is the session date", func() {
			So(session("x", e).Date(), ShouldEqual, played)
		})

		Convey("And it wins over an earlier creation time on another entry", func() {
			early := entry("x", 2, 1, 0)
			early.CreatedAt = base.Add(-48 * time.Hour)
			So(session("x", early, e).Date(), ShouldEqual, played)
		})
	})

	Convey("Given a session without a recorded date", t, func() {
		late := entry("y", 1, 1, 0)
		late.CreatedAt = base.Add(time.Hour)
		early := entry("y", 2, 1, 0)

		Convey("Then the earliest creation time is the session date", func() {
			So(session("y", late, early).Date(), ShouldEqual, base)
		})
	})
}
