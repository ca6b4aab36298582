package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/jansou/internal/adapters/http/api"
	"github.com/okian/jansou/internal/adapters/repository"
	service "github.com/okian/jansou/internal/app"
	"github.com/okian/jansou/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

// newServer runs the full HTTP stack over a temporary database.
func newServer(t *testing.T, tokens ...string) *httptest.Server {
	t.Helper()
	store, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "load.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := service.New(store)
	mux := http.NewServeMux()
	srv := api.NewServer(svc, api.WithTokens(tokens...))
	srv.Register(context.Background(), mux)
	ts := httptest.NewServer(srv.Handler(mux))
	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		ts := newServer(t, "load-secret")
		out := filepath.Join(t.TempDir(), "out", "sessions.json")
		cfg := &Config{
			BaseURL:    ts.URL,
			Token:      "load-secret",
			Players:    6,
			Sessions:   40,
			Duplicates: 0.25,
			Updates:    0.2,
			Deletes:    0.1,
			Workers:    4,
			Timeout:    10 * time.Second,
			Seed:       7,
			OutputFile: out,
		}

		Convey("When a load test runs", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every request lands and the standings verify", func() {
				So(err, ShouldBeNil)
				So(stats.SessionsGenerated, ShouldEqual, 40)
				So(stats.Created, ShouldEqual, 40)
				So(stats.Duplicate, ShouldEqual, 10)
				So(stats.Submitted, ShouldEqual, 50)
				So(stats.Updated, ShouldEqual, 8)
				So(stats.Deleted, ShouldEqual, 4)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.StandingsRows, ShouldEqual, 6)
				So(stats.Duration, ShouldBeGreaterThan, 0)
			})

			Convey("And the surviving sessions are written out", func() {
				So(err, ShouldBeNil)
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var sessions []sessionPayload
				So(json.Unmarshal(data, &sessions), ShouldBeNil)
				So(len(sessions), ShouldEqual, 36)
				So(sessions[0].SessionID, ShouldEqual, "load-000001")
			})
		})

		Convey("When the token is wrong", func() {
			cfg.Token = "nope"
			_, err := Run(context.Background(), cfg)

			Convey("Then group setup fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "group setup failed")
			})
		})
	})

	Convey("Given an unreachable server", t, func() {
		ts := newServer(t)
		url := ts.URL
		ts.Close()

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), &Config{BaseURL: url, Players: 4, Sessions: 1, Workers: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})

	Convey("Given invalid configurations", t, func() {
		cases := []*Config{
			{Players: 4, Sessions: 1, Workers: 1},
			{BaseURL: "http://x", Players: 3, Sessions: 1, Workers: 1},
			{BaseURL: "http://x", Players: 4, Sessions: 0, Workers: 1},
			{BaseURL: "http://x", Players: 4, Sessions: 1, Workers: 0},
			{BaseURL: "http://x", Players: 4, Sessions: 1, Workers: 1, Updates: 0.6, Deletes: 0.6},
		}

		Convey("Then each is rejected before any request", func() {
			for _, c := range cases {
				_, err := Run(context.Background(), c)
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			}
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		players := []playerPayload{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}, {ID: 4, Name: "d"}, {ID: 5, Name: "e"}}
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		Convey("Then every session seats four distinct players on a full table", func() {
			g := newGenerator(11, players, start)
			for i := 1; i <= 500; i++ {
				s := g.session(i)
				So(len(s.Scores), ShouldEqual, 4)
				seen := map[string]bool{}
				sum := 0
				for _, sc := range s.Scores {
					seen[sc.MemberName] = true
					sum += sc.Score
					So(sc.Score%scoreStep, ShouldEqual, 0)
					So(sc.Chombo, ShouldBeBetweenOrEqual, 0, 2)
				}
				So(len(seen), ShouldEqual, 4)
				So(sum, ShouldEqual, tableTotal)
			}
		})

		Convey("Then the same seed replays the same sessions", func() {
			a, b := newGenerator(3, players, start), newGenerator(3, players, start)
			for i := 1; i <= 20; i++ {
				So(a.session(i), ShouldResemble, b.session(i))
			}
		})

		Convey("Then rescoring keeps the id and date", func() {
			g := newGenerator(5, players, start)
			s := g.session(9)
			r := g.rescore(s)
			So(r.SessionID, ShouldEqual, s.SessionID)
			So(r.SessionDate, ShouldEqual, s.SessionDate)
		})
	})
}

func TestVerifyStandings(t *testing.T) {
	Convey("Given the reference session and matching standings", t, func() {
		group := groupPayload{TargetPoint: 30000, Uma: [4]int{15, 5, -5, -15}, ChomboEnabled: true}
		players := []playerPayload{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}, {ID: 3, Name: "Charlie"}, {ID: 4, Name: "Diana"}}
		sessions := map[string]sessionPayload{
			"s-1": {SessionID: "s-1", Scores: []scorePayload{
				{MemberName: "Alice", Score: 30000},
				{MemberName: "Bob", Score: 35000},
				{MemberName: "Charlie", Score: 25000},
				{MemberName: "Diana", Score: 10000},
			}},
		}
		rows := []standingRow{
			row(1, 2, "Bob", 20, 0),
			row(2, 1, "Alice", 5, 1),
			row(3, 3, "Charlie", -10, 2),
			row(4, 4, "Diana", -35, 3),
		}

		Convey("Then verification passes", func() {
			So(verifyStandings(group, players, sessions, rows), ShouldBeNil)
		})

		Convey("Then a wrong total is reported", func() {
			rows[0].Summary.Total = 21
			err := verifyStandings(group, players, sessions, rows)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Bob: total")
		})

		Convey("Then misordered rows are reported", func() {
			rows[0], rows[1] = rows[1], rows[0]
			rows[0].Rank, rows[1].Rank = 1, 2
			err := verifyStandings(group, players, sessions, rows)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not sorted")
		})

		Convey("Then a missing row is reported", func() {
			So(verifyStandings(group, players, sessions, rows[:3]), ShouldNotBeNil)
		})
	})
}

func row(rank int, id int64, name string, total float64, slot int) standingRow {
	var r standingRow
	r.Rank = rank
	r.Player.ID = id
	r.Player.Name = name
	r.Summary.Total = total
	r.Summary.GamesPlayed = 1
	r.Summary.PlacementCounts[slot] = 1
	return r
}
