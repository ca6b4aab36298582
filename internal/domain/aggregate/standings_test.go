package aggregate_test

import (
	"testing"
	"time"

	"github.com/okian/jansou/internal/domain/aggregate"
	"github.com/okian/jansou/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStandings(t *testing.T) {
	Convey("Given players with tied and missing summaries", t, func() {
		players := []model.Player{{ID: 3, Name: "Charlie"}, {ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}, {ID: 4, Name: "Diana"}}
		summaries := map[int64]model.PlayerSummary{
			1: {PlayerID: 1, Total: 12.5},
			2: {PlayerID: 2, Total: 30},
			3: {PlayerID: 3, Total: 12.5},
		}

		Convey("When ordering", func() {
			got := aggregate.Standings(players, summaries)

			Convey("Then totals sort descending with player id breaking ties", func() {
				So(got[0].Player.ID, ShouldEqual, 2)
				So(got[1].Player.ID, ShouldEqual, 1)
				So(got[2].Player.ID, ShouldEqual, 3)
				So(got[3].Player.ID, ShouldEqual, 4)
			})

			Convey("And ranks are positional", func() {
				for i, s := range got {
					So(s.Rank, ShouldEqual, i+1)
				}
			})

			Convey("And a player without a summary appears with zeros", func() {
				So(got[3].Summary.PlayerID, ShouldEqual, 4)
				So(got[3].Summary.GamesPlayed, ShouldEqual, 0)
			})
		})
	})
}

func TestPeriod(t *testing.T) {
	Convey("Given sessions in March and April", t, func() {
		players := []model.Player{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
		april := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

		march := []model.SessionEntry{
			entry("m-1", 1, 30000, 0), entry("m-1", 2, 35000, 0),
			entry("m-1", 3, 25000, 0), entry("m-1", 4, 10000, 0),
		}
		var aprilEntries []model.SessionEntry
		for _, e := range []model.SessionEntry{
			entry("a-1", 1, 10000, 0), entry("a-1", 2, 25000, 0),
			entry("a-1", 3, 35000, 0), entry("a-1", 4, 30000, 0),
		} {
			e.SessionDate = &april
			aprilEntries = append(aprilEntries, e)
		}
		all := append(append([]model.SessionEntry{}, march...), aprilEntries...)

		Convey("When computing March standings", func() {
			got, err := aggregate.Period(players, all, model.Month{Year: 2025, Month: time.March}, cfg())
			So(err, ShouldBeNil)

			Convey("Then only the March session counts", func() {
				So(got[0].Player.ID, ShouldEqual, 2)
				So(got[0].Summary.Total, ShouldEqual, 20)
				So(got[0].Summary.GamesPlayed, ShouldEqual, 1)
			})
		})

		Convey("When computing April standings", func() {
			got, err := aggregate.Period(players, all, model.Month{Year: 2025, Month: time.April}, cfg())
			So(err, ShouldBeNil)

			Convey("Then the session date decides the month", func() {
				So(got[0].Player.ID, ShouldEqual, 3)
				So(got[3].Player.ID, ShouldEqual, 1)
			})
		})

		Convey("When computing a month without sessions", func() {
			got, err := aggregate.Period(players, all, model.Month{Year: 2024, Month: time.January}, cfg())
			So(err, ShouldBeNil)

			Convey("Then every player is listed with zero games", func() {
				So(len(got), ShouldEqual, 4)
				for _, s := range got {
					So(s.Summary.GamesPlayed, ShouldEqual, 0)
				}
			})
		})
	})
}
