package loadtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/jansou/internal/domain/aggregate"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/internal/domain/scoring"
)

const totalTolerance = 1e-6

// verifyStandings recomputes every player's summary from the sessions the
// server should hold and compares it with the reported standings.
func verifyStandings(g groupPayload, players []playerPayload, sessions map[string]sessionPayload, rows []standingRow) error {
	if len(rows) != len(players) {
		return fmt.Errorf("standings have %d rows, group has %d players", len(rows), len(players))
	}
	for i, r := range rows {
		if r.Rank != i+1 {
			return fmt.Errorf("row %d has rank %d", i, r.Rank)
		}
		if i > 0 && r.Summary.Total > rows[i-1].Summary.Total {
			return fmt.Errorf("standings not sorted: row %d total %.3f above row %d", i, r.Summary.Total, i-1)
		}
	}

	ids := make(map[string]int64, len(players))
	for _, p := range players {
		ids[p.Name] = p.ID
	}
	var entries []model.SessionEntry
	for _, s := range sessions {
		for _, sc := range s.Scores {
			entries = append(entries, model.SessionEntry{
				SessionID: s.SessionID,
				PlayerID:  ids[sc.MemberName],
				RawScore:  sc.Score,
				Chombo:    sc.Chombo,
			})
		}
	}
	grouped := aggregate.GroupSessions(entries)
	cfg := scoring.Resolve(model.Group{TargetPoint: g.TargetPoint, Uma: g.Uma, ChomboEnabled: g.ChomboEnabled})

	for _, r := range rows {
		want, err := aggregate.Summarize(r.Player.ID, aggregate.SessionsOf(r.Player.ID, grouped), cfg)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", r.Player.Name, err)
		}
		switch {
		case math.Abs(want.Total-r.Summary.Total) > totalTolerance:
			return fmt.Errorf("%s: total %.3f, want %.3f", r.Player.Name, r.Summary.Total, want.Total)
		case want.GamesPlayed != r.Summary.GamesPlayed:
			return fmt.Errorf("%s: %d games, want %d", r.Player.Name, r.Summary.GamesPlayed, want.GamesPlayed)
		case want.ChomboCount != r.Summary.ChomboCount:
			return fmt.Errorf("%s: %d chombo, want %d", r.Player.Name, r.Summary.ChomboCount, want.ChomboCount)
		case want.PlacementCounts != r.Summary.PlacementCounts:
			return fmt.Errorf("%s: placements %v, want %v", r.Player.Name, r.Summary.PlacementCounts, want.PlacementCounts)
		}
	}
	return nil
}

func sortSessions(list []sessionPayload) {
	sort.Slice(list, func(i, j int) bool { return list[i].SessionID < list[j].SessionID })
}
