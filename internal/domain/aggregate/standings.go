package aggregate

import (
	"sort"

	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/internal/domain/scoring"
)

// Standings orders players by summary total descending, then player id
// ascending, and assigns ranks 1..N. Players without a summary rank with zeros.
func Standings(players []model.Player, summaries map[int64]model.PlayerSummary) []model.Standing {
	out := make([]model.Standing, len(players))
	for i, p := range players {
		sum, ok := summaries[p.ID]
		if !ok {
			sum = model.PlayerSummary{PlayerID: p.ID}
		}
		out[i] = model.Standing{Player: p, Summary: sum}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Summary.Total != out[b].Summary.Total {
			return out[a].Summary.Total > out[b].Summary.Total
		}
		return out[a].Player.ID < out[b].Player.ID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Period computes standings over the sessions whose effective date falls in
// month. entries are all entries of the group.
func Period(players []model.Player, entries []model.SessionEntry, month model.Month, cfg scoring.Config) ([]model.Standing, error) {
	var inMonth []Session
	for _, s := range GroupSessions(entries) {
		if month.Contains(s.Date()) {
			inMonth = append(inMonth, s)
		}
	}

	summaries := make(map[int64]model.PlayerSummary, len(players))
	for _, p := range players {
		sum, err := Summarize(p.ID, SessionsOf(p.ID, inMonth), cfg)
		if err != nil {
			return nil, err
		}
		summaries[p.ID] = sum
	}
	return Standings(players, summaries), nil
}
