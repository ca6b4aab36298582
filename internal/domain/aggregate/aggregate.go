// Package aggregate folds complete sessions into per-player summaries and
// group standings. All functions are pure reductions over historical entries,
// so recomputing from the same entries always gives the same result.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/internal/domain/scoring"
)

// Session is every entry recorded under one session id of a group.
type Session struct {
	SessionID string
	Entries   []model.SessionEntry
}

// Complete reports whether the session has exactly four entries.
func (s Session) Complete() bool {
	return len(s.Entries) == model.SeatsPerSession
}

// Date returns the effective date of the session: the recorded session date,
// else the earliest creation time among its entries.
func (s Session) Date() time.Time {
	var date time.Time
	for i, e := range s.Entries {
		d := e.EffectiveDate()
		if e.SessionDate != nil {
			return d
		}
		if i == 0 || d.Before(date) {
			date = d
		}
	}
	return date
}

// GroupSessions buckets entries by session id. Sessions are returned in session
// id order and entries keep their input order.
func GroupSessions(entries []model.SessionEntry) []Session {
	idx := make(map[string]int)
	var out []Session
	for _, e := range entries {
		i, ok := idx[e.SessionID]
		if !ok {
			i = len(out)
			idx[e.SessionID] = i
			out = append(out, Session{SessionID: e.SessionID})
		}
		out[i].Entries = append(out[i].Entries, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].SessionID < out[b].SessionID })
	return out
}

// Evaluate ranks and scores a complete session. Results are ordered by
// placement, then player id.
func Evaluate(s Session, cfg scoring.Config) ([]model.EntrantResult, error) {
	seats := make([]scoring.Seat, len(s.Entries))
	byPlayer := make(map[int64]model.SessionEntry, len(s.Entries))
	for i, e := range s.Entries {
		seats[i] = scoring.Seat{PlayerID: e.PlayerID, RawScore: e.RawScore}
		byPlayer[e.PlayerID] = e
	}

	placements, err := scoring.Rank(seats, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]model.EntrantResult, len(placements))
	for i, p := range placements {
		e := byPlayer[p.PlayerID]
		b := scoring.Score(e.RawScore, p, e.Chombo, cfg)
		out[i] = model.EntrantResult{
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			RawScore:   e.RawScore,
			Placement:  p.Placement,
			BaseScore:  b.Base,
			Uma:        b.Uma,
			Penalty:    b.Penalty,
			Chombo:     e.Chombo,
			Total:      b.Total,
		}
	}
	return out, nil
}

// Summarize folds the sessions a player took part in into a PlayerSummary.
//
// Sessions without exactly four entries contribute no score, game or
// placement. Chombo is counted over all of the player's entries, complete or
// not, and regardless of whether the group applies the penalty. Sessions that
// do not include the player are ignored. UpdatedAt is left zero.
func Summarize(playerID int64, sessions []Session, cfg scoring.Config) (model.PlayerSummary, error) {
	ordered := make([]Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].SessionID < ordered[b].SessionID })

	sum := model.PlayerSummary{PlayerID: playerID}
	placementTotal := 0.0

	for _, s := range ordered {
		own, ok := entryOf(s, playerID)
		if !ok {
			continue
		}
		sum.ChomboCount += own.Chombo

		if !s.Complete() {
			continue
		}
		results, err := Evaluate(s, cfg)
		if err != nil {
			return model.PlayerSummary{}, err
		}
		for _, r := range results {
			if r.PlayerID != playerID {
				continue
			}
			sum.Total += r.Total
			sum.GamesPlayed++
			placementTotal += r.Placement
			if slot := placementSlot(r.Placement); slot >= 0 {
				sum.PlacementCounts[slot]++
			}
		}
	}

	if sum.GamesPlayed > 0 {
		sum.AveragePerGame = sum.Total / float64(sum.GamesPlayed)
		sum.AveragePlacement = placementTotal / float64(sum.GamesPlayed)
	}
	return sum, nil
}

// SessionsOf returns the sessions that include playerID.
func SessionsOf(playerID int64, sessions []Session) []Session {
	var out []Session
	for _, s := range sessions {
		if _, ok := entryOf(s, playerID); ok {
			out = append(out, s)
		}
	}
	return out
}

func entryOf(s Session, playerID int64) (model.SessionEntry, bool) {
	for _, e := range s.Entries {
		if e.PlayerID == playerID {
			return e, true
		}
	}
	return model.SessionEntry{}, false
}

// placementSlot maps a possibly fractional placement to a 0-based bucket,
// rounding half to even (1.5 -> 2nd, 2.5 -> 2nd, 3.5 -> 4th).
func placementSlot(p float64) int {
	slot := int(math.RoundToEven(p)) - 1
	if slot < 0 || slot >= model.SeatsPerSession {
		return -1
	}
	return slot
}
