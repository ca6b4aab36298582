package scoring

import (
	"fmt"
	"sort"

	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
)

// Seat is one entrant's raw result as input to ranking.
type Seat struct {
	PlayerID int64
	RawScore int
}

// Placement is the ranking outcome for one entrant.
type Placement struct {
	PlayerID  int64
	RawScore  int
	Placement float64 // 1..4, averaged over a tie run
	Uma       float64 // mean of the configured uma over the tie run
}

// Rank places the four entrants of a session by raw score, highest first.
//
// Entrants with equal raw scores form a run over positions i..j; each of them
// gets placement (i+j)/2 and the mean of Uma[i..j]. The uma shares therefore
// always add up to cfg.UmaSum() whatever the tie pattern.
//
// The result is ordered by placement, then by player id.
func Rank(seats []Seat, cfg Config) ([]Placement, error) {
	if len(seats) != model.SeatsPerSession {
		return nil, &errs.Error{
			Op:   "scoring.rank",
			Kind: errs.ErrIncompleteSession,
			Msg:  fmt.Sprintf("expected %d entries, got %d", model.SeatsPerSession, len(seats)),
		}
	}

	sorted := make([]Seat, len(seats))
	copy(sorted, seats)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].RawScore != sorted[b].RawScore {
			return sorted[a].RawScore > sorted[b].RawScore
		}
		return sorted[a].PlayerID < sorted[b].PlayerID
	})

	out := make([]Placement, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1].RawScore == sorted[i].RawScore {
			j++
		}

		// positions are 1-based: i+1 .. j+1
		runLen := j - i + 1
		umaSum := 0
		for p := i; p <= j; p++ {
			umaSum += cfg.Uma[p]
		}
		placement := float64(i+1+j+1) / 2
		share := float64(umaSum) / float64(runLen)

		for p := i; p <= j; p++ {
			out[p] = Placement{
				PlayerID:  sorted[p].PlayerID,
				RawScore:  sorted[p].RawScore,
				Placement: placement,
				Uma:       share,
			}
		}
		i = j + 1
	}
	return out, nil
}
