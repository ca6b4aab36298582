package loadtest

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Score generation constants. Four hands start at 25000 and always sum to
// the 100000 on the table.
const (
	tableTotal    = 100000
	scoreStep     = 100
	scoreMin      = -20000
	scoreMax      = 70000
	tieChance     = 0.15
	chomboChance  = 0.05
	sessionWindow = 90 // days sessions are spread over
)

// generator produces random but reproducible sessions over a fixed roster.
type generator struct {
	rng     *rand.Rand
	players []playerPayload
	start   time.Time
}

func newGenerator(seed uint64, players []playerPayload, start time.Time) *generator {
	return &generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		players: players,
		start:   start,
	}
}

// session builds the i-th session: four distinct players, a table-consistent
// set of raw scores and occasional ties and chombo.
func (g *generator) session(i int) sessionPayload {
	perm := g.rng.Perm(len(g.players))[:4]
	scores := g.scores()

	out := sessionPayload{
		SessionID:   fmt.Sprintf("load-%06d", i),
		SessionDate: g.start.AddDate(0, 0, g.rng.IntN(sessionWindow)).Format("2006-01-02"),
		Scores:      make([]scorePayload, 4),
	}
	for seat, idx := range perm {
		chombo := 0
		if g.rng.Float64() < chomboChance {
			chombo = 1 + g.rng.IntN(2)
		}
		out.Scores[seat] = scorePayload{MemberName: g.players[idx].Name, Score: scores[seat], Chombo: chombo}
	}
	return out
}

// rescore keeps the session id and date but draws new entrants and scores.
func (g *generator) rescore(s sessionPayload) sessionPayload {
	fresh := g.session(0)
	fresh.SessionID = s.SessionID
	fresh.SessionDate = s.SessionDate
	return fresh
}

func (g *generator) scores() [4]int {
	var out [4]int
	sum := 0
	for i := 0; i < 3; i++ {
		out[i] = scoreMin + g.rng.IntN((scoreMax-scoreMin)/scoreStep+1)*scoreStep
		sum += out[i]
	}
	out[3] = tableTotal - sum
	if g.rng.Float64() < tieChance {
		a := g.rng.IntN(3)
		b := a + 1 + g.rng.IntN(3-a)
		// Level two seats and give the rounding rest to a third so the table total holds.
		mid := (out[a] + out[b]) / 2 / scoreStep * scoreStep
		rest := out[a] + out[b] - 2*mid
		out[a], out[b] = mid, mid
		for k := range out {
			if k != a && k != b {
				out[k] += rest
				break
			}
		}
	}
	return out
}
