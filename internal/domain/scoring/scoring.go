// Package scoring turns the raw results of one mahjong session into placements
// and per-entrant scores.
//
// Everything here is pure: the group configuration is passed explicitly into
// every call and nothing is read from ambient state.
package scoring

import "github.com/okian/jansou/internal/domain/model"

// ChomboPenalty is deducted per chombo when the group enables the penalty.
const ChomboPenalty = 30

// baseScale scales a normalized raw score down to points.
const baseScale = 1000.0

// Config is the resolved scoring configuration of a group.
type Config struct {
	TargetScore   int
	Uma           [4]int
	ChomboEnabled bool
}

// Resolve returns the scoring configuration of g. Uma values are taken as-is;
// a group whose uma does not sum to zero simply yields non-zero-sum results.
func Resolve(g model.Group) Config {
	return Config{
		TargetScore:   g.TargetPoint,
		Uma:           g.Uma,
		ChomboEnabled: g.ChomboEnabled,
	}
}

// UmaSum returns the sum of the configured placement bonuses.
func (c Config) UmaSum() int {
	return c.Uma[0] + c.Uma[1] + c.Uma[2] + c.Uma[3]
}
