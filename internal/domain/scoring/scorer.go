package scoring

// Breakdown is one entrant's session score split into its components.
type Breakdown struct {
	Base    float64
	Uma     float64
	Penalty float64
	Total   float64
}

// Score combines base normalization, the placement bonus and the chombo
// penalty, in that order, for one entrant.
func Score(rawScore int, p Placement, chombo int, cfg Config) Breakdown {
	b := Breakdown{
		Base: float64(rawScore-cfg.TargetScore) / baseScale,
		Uma:  p.Uma,
	}
	if cfg.ChomboEnabled && chombo > 0 {
		b.Penalty = -float64(ChomboPenalty * chombo)
	}
	b.Total = b.Base + b.Uma
	b.Total += b.Penalty
	return b
}
