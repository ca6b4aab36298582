package model

import "time"

// PlayerSummary is the derived aggregate of a player's complete sessions.
// It is always recomputed from scratch, never patched.
type PlayerSummary struct {
	PlayerID         int64     `json:"player_id"`
	Total            float64   `json:"total"`
	GamesPlayed      int       `json:"games_played"`
	AveragePerGame   float64   `json:"average_per_game"`
	AveragePlacement float64   `json:"average_placement"`
	ChomboCount      int       `json:"chombo_count"`
	PlacementCounts  [4]int    `json:"placement_counts"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Standing is one row of a group's standings.
type Standing struct {
	Rank    int           `json:"rank"`
	Player  Player        `json:"player"`
	Summary PlayerSummary `json:"summary"`
}
