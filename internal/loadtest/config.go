// Package loadtest drives a running jansou server with concurrent session
// traffic and checks the standings it reports against a local recomputation.
package loadtest

import (
	"time"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Token      string        // Bearer token for write routes; empty when auth is off
	Players    int           // Members created in the test group
	Sessions   int           // Distinct sessions to submit
	Duplicates float64       // Fraction of sessions submitted a second time
	Updates    float64       // Fraction of sessions rewritten after submission
	Deletes    float64       // Fraction of sessions deleted after submission
	Workers    int           // Concurrent HTTP workers
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Seed for the session generator; zero picks one
	OutputFile string        // Where to write the final session set; empty skips it
	Verbose    bool          // Log every failed request
}

// Stats holds test statistics.
type Stats struct {
	Group             string
	SessionsGenerated int
	Submitted         int
	Created           int
	Duplicate         int
	Updated           int
	Deleted           int
	Failed            int
	StandingsRows     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

type scorePayload struct {
	MemberName string `json:"member_name"`
	Score      int    `json:"score"`
	Chombo     int    `json:"chombo"`
}

// sessionPayload is the wire form of a session submit or update.
type sessionPayload struct {
	SessionID   string         `json:"session_id"`
	SessionDate string         `json:"session_date,omitempty"`
	Scores      []scorePayload `json:"scores"`
}

type groupPayload struct {
	ID            int64  `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	TargetPoint   int    `json:"target_point"`
	Uma           [4]int `json:"uma"`
	ChomboEnabled bool   `json:"chombo_enabled"`
}

type playerPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type standingRow struct {
	Rank   int `json:"rank"`
	Player struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
	Summary struct {
		Total           float64 `json:"total"`
		GamesPlayed     int     `json:"games_played"`
		ChomboCount     int     `json:"chombo_count"`
		PlacementCounts [4]int  `json:"placement_counts"`
	} `json:"summary"`
}

type standingsPayload struct {
	Standings []standingRow `json:"standings"`
}
