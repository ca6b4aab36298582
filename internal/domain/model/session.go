package model

import "time"

// SeatsPerSession is the number of entries that makes a session complete.
const SeatsPerSession = 4

// SessionEntry is one player's raw result in one session.
type SessionEntry struct {
	ID          int64
	GroupID     int64
	SessionID   string
	PlayerID    int64
	PlayerName  string
	RawScore    int
	Chombo      int
	SessionDate *time.Time
	Placement   float64 // derived; fractional when tied
	CreatedAt   time.Time
}

// EffectiveDate is the session date when recorded, otherwise the creation time.
func (e SessionEntry) EffectiveDate() time.Time {
	if e.SessionDate != nil {
		return *e.SessionDate
	}
	return e.CreatedAt
}

// EntrantResult is the scoring breakdown of one entrant of a complete session.
type EntrantResult struct {
	PlayerID   int64   `json:"player_id"`
	PlayerName string  `json:"member"`
	RawScore   int     `json:"raw_score"`
	Placement  float64 `json:"placement"`
	BaseScore  float64 `json:"base_score"`
	Uma        float64 `json:"uma"`
	Penalty    float64 `json:"penalty"`
	Chombo     int     `json:"chombo"`
	Total      float64 `json:"calculated_score"`
}

// SessionDetail is the per-entrant breakdown of a complete session.
type SessionDetail struct {
	SessionID   string          `json:"session_id"`
	SessionDate time.Time       `json:"session_date"`
	Entrants    []EntrantResult `json:"players"`
}
