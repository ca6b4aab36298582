package service

import (
	"time"

	"github.com/okian/jansou/internal/domain/model"
)

// EntryInput is one player's raw result as submitted.
type EntryInput struct {
	PlayerName string
	Score      int
	Chombo     int
}

// SessionInput is a submitted or replacement session.
type SessionInput struct {
	SessionID   string
	SessionDate *time.Time
	Entries     []EntryInput
}

// SubmitResult reports a successful submit or update.
type SubmitResult struct {
	SessionID string
	Entries   int
}

// DeleteResult reports a successful delete.
type DeleteResult struct {
	SessionID     string
	ScoresDeleted int
}

// ScoringInput carries a group's scoring configuration. Nil fields are left
// unchanged on update and take configured defaults on create.
type ScoringInput struct {
	StartPoint    *int
	TargetPoint   *int
	Uma           *[4]int
	ChomboEnabled *bool
}

// GroupInput creates a group. An empty Slug is derived from Name.
type GroupInput struct {
	Name string
	Slug string
	ScoringInput
}

// SessionListItem is one complete session in a session list.
type SessionListItem struct {
	SessionID string                `json:"session_id"`
	Date      time.Time             `json:"session_date"`
	Entrants  []model.EntrantResult `json:"players"`
}

// SessionPage is one page of a month's complete sessions.
type SessionPage struct {
	Month      string            `json:"month"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Total      int               `json:"total"`
	Sessions   []SessionListItem `json:"sessions"`
}
