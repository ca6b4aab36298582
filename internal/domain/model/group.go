// Package model contains domain models passed between layers.
package model

import "time"

// Group is a club whose members play sessions together. It owns the scoring
// configuration applied to every session of the group.
type Group struct {
	ID            int64     `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	StartPoint    int       `json:"start_point"`  // chips each player starts with; informational
	TargetPoint   int       `json:"target_point"` // baseline a raw score is normalized against
	Uma           [4]int    `json:"uma"`          // placement bonus for ranks 1..4, nominally zero-sum
	ChomboEnabled bool      `json:"chombo_enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// Player is a member of exactly one group.
type Player struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
