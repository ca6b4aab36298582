// Package repository persists groups, players, session entries and player
// summaries, and provides the transactional boundary session mutations run in.
package repository

import (
	"context"
	"time"

	"github.com/okian/jansou/internal/domain/model"
)

// Reader exposes the read side shared by the store and its transactions.
type Reader interface {
	// GroupBySlug returns ErrNotFound for an unknown slug.
	GroupBySlug(ctx context.Context, slug string) (model.Group, error)
	PlayersInGroup(ctx context.Context, groupID int64) ([]model.Player, error)
	// PlayersByName returns the players of the group whose names are listed; unknown names are absent.
	PlayersByName(ctx context.Context, groupID int64, names []string) (map[string]model.Player, error)
	// SessionExists reports whether a session header exists for (group, session id).
	SessionExists(ctx context.Context, groupID int64, sessionID string) (bool, error)
	SessionEntries(ctx context.Context, groupID int64, sessionID string) ([]model.SessionEntry, error)
	EntriesInGroup(ctx context.Context, groupID int64) ([]model.SessionEntry, error)
	// PlayerSessions returns every entry of every session the player has an entry in.
	PlayerSessions(ctx context.Context, groupID, playerID int64) ([]model.SessionEntry, error)
	SummariesInGroup(ctx context.Context, groupID int64) (map[int64]model.PlayerSummary, error)
}

// Tx is a unit of work. Everything written through a Tx commits or rolls back together.
type Tx interface {
	Reader

	// CreateGroup fills g.ID and g.CreatedAt. Returns ErrConflict on a duplicate slug.
	CreateGroup(ctx context.Context, g *model.Group) error
	// UpdateGroupScoring overwrites the scoring configuration of g.ID.
	UpdateGroupScoring(ctx context.Context, g model.Group) error
	// CreatePlayer fills p.ID and p.CreatedAt. Returns ErrConflict on a duplicate name in the group.
	CreatePlayer(ctx context.Context, p *model.Player) error

	// CreateSession writes the session header and its entries. Returns ErrConflict
	// when the header already exists.
	CreateSession(ctx context.Context, groupID int64, sessionID string, date *time.Time, entries []model.SessionEntry) error
	// DeleteSession removes the header and all entries and returns the number of
	// entries removed. Returns ErrNotFound when the header is absent.
	DeleteSession(ctx context.Context, groupID int64, sessionID string) (int, error)

	// SaveSummary overwrites the player's summary, creating it on first use.
	SaveSummary(ctx context.Context, groupID int64, s model.PlayerSummary) error
}

// Store is the transactional storage collaborator of the scoring engine.
type Store interface {
	Reader

	// WithinTx runs fn in a transaction. fn must only use the Tx it is given;
	// a non-nil error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}
