// Package cache keeps computed group standings in Redis so repeated reads skip
// the recompute. Entries are versioned per group by a generation counter: every
// mutation bumps the counter and older generations are never read again.
package cache

import (
	"context"

	"github.com/okian/jansou/internal/domain/model"
)

// Standings caches standings per (group, month). An empty month is the
// all-time table.
type Standings interface {
	// Lookup returns the cached rows, the generation they were looked up at,
	// and whether the lookup hit.
	Lookup(ctx context.Context, groupID int64, month string) ([]model.Standing, int64, bool, error)
	// Store saves rows computed while gen was current. A Store for a stale
	// generation is harmless.
	Store(ctx context.Context, groupID, gen int64, month string, rows []model.Standing) error
	// Invalidate retires every cached table of the group.
	Invalidate(ctx context.Context, groupID int64) error
}

// Noop never hits. It is used when no Redis address is configured.
type Noop struct{}

var _ Standings = Noop{}

func (Noop) Lookup(context.Context, int64, string) ([]model.Standing, int64, bool, error) {
	return nil, 0, false, nil
}

func (Noop) Store(context.Context, int64, int64, string, []model.Standing) error { return nil }

func (Noop) Invalidate(context.Context, int64) error { return nil }
