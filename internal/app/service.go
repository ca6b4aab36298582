// Package service coordinates session mutations and the read side of the
// scoring engine on top of the storage collaborator.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/jansou/internal/adapters/cache"
	"github.com/okian/jansou/internal/adapters/mq/queue"
	"github.com/okian/jansou/internal/adapters/repository"
	"github.com/okian/jansou/internal/domain/aggregate"
	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/internal/domain/scoring"
	"github.com/okian/jansou/pkg/logger"
	"github.com/okian/jansou/pkg/metrics"
)

const defaultPageSize = 10

// GroupDefaults are the scoring settings a new group gets when it leaves them unset.
type GroupDefaults struct {
	StartPoint    int
	TargetPoint   int
	Uma           [4]int
	ChomboEnabled bool
}

// WarmQueue accepts standings warm-up jobs. Enqueue must not block.
type WarmQueue interface {
	Enqueue(ctx context.Context, job queue.Job) bool
}

// Service implements the session mutation coordinator and the read side.
// All methods are safe for concurrent use.
type Service struct {
	store     repository.Store
	standings cache.Standings
	warm      WarmQueue
	locks     *keyLocks

	defaults GroupDefaults
	pageSize int
	now      func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStandingsCache sets the cache consulted by GetStandings.
func WithStandingsCache(c cache.Standings) Option {
	return func(s *Service) {
		if c != nil {
			s.standings = c
		}
	}
}

// WithWarmQueue makes committed mutations schedule a refill of the tables they
// invalidated.
func WithWarmQueue(q WarmQueue) Option {
	return func(s *Service) {
		s.warm = q
	}
}

// WithGroupDefaults sets the scoring defaults for new groups.
func WithGroupDefaults(d GroupDefaults) Option {
	return func(s *Service) {
		s.defaults = d
	}
}

// WithPageSize sets the session list page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock overrides the time source used for summary timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		standings: cache.Noop{},
		locks:     newKeyLocks(),
		defaults: GroupDefaults{
			StartPoint:    30000,
			TargetPoint:   30000,
			Uma:           [4]int{15, 5, -5, -15},
			ChomboEnabled: true,
		},
		pageSize: defaultPageSize,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// group resolves a slug, mapping an unknown slug to ErrGroupNotFound.
func (s *Service) group(ctx context.Context, r repository.Reader, op, slug string) (model.Group, error) {
	g, err := r.GroupBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Group{}, errs.Kind(op, errs.ErrGroupNotFound, slug, "")
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("%s: load group %s: %w", op, slug, err)
	}
	return g, nil
}

// recompute overwrites the summary of each player from every session they took part in.
// Must run inside tx while the caller holds the players' locks.
func (s *Service) recompute(ctx context.Context, tx repository.Tx, g model.Group, playerIDs []int64) error {
	cfg := scoring.Resolve(g)
	for _, pid := range playerIDs {
		start := time.Now()

		entries, err := tx.PlayerSessions(ctx, g.ID, pid)
		if err != nil {
			return fmt.Errorf("load sessions of player %d: %w", pid, err)
		}
		sum, err := aggregate.Summarize(pid, aggregate.GroupSessions(entries), cfg)
		if err != nil {
			return fmt.Errorf("summarize player %d: %w", pid, err)
		}
		sum.UpdatedAt = s.now().UTC()
		if err := tx.SaveSummary(ctx, g.ID, sum); err != nil {
			return fmt.Errorf("save summary of player %d: %w", pid, err)
		}

		metrics.RecordSummaryRecompute(float64(time.Since(start).Nanoseconds()) / 1e6)
	}
	return nil
}

// invalidate retires cached standings and, with a warm queue, schedules the
// all-time table and the given months for a refill. Cache failures never fail
// a mutation.
func (s *Service) invalidate(ctx context.Context, g model.Group, months ...model.Month) {
	if err := s.standings.Invalidate(ctx, g.ID); err != nil {
		metrics.RecordErrorByComponent("cache", "invalidate")
		s.logger.Warn(ctx, "standings cache invalidation failed",
			logger.String("group", g.Slug),
			logger.Error(err),
		)
		return
	}
	if s.warm == nil {
		return
	}

	jobs := []queue.Job{{GroupID: g.ID, Group: g.Slug}}
	seen := make(map[model.Month]bool, len(months))
	for _, m := range months {
		if !seen[m] {
			seen[m] = true
			jobs = append(jobs, queue.Job{GroupID: g.ID, Group: g.Slug, Month: &m})
		}
	}
	for _, j := range jobs {
		if !s.warm.Enqueue(ctx, j) {
			s.logger.Debug(ctx, "standings warm-up dropped", logger.String("group", g.Slug), logger.String("key", j.Key()))
		}
	}
}

// effectiveMonth is the month a session with this recorded date lands in.
func (s *Service) effectiveMonth(date *time.Time) model.Month {
	if date != nil {
		return model.MonthOf(*date)
	}
	return model.MonthOf(s.now())
}

func sessionKey(groupID int64, sessionID string) string {
	return fmt.Sprintf("session:%d:%s", groupID, sessionID)
}

// playerKey zero-pads the id so lexical key order is id order.
func playerKey(id int64) string {
	return fmt.Sprintf("player:%020d", id)
}

func (s *Service) lockPlayers(ids []int64) func() {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(id)
	}
	start := time.Now()
	release := s.locks.LockAll(keys)
	metrics.RecordLockWait(float64(time.Since(start).Nanoseconds()) / 1e6)
	return release
}

func (s *Service) lockSession(groupID int64, sessionID string) func() {
	start := time.Now()
	release := s.locks.Lock(sessionKey(groupID, sessionID))
	metrics.RecordLockWait(float64(time.Since(start).Nanoseconds()) / 1e6)
	return release
}

// outcome labels an error for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrValidation):
		return "validation"
	case errors.Is(err, errs.ErrDuplicateSession):
		return "duplicate"
	case errors.Is(err, errs.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrGroupNotFound):
		return "group_not_found"
	case errors.Is(err, errs.ErrIncompleteSession):
		return "incomplete"
	default:
		return "internal"
	}
}
