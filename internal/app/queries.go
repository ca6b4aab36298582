package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/jansou/internal/adapters/repository"
	"github.com/okian/jansou/internal/domain/aggregate"
	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/internal/domain/scoring"
	"github.com/okian/jansou/pkg/logger"
	"github.com/okian/jansou/pkg/metrics"
)

// GetStandings returns the group's standings. A nil month gives the all-time
// table from stored summaries; otherwise the table is computed over the
// sessions of that month.
func (s *Service) GetStandings(ctx context.Context, slug string, month *model.Month) ([]model.Standing, error) {
	const op = "get standings"

	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return nil, err
	}
	key := ""
	if month != nil {
		key = month.String()
	}

	rows, gen, hit, err := s.standings.Lookup(ctx, g.ID, key)
	if err != nil {
		metrics.RecordErrorByComponent("cache", "lookup")
		s.logger.Warn(ctx, "standings cache lookup failed", logger.String("group", slug), logger.Error(err))
	}
	if hit {
		return rows, nil
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		players, err := tx.PlayersInGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		if month == nil {
			summaries, err := tx.SummariesInGroup(ctx, g.ID)
			if err != nil {
				return err
			}
			rows = aggregate.Standings(players, summaries)
			return nil
		}
		entries, err := tx.EntriesInGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		rows, err = aggregate.Period(players, entries, *month, scoring.Resolve(g))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.standings.Store(ctx, g.ID, gen, key, rows); err != nil {
		metrics.RecordErrorByComponent("cache", "store")
		s.logger.Warn(ctx, "standings cache store failed", logger.String("group", slug), logger.Error(err))
	}
	return rows, nil
}

// GetSessionDetail returns the scoring breakdown of every entrant of a session.
func (s *Service) GetSessionDetail(ctx context.Context, slug, sessionID string) (model.SessionDetail, error) {
	const op = "get session"

	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return model.SessionDetail{}, err
	}
	entries, err := s.store.SessionEntries(ctx, g.ID, sessionID)
	if err != nil {
		return model.SessionDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(entries) == 0 {
		return model.SessionDetail{}, errs.Kind(op, errs.ErrSessionNotFound, slug, sessionID)
	}

	sess := aggregate.Session{SessionID: sessionID, Entries: entries}
	results, err := aggregate.Evaluate(sess, scoring.Resolve(g))
	if err != nil {
		return model.SessionDetail{}, err
	}
	return model.SessionDetail{SessionID: sessionID, SessionDate: sess.Date(), Entrants: results}, nil
}

// ListSessions pages through the complete sessions of a month, newest first.
// Pages are 1-based; out-of-range pages clamp to the nearest valid page.
func (s *Service) ListSessions(ctx context.Context, slug string, month model.Month, page int) (SessionPage, error) {
	const op = "list sessions"

	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return SessionPage{}, err
	}
	entries, err := s.store.EntriesInGroup(ctx, g.ID)
	if err != nil {
		return SessionPage{}, fmt.Errorf("%s: %w", op, err)
	}

	var sessions []aggregate.Session
	for _, sess := range aggregate.GroupSessions(entries) {
		if sess.Complete() && month.Contains(sess.Date()) {
			sessions = append(sessions, sess)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		di, dj := sessions[i].Date(), sessions[j].Date()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return sessions[i].SessionID < sessions[j].SessionID
	})

	totalPages := (len(sessions) + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	lo := (page - 1) * s.pageSize
	hi := min(lo+s.pageSize, len(sessions))
	out := SessionPage{
		Month:      month.String(),
		Page:       page,
		TotalPages: totalPages,
		Total:      len(sessions),
		Sessions:   make([]SessionListItem, 0, hi-lo),
	}
	cfg := scoring.Resolve(g)
	for _, sess := range sessions[lo:hi] {
		results, err := aggregate.Evaluate(sess, cfg)
		if err != nil {
			return SessionPage{}, err
		}
		out.Sessions = append(out.Sessions, SessionListItem{SessionID: sess.SessionID, Date: sess.Date(), Entrants: results})
	}
	return out, nil
}
