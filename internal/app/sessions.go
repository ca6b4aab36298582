package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/jansou/internal/adapters/repository"
	"github.com/okian/jansou/internal/domain/aggregate"
	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/internal/domain/scoring"
	"github.com/okian/jansou/pkg/logger"
	"github.com/okian/jansou/pkg/metrics"
)

// SubmitSession records a new complete session and recomputes the summaries
// of its four players. The first submission of a session id wins; later ones
// fail with ErrDuplicateSession.
func (s *Service) SubmitSession(ctx context.Context, slug string, in SessionInput) (res SubmitResult, err error) {
	const op = "submit session"
	start := time.Now()
	defer func() { s.observe(ctx, "submit", slug, in.SessionID, start, err) }()

	if err = normalizeSession(op, slug, &in); err != nil {
		return SubmitResult{}, err
	}
	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return SubmitResult{}, err
	}
	players, err := resolvePlayers(ctx, s.store, op, g, in)
	if err != nil {
		return SubmitResult{}, err
	}
	entries, err := buildEntries(in, players)
	if err != nil {
		return SubmitResult{}, err
	}

	defer s.lockSession(g.ID, in.SessionID)()
	ids := playerIDs(players)
	defer s.lockPlayers(ids)()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		g, err := s.group(ctx, tx, op, slug)
		if err != nil {
			return err
		}
		if err := tx.CreateSession(ctx, g.ID, in.SessionID, in.SessionDate, entries); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errs.Kind(op, errs.ErrDuplicateSession, slug, in.SessionID)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		return s.recompute(ctx, tx, g, ids)
	})
	if err != nil {
		return SubmitResult{}, err
	}

	s.invalidate(ctx, g, s.effectiveMonth(in.SessionDate))
	return SubmitResult{SessionID: in.SessionID, Entries: len(entries)}, nil
}

// UpdateSession replaces all entries of an existing session, possibly with a
// different set of players, and recomputes the union of old and new players.
// A nil SessionDate keeps the recorded date.
func (s *Service) UpdateSession(ctx context.Context, slug, sessionID string, in SessionInput) (res SubmitResult, err error) {
	const op = "update session"
	start := time.Now()
	in.SessionID = sessionID
	defer func() { s.observe(ctx, "update", slug, in.SessionID, start, err) }()

	if err = normalizeSession(op, slug, &in); err != nil {
		return SubmitResult{}, err
	}
	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return SubmitResult{}, err
	}
	players, err := resolvePlayers(ctx, s.store, op, g, in)
	if err != nil {
		return SubmitResult{}, err
	}
	entries, err := buildEntries(in, players)
	if err != nil {
		return SubmitResult{}, err
	}

	defer s.lockSession(g.ID, in.SessionID)()

	// The session lock keeps the previous player set stable until commit.
	previous, err := s.existingEntries(ctx, op, g, in.SessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	ids := unionIDs(playerIDs(players), entryPlayerIDs(previous))
	defer s.lockPlayers(ids)()

	date := in.SessionDate
	if date == nil && len(previous) > 0 {
		date = previous[0].SessionDate
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		g, err := s.group(ctx, tx, op, slug)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteSession(ctx, g.ID, in.SessionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errs.Kind(op, errs.ErrSessionNotFound, slug, in.SessionID)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := tx.CreateSession(ctx, g.ID, in.SessionID, date, entries); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return s.recompute(ctx, tx, g, ids)
	})
	if err != nil {
		return SubmitResult{}, err
	}

	s.invalidate(ctx, g, previousMonth(previous), s.effectiveMonth(date))
	return SubmitResult{SessionID: in.SessionID, Entries: len(entries)}, nil
}

// DeleteSession removes every entry of a session and recomputes the summaries
// of the players it had.
func (s *Service) DeleteSession(ctx context.Context, slug, sessionID string) (res DeleteResult, err error) {
	const op = "delete session"
	start := time.Now()
	defer func() { s.observe(ctx, "delete", slug, sessionID, start, err) }()

	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return DeleteResult{}, err
	}

	defer s.lockSession(g.ID, sessionID)()

	previous, err := s.existingEntries(ctx, op, g, sessionID)
	if err != nil {
		return DeleteResult{}, err
	}
	ids := entryPlayerIDs(previous)
	defer s.lockPlayers(ids)()

	var deleted int
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		g, err := s.group(ctx, tx, op, slug)
		if err != nil {
			return err
		}
		deleted, err = tx.DeleteSession(ctx, g.ID, sessionID)
		if errors.Is(err, repository.ErrNotFound) {
			return errs.Kind(op, errs.ErrSessionNotFound, slug, sessionID)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return s.recompute(ctx, tx, g, ids)
	})
	if err != nil {
		return DeleteResult{}, err
	}

	s.invalidate(ctx, g, previousMonth(previous))
	return DeleteResult{SessionID: sessionID, ScoresDeleted: deleted}, nil
}

// existingEntries returns the entries of a session, failing with
// ErrSessionNotFound when the session does not exist.
func (s *Service) existingEntries(ctx context.Context, op string, g model.Group, sessionID string) ([]model.SessionEntry, error) {
	ok, err := s.store.SessionExists(ctx, g.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, errs.Kind(op, errs.ErrSessionNotFound, g.Slug, sessionID)
	}
	entries, err := s.store.SessionEntries(ctx, g.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

func (s *Service) observe(ctx context.Context, op, slug, sessionID string, start time.Time, err error) {
	elapsed := time.Since(start)
	result := outcome(err)
	metrics.RecordSessionMutation(op, result)
	metrics.RecordMutationLatency(op, float64(elapsed.Nanoseconds())/1e6)

	fields := []logger.Field{
		logger.String("op", op),
		logger.String("group", slug),
		logger.String("session_id", sessionID),
		logger.String("outcome", result),
		logger.Duration("elapsed", elapsed),
	}
	switch result {
	case "ok":
		s.logger.Info(ctx, "session mutation applied", fields...)
	case "internal", "incomplete":
		metrics.RecordErrorByComponent("app", result)
		s.logger.Error(ctx, "session mutation failed", append(fields, logger.Error(err))...)
	default:
		s.logger.Debug(ctx, "session mutation rejected", append(fields, logger.Error(err))...)
	}
}

// buildEntries pairs inputs with players and records each entrant's placement.
func buildEntries(in SessionInput, players []model.Player) ([]model.SessionEntry, error) {
	seats := make([]scoring.Seat, len(in.Entries))
	for i, e := range in.Entries {
		seats[i] = scoring.Seat{PlayerID: players[i].ID, RawScore: e.Score}
	}
	// Placement depends on raw scores only, so any config ranks the same.
	placements, err := scoring.Rank(seats, scoring.Config{})
	if err != nil {
		return nil, err
	}
	placeOf := make(map[int64]float64, len(placements))
	for _, p := range placements {
		placeOf[p.PlayerID] = p.Placement
	}

	out := make([]model.SessionEntry, len(in.Entries))
	for i, e := range in.Entries {
		out[i] = model.SessionEntry{
			SessionID:   in.SessionID,
			PlayerID:    players[i].ID,
			PlayerName:  players[i].Name,
			RawScore:    e.Score,
			Chombo:      e.Chombo,
			SessionDate: in.SessionDate,
			Placement:   placeOf[players[i].ID],
		}
	}
	return out, nil
}

// previousMonth is the effective month of an already recorded session.
func previousMonth(entries []model.SessionEntry) model.Month {
	return model.MonthOf(aggregate.Session{Entries: entries}.Date())
}

func playerIDs(players []model.Player) []int64 {
	out := make([]int64, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

func entryPlayerIDs(entries []model.SessionEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.PlayerID
	}
	return out
}

// unionIDs returns the sorted distinct ids of a and b.
func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	var out []int64
	for _, id := range append(append([]int64(nil), a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
