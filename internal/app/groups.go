package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/jansou/internal/adapters/repository"
	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/logger"
	"github.com/okian/jansou/pkg/metrics"
)

// CreateGroup creates a group. The slug defaults to the slugified name and
// unset scoring fields take the configured defaults.
func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (model.Group, error) {
	const op = "create group"

	name, err := validateName(op, in.Slug, "name", in.Name)
	if err != nil {
		return model.Group{}, err
	}
	slug := in.Slug
	if slug == "" {
		slug = slugify(name)
	}
	if !validSlug(slug) {
		return model.Group{}, errs.Validation(op, slug, "", "slug",
			"slug must be 1-100 lowercase letters, digits, '-' or '_'")
	}

	g := model.Group{
		Slug:          slug,
		Name:          name,
		StartPoint:    s.defaults.StartPoint,
		TargetPoint:   s.defaults.TargetPoint,
		Uma:           s.defaults.Uma,
		ChomboEnabled: s.defaults.ChomboEnabled,
	}
	if err := applyScoring(op, &g, in.ScoringInput); err != nil {
		return model.Group{}, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateGroup(ctx, &g)
	})
	if errors.Is(err, repository.ErrConflict) {
		return model.Group{}, errs.Validation(op, slug, "", "slug", "a group with this slug already exists")
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RecordGroupCreated()
	s.logger.Info(ctx, "group created", logger.String("group", g.Slug), logger.Int64("group_id", g.ID))
	return g, nil
}

// UpdateGroupConfig changes a group's scoring configuration and recomputes
// every player summary of the group in the same transaction.
func (s *Service) UpdateGroupConfig(ctx context.Context, slug string, in ScoringInput) (model.Group, error) {
	const op = "update group config"

	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return model.Group{}, err
	}
	players, err := s.store.PlayersInGroup(ctx, g.ID)
	if err != nil {
		return model.Group{}, fmt.Errorf("%s: %w", op, err)
	}
	defer s.lockPlayers(playerIDs(players))()

	var updated model.Group
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		g, err := s.group(ctx, tx, op, slug)
		if err != nil {
			return err
		}
		if err := applyScoring(op, &g, in); err != nil {
			return err
		}
		if err := tx.UpdateGroupScoring(ctx, g); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		members, err := tx.PlayersInGroup(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.recompute(ctx, tx, g, playerIDs(members)); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil {
		return model.Group{}, err
	}

	s.invalidate(ctx, updated, model.MonthOf(s.now()))
	s.logger.Info(ctx, "group scoring updated",
		logger.String("group", slug),
		logger.Int("target_point", updated.TargetPoint),
		logger.Any("uma", updated.Uma),
		logger.Bool("chombo_enabled", updated.ChomboEnabled),
		logger.Int("players_recomputed", len(players)),
	)
	return updated, nil
}

// AddPlayer adds a uniquely named player to a group.
func (s *Service) AddPlayer(ctx context.Context, slug, name string) (model.Player, error) {
	const op = "add player"

	name, err := validateName(op, slug, "name", name)
	if err != nil {
		return model.Player{}, err
	}
	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return model.Player{}, err
	}

	p := model.Player{GroupID: g.ID, Name: name}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreatePlayer(ctx, &p)
	})
	if errors.Is(err, repository.ErrConflict) {
		return model.Player{}, errs.Validation(op, slug, "", "name", fmt.Sprintf("%q is already a member", name))
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RecordPlayerAdded()
	s.invalidate(ctx, g)
	s.logger.Info(ctx, "player added", logger.String("group", slug), logger.Int64("player_id", p.ID))
	return p, nil
}

// ListPlayers returns the players of a group ordered by name.
func (s *Service) ListPlayers(ctx context.Context, slug string) ([]model.Player, error) {
	const op = "list players"

	g, err := s.group(ctx, s.store, op, slug)
	if err != nil {
		return nil, err
	}
	players, err := s.store.PlayersInGroup(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sort.SliceStable(players, func(i, j int) bool { return players[i].Name < players[j].Name })
	return players, nil
}

// GroupExists reports whether a group with slug exists.
func (s *Service) GroupExists(ctx context.Context, slug string) (bool, error) {
	_, err := s.store.GroupBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("group exists: %w", err)
	}
	return true, nil
}

// Group returns the group with slug.
func (s *Service) Group(ctx context.Context, slug string) (model.Group, error) {
	return s.group(ctx, s.store, "get group", slug)
}

// applyScoring copies the set fields of in onto g. Uma is not required to
// sum to zero.
func applyScoring(op string, g *model.Group, in ScoringInput) error {
	if in.StartPoint != nil {
		if *in.StartPoint <= 0 {
			return errs.Validation(op, g.Slug, "", "start_point", "start point must be positive")
		}
		g.StartPoint = *in.StartPoint
	}
	if in.TargetPoint != nil {
		if *in.TargetPoint <= 0 {
			return errs.Validation(op, g.Slug, "", "target_point", "target point must be positive")
		}
		g.TargetPoint = *in.TargetPoint
	}
	if in.Uma != nil {
		g.Uma = *in.Uma
	}
	if in.ChomboEnabled != nil {
		g.ChomboEnabled = *in.ChomboEnabled
	}
	return nil
}
