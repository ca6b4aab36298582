package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/okian/jansou/internal/adapters/repository"
	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
)

const (
	maxSessionIDLen = 100
	maxNameLen      = 100
)

// normalizeSession trims identifiers in place and checks the shape of the
// input. No storage is consulted.
func normalizeSession(op, slug string, in *SessionInput) error {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		return errs.Validation(op, slug, "", "session_id", "session id is required")
	}
	if utf8.RuneCountInString(in.SessionID) > maxSessionIDLen {
		return errs.Validation(op, slug, in.SessionID, "session_id",
			fmt.Sprintf("session id must be at most %d characters", maxSessionIDLen))
	}
	if len(in.Entries) != model.SeatsPerSession {
		return errs.Validation(op, slug, in.SessionID, "scores",
			fmt.Sprintf("exactly %d scores are required, got %d", model.SeatsPerSession, len(in.Entries)))
	}

	seen := make(map[string]bool, len(in.Entries))
	for i := range in.Entries {
		e := &in.Entries[i]
		e.PlayerName = strings.TrimSpace(e.PlayerName)
		field := fmt.Sprintf("scores[%d]", i)
		if e.PlayerName == "" {
			return errs.Validation(op, slug, in.SessionID, field+".member_name", "member name is required")
		}
		if seen[e.PlayerName] {
			return errs.Validation(op, slug, in.SessionID, field+".member_name",
				fmt.Sprintf("member %q appears more than once", e.PlayerName))
		}
		seen[e.PlayerName] = true
		if e.Chombo < 0 {
			return errs.Validation(op, slug, in.SessionID, field+".chombo", "chombo must not be negative")
		}
	}
	return nil
}

// resolvePlayers maps every entry to a player of g.
func resolvePlayers(ctx context.Context, r repository.Reader, op string, g model.Group, in SessionInput) ([]model.Player, error) {
	names := make([]string, len(in.Entries))
	for i, e := range in.Entries {
		names[i] = e.PlayerName
	}
	byName, err := r.PlayersByName(ctx, g.ID, names)
	if err != nil {
		return nil, fmt.Errorf("%s: resolve players: %w", op, err)
	}

	out := make([]model.Player, len(in.Entries))
	for i, e := range in.Entries {
		p, ok := byName[e.PlayerName]
		if !ok {
			return nil, errs.Validation(op, g.Slug, in.SessionID, fmt.Sprintf("scores[%d].member_name", i),
				fmt.Sprintf("%q is not a member of this group", e.PlayerName))
		}
		out[i] = p
	}
	return out, nil
}

func validateName(op, slug, field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.Validation(op, slug, "", field, field+" is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", errs.Validation(op, slug, "", field,
			fmt.Sprintf("%s must be at most %d characters", field, maxNameLen))
	}
	return name, nil
}

// slugify lowercases s, drops everything but ASCII letters, digits, '_', '-'
// and spaces, and joins the remaining words with single hyphens.
func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '\t' || r == '\n':
			pendingDash = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func validSlug(s string) bool {
	if s == "" || len(s) > maxNameLen {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
