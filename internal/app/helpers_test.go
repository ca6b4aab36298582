package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/jansou/internal/app"
	"github.com/okian/jansou/internal/adapters/repository"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

var members = []string{"Alice", "Bob", "Charlie", "Diana"}

func openStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jansou.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newGroup creates group "club" with the standard scoring and the four members.
func newGroup(t *testing.T, svc *service.Service, extra ...string) model.Group {
	t.Helper()
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, service.GroupInput{Name: "Club"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, name := range append(append([]string(nil), members...), extra...) {
		if _, err := svc.AddPlayer(ctx, g.Slug, name); err != nil {
			t.Fatalf("add player %s: %v", name, err)
		}
	}
	return g
}

func session(id string, scores map[string]int) service.SessionInput {
	in := service.SessionInput{SessionID: id}
	for _, name := range sortedNames(scores) {
		in.Entries = append(in.Entries, service.EntryInput{PlayerName: name, Score: scores[name]})
	}
	return in
}

func sortedNames(m map[string]int) []string {
	var names []string
	for _, n := range append(append([]string(nil), members...), "Eve", "Frank") {
		if _, ok := m[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

func reference(id string) service.SessionInput {
	return session(id, map[string]int{"Alice": 30000, "Bob": 35000, "Charlie": 25000, "Diana": 10000})
}

func dated(in service.SessionInput, y int, m time.Month, d int) service.SessionInput {
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	in.SessionDate = &date
	return in
}

func totals(rows []model.Standing) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Player.Name] = r.Summary.Total
	}
	return out
}

func byName(rows []model.Standing, name string) model.Standing {
	for _, r := range rows {
		if r.Player.Name == name {
			return r
		}
	}
	return model.Standing{}
}

// failingStore fails SaveSummary for one player inside every transaction.
type failingStore struct {
	repository.Store
	failOn int64
}

var errInjected = errors.New("injected failure")

func (f failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, failingTx{Tx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	repository.Tx
	failOn int64
}

func (f failingTx) SaveSummary(ctx context.Context, groupID int64, s model.PlayerSummary) error {
	if s.PlayerID == f.failOn {
		return errInjected
	}
	return f.Tx.SaveSummary(ctx, groupID, s)
}
