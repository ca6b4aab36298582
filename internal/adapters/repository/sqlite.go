package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/metrics"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

// SQLiteStore is a Store backed by a single sqlite database file.
//
// The pool is limited to one connection: sqlite serializes writers anyway and
// a single connection keeps transactions from failing with SQLITE_BUSY.
type SQLiteStore struct {
	db          *gorm.DB
	busyTimeout time.Duration
	logLevel    gormlogger.LogLevel
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and migrates the schema.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout, logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		path, s.busyTimeout.Milliseconds())
	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{
		DSN:        dsn,
		DriverName: "sqlite",
	}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(s.logLevel),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(
		&groupRow{}, &playerRow{}, &sessionRow{}, &entryRow{}, &summaryRow{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	s.db = db
	return s, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTx implements Store.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, gormTx{gormReader{db: db}})
	})
	metrics.RecordStoreTxLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	if err != nil {
		metrics.RecordStoreTxError()
	}
	return err
}

func (s *SQLiteStore) reader() gormReader { return gormReader{db: s.db} }

func (s *SQLiteStore) GroupBySlug(ctx context.Context, slug string) (model.Group, error) {
	return s.reader().GroupBySlug(ctx, slug)
}

func (s *SQLiteStore) PlayersInGroup(ctx context.Context, groupID int64) ([]model.Player, error) {
	return s.reader().PlayersInGroup(ctx, groupID)
}

func (s *SQLiteStore) PlayersByName(ctx context.Context, groupID int64, names []string) (map[string]model.Player, error) {
	return s.reader().PlayersByName(ctx, groupID, names)
}

func (s *SQLiteStore) SessionExists(ctx context.Context, groupID int64, sessionID string) (bool, error) {
	return s.reader().SessionExists(ctx, groupID, sessionID)
}

func (s *SQLiteStore) SessionEntries(ctx context.Context, groupID int64, sessionID string) ([]model.SessionEntry, error) {
	return s.reader().SessionEntries(ctx, groupID, sessionID)
}

func (s *SQLiteStore) EntriesInGroup(ctx context.Context, groupID int64) ([]model.SessionEntry, error) {
	return s.reader().EntriesInGroup(ctx, groupID)
}

func (s *SQLiteStore) PlayerSessions(ctx context.Context, groupID, playerID int64) ([]model.SessionEntry, error) {
	return s.reader().PlayerSessions(ctx, groupID, playerID)
}

func (s *SQLiteStore) SummariesInGroup(ctx context.Context, groupID int64) (map[int64]model.PlayerSummary, error) {
	return s.reader().SummariesInGroup(ctx, groupID)
}

// gormReader runs reads against either the pool or an open transaction.
type gormReader struct {
	db *gorm.DB
}

func (r gormReader) observe(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
}

func (r gormReader) GroupBySlug(ctx context.Context, slug string) (model.Group, error) {
	defer r.observe(time.Now())
	var row groupRow
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).Take(&row).Error; err != nil {
		return model.Group{}, translate(err)
	}
	return row.toModel(), nil
}

func (r gormReader) PlayersInGroup(ctx context.Context, groupID int64) ([]model.Player, error) {
	defer r.observe(time.Now())
	var rows []playerRow
	if err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]model.Player, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

func (r gormReader) PlayersByName(ctx context.Context, groupID int64, names []string) (map[string]model.Player, error) {
	defer r.observe(time.Now())
	out := make(map[string]model.Player, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var rows []playerRow
	if err := r.db.WithContext(ctx).Where("group_id = ? AND name IN ?", groupID, names).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	for _, row := range rows {
		out[row.Name] = row.toModel()
	}
	return out, nil
}

func (r gormReader) SessionExists(ctx context.Context, groupID int64, sessionID string) (bool, error) {
	defer r.observe(time.Now())
	var n int64
	err := r.db.WithContext(ctx).Model(&sessionRow{}).
		Where("group_id = ? AND session_id = ?", groupID, sessionID).
		Count(&n).Error
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (r gormReader) SessionEntries(ctx context.Context, groupID int64, sessionID string) ([]model.SessionEntry, error) {
	return r.entries(ctx, "group_id = ? AND session_id = ?", groupID, sessionID)
}

func (r gormReader) EntriesInGroup(ctx context.Context, groupID int64) ([]model.SessionEntry, error) {
	return r.entries(ctx, "group_id = ?", groupID)
}

func (r gormReader) PlayerSessions(ctx context.Context, groupID, playerID int64) ([]model.SessionEntry, error) {
	return r.entries(ctx,
		"group_id = ? AND session_id IN (SELECT session_id FROM session_entries WHERE group_id = ? AND player_id = ?)",
		groupID, groupID, playerID)
}

func (r gormReader) entries(ctx context.Context, query string, args ...any) ([]model.SessionEntry, error) {
	defer r.observe(time.Now())
	var rows []entryRow
	err := r.db.WithContext(ctx).Preload("Player").
		Where(query, args...).
		Order("session_id, id").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]model.SessionEntry, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

func (r gormReader) SummariesInGroup(ctx context.Context, groupID int64) (map[int64]model.PlayerSummary, error) {
	defer r.observe(time.Now())
	var rows []summaryRow
	if err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make(map[int64]model.PlayerSummary, len(rows))
	for _, row := range rows {
		out[row.PlayerID] = row.toModel()
	}
	return out, nil
}

// gormTx adds the write side on top of a transaction-bound reader.
type gormTx struct {
	gormReader
}

func (t gormTx) CreateGroup(ctx context.Context, g *model.Group) error {
	row := groupRowOf(*g)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	g.ID, g.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (t gormTx) UpdateGroupScoring(ctx context.Context, g model.Group) error {
	res := t.db.WithContext(ctx).Model(&groupRow{}).Where("id = ?", g.ID).Updates(map[string]any{
		"start_point":    g.StartPoint,
		"target_point":   g.TargetPoint,
		"uma_first":      g.Uma[0],
		"uma_second":     g.Uma[1],
		"uma_third":      g.Uma[2],
		"uma_fourth":     g.Uma[3],
		"chombo_enabled": g.ChomboEnabled,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t gormTx) CreatePlayer(ctx context.Context, p *model.Player) error {
	row := playerRow{GroupID: p.GroupID, Name: p.Name}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	p.ID, p.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (t gormTx) CreateSession(ctx context.Context, groupID int64, sessionID string, date *time.Time, entries []model.SessionEntry) error {
	db := t.db.WithContext(ctx)
	header := sessionRow{GroupID: groupID, SessionID: sessionID, SessionDate: date}
	if err := db.Create(&header).Error; err != nil {
		return translate(err)
	}
	if len(entries) == 0 {
		return nil
	}

	rows := make([]entryRow, len(entries))
	for i, e := range entries {
		rows[i] = entryRow{
			GroupID:     groupID,
			SessionID:   sessionID,
			PlayerID:    e.PlayerID,
			RawScore:    e.RawScore,
			Chombo:      e.Chombo,
			Placement:   e.Placement,
			SessionDate: date,
		}
	}
	if err := db.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (t gormTx) DeleteSession(ctx context.Context, groupID int64, sessionID string) (int, error) {
	db := t.db.WithContext(ctx)
	res := db.Where("group_id = ? AND session_id = ?", groupID, sessionID).Delete(&sessionRow{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	res = db.Where("group_id = ? AND session_id = ?", groupID, sessionID).Delete(&entryRow{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return int(res.RowsAffected), nil
}

func (t gormTx) SaveSummary(ctx context.Context, groupID int64, s model.PlayerSummary) error {
	row := summaryRowOf(groupID, s)
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	return translate(err)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
