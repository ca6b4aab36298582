package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/metrics"
)

const (
	genKeyPrefix       = "jansou:standings:gen:"
	standingsKeyPrefix = "jansou:standings:"
	allTimeField       = "all"

	defaultTTL = 5 * time.Minute
)

// Config holds configuration for the Redis standings cache.
type Config struct {
	RedisClient *redis.Client
	// TTL bounds how long a generation's tables live. Zero means the default.
	TTL time.Duration
}

// RedisStandings implements Standings on Redis hashes, one hash per
// (group, generation) with one field per month.
type RedisStandings struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Standings = (*RedisStandings)(nil)

// NewRedis validates cfg and checks the connection.
func NewRedis(ctx context.Context, cfg *Config) (*RedisStandings, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := cfg.RedisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStandings{client: cfg.RedisClient, ttl: ttl}, nil
}

func genKey(groupID int64) string {
	return fmt.Sprintf("%s%d", genKeyPrefix, groupID)
}

func tableKey(groupID, gen int64) string {
	return fmt.Sprintf("%s%d:%d", standingsKeyPrefix, groupID, gen)
}

func field(month string) string {
	if month == "" {
		return allTimeField
	}
	return month
}

// Lookup implements Standings.
func (c *RedisStandings) Lookup(ctx context.Context, groupID int64, month string) ([]model.Standing, int64, bool, error) {
	gen, err := c.client.Get(ctx, genKey(groupID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		metrics.RecordStandingsCache("error")
		return nil, 0, false, fmt.Errorf("failed to get generation: %w", err)
	}

	raw, err := c.client.HGet(ctx, tableKey(groupID, gen), field(month)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordStandingsCache("miss")
		return nil, gen, false, nil
	}
	if err != nil {
		metrics.RecordStandingsCache("error")
		return nil, gen, false, fmt.Errorf("failed to get standings: %w", err)
	}

	var rows []model.Standing
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		metrics.RecordStandingsCache("error")
		return nil, gen, false, fmt.Errorf("failed to unmarshal standings: %w", err)
	}
	metrics.RecordStandingsCache("hit")
	return rows, gen, true, nil
}

// Store implements Standings.
func (c *RedisStandings) Store(ctx context.Context, groupID, gen int64, month string, rows []model.Standing) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	key := tableKey(groupID, gen)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field(month), payload)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store standings: %w", err)
	}
	return nil
}

// Invalidate implements Standings.
func (c *RedisStandings) Invalidate(ctx context.Context, groupID int64) error {
	if err := c.client.Incr(ctx, genKey(groupID)).Err(); err != nil {
		return fmt.Errorf("failed to bump generation: %w", err)
	}
	return nil
}
