// internal/cache/leaderboard.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jason-s-yu/caro/internal/models"
	"github.com/redis/go-redis/v9"
)

const leaderboardKeyPrefix = "caro:leaderboard:"

// LeaderboardCache keeps rendered leaderboard pages, one key per limit, for a short TTL.
type LeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLeaderboardCache(rdb *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{rdb: rdb, ttl: ttl}
}

func leaderboardKey(limit int) string {
	return leaderboardKeyPrefix + strconv.Itoa(limit)
}

// Get returns the cached page for limit. ok is false on a miss.
func (c *LeaderboardCache) Get(ctx context.Context, limit int) (entries []models.LeaderboardEntry, ok bool, err error) {
	data, err := c.rdb.Get(ctx, leaderboardKey(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached leaderboard: %w", err)
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, limit int, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, leaderboardKey(limit), data, c.ttl).Err()
}

// Invalidate drops every cached page.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, leaderboardKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
