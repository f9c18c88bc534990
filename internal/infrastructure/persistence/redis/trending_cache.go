package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRENDING CACHE
// ══════════════════════════════════════════════════════════════════════════════

// TrendingCache implements feed.TrendingStore using one sorted set per
// content type.
//
// Architecture:
//   - Sorted Set "trending:content:post" stores contentID -> popularity
//   - Sorted Set "trending:content:product" stores contentID -> popularity
//
// ZINCRBY makes concurrent engagement bumps atomic without any
// read-modify-write; TopK is an O(log N + K) ZREVRANGE.
type TrendingCache struct {
	cache *Cache
	log   *logger.Logger
}

// NewTrendingCache creates a new TrendingCache.
func NewTrendingCache(cache *Cache, log *logger.Logger) *TrendingCache {
	if log == nil {
		log = logger.Default()
	}
	return &TrendingCache{
		cache: cache,
		log:   log.With(logger.Component("trending_cache")),
	}
}

// Increment atomically adjusts a content item's popularity score.
func (tc *TrendingCache) Increment(ctx context.Context, contentID uuid.UUID, contentType feed.ContentType, delta float64) error {
	key := TrendingKey(contentType)
	if err := tc.cache.Client().ZIncrBy(ctx, key, delta, contentID.String()).Err(); err != nil {
		return fmt.Errorf("failed to bump trending score: %w", err)
	}
	return nil
}

// Remove drops a content item from the ranking.
func (tc *TrendingCache) Remove(ctx context.Context, contentID uuid.UUID, contentType feed.ContentType) error {
	key := TrendingKey(contentType)
	if err := tc.cache.Client().ZRem(ctx, key, contentID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove trending member: %w", err)
	}
	return nil
}

// TopK returns the k highest-scored entries of one content type, best
// first. Members that no longer parse as uuids are skipped.
func (tc *TrendingCache) TopK(ctx context.Context, contentType feed.ContentType, k int) ([]feed.TrendingEntry, error) {
	if k <= 0 {
		return nil, nil
	}

	key := TrendingKey(contentType)
	members, err := tc.cache.Client().ZRevRangeWithScores(ctx, key, 0, int64(k-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read trending ranking: %w", err)
	}

	entries := make([]feed.TrendingEntry, 0, len(members))
	for _, m := range members {
		raw, ok := m.Member.(string)
		if !ok {
			continue
		}
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			tc.log.Warn("skipping malformed trending member",
				logger.CacheKey(key),
				logger.String("member", raw),
			)
			continue
		}
		entries = append(entries, feed.TrendingEntry{
			ContentID: id,
			Type:      contentType,
			Score:     m.Score,
		})
	}
	return entries, nil
}

// Decay multiplies all scores of one content type by factor, keeping
// popularity time-sensitive. Members decayed below the floor are removed
// so the set does not accumulate dead content forever.
//
// The sweep walks the set in pages and rewrites scores through one
// pipeline per page. It is not atomic against concurrent increments; a
// bump lost to an in-flight sweep is recovered by the next engagement.
func (tc *TrendingCache) Decay(ctx context.Context, contentType feed.ContentType, factor float64) error {
	if factor <= 0 || factor >= 1 {
		return fmt.Errorf("trending decay factor must be in (0,1), got %v", factor)
	}

	const (
		pageSize   = 500
		scoreFloor = 0.01
	)

	key := TrendingKey(contentType)
	var cursor int64

	for {
		members, err := tc.cache.Client().ZRangeWithScores(ctx, key, cursor, cursor+pageSize-1).Result()
		if err != nil {
			return fmt.Errorf("failed to page trending set: %w", err)
		}
		if len(members) == 0 {
			return nil
		}

		pipe := tc.cache.Client().Pipeline()
		var removed []interface{}
		for _, m := range members {
			decayed := m.Score * factor
			if decayed < scoreFloor {
				removed = append(removed, m.Member)
				continue
			}
			pipe.ZAdd(ctx, key, redis.Z{Score: decayed, Member: m.Member})
		}
		if len(removed) > 0 {
			pipe.ZRem(ctx, key, removed...)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to apply trending decay: %w", err)
		}

		// Removed members shift ranks down, so only advance past survivors.
		cursor += int64(len(members) - len(removed))
		if len(members) < pageSize {
			return nil
		}
	}
}
