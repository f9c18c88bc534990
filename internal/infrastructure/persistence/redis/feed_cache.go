package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEED CACHE
// ══════════════════════════════════════════════════════════════════════════════

// FeedCache implements feed.Cache on top of the shared Redis client.
//
// Architecture:
//   - String "feed:user:{id}:{type}" stores the CachedFeed JSON payload
//
// Payloads hold ranked references only, never hydrated content, so one
// entry stays small regardless of content schema evolution.
type FeedCache struct {
	cache *Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewFeedCache creates a FeedCache writing entries with the given TTL.
func NewFeedCache(cache *Cache, ttl time.Duration, log *logger.Logger) *FeedCache {
	if log == nil {
		log = logger.Default()
	}
	return &FeedCache{
		cache: cache,
		ttl:   ttl,
		log:   log.With(logger.Component("feed_cache")),
	}
}

// Feed returns the cached payload or feed.ErrCacheMiss.
//
// A payload that no longer parses is treated as a miss: the key is
// deleted so the next generation overwrites it, and the caller regenerates.
func (fc *FeedCache) Feed(ctx context.Context, userID uuid.UUID, feedType feed.FeedType) (*feed.CachedFeed, error) {
	key := FeedKey(userID, feedType)

	var cached feed.CachedFeed
	err := fc.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		return &cached, nil

	case errors.Is(err, ErrCacheMiss):
		return nil, feed.ErrCacheMiss

	case errors.Is(err, ErrCacheSerialization):
		fc.log.Warn("dropping corrupt feed payload",
			logger.CacheKey(key),
			logger.Err(err),
		)
		if delErr := fc.cache.Delete(ctx, key); delErr != nil {
			fc.log.Warn("failed to delete corrupt feed payload",
				logger.CacheKey(key),
				logger.Err(delErr),
			)
		}
		return nil, feed.ErrCacheMiss

	default:
		return nil, fmt.Errorf("%w: %v", feed.ErrCacheUnavailable, err)
	}
}

// StoreFeed writes a generated payload with the configured TTL.
func (fc *FeedCache) StoreFeed(ctx context.Context, userID uuid.UUID, feedType feed.FeedType, cached *feed.CachedFeed) error {
	if cached == nil {
		return nil
	}

	key := FeedKey(userID, feedType)
	if err := fc.cache.Set(ctx, key, cached, fc.ttl); err != nil {
		return fmt.Errorf("%w: %v", feed.ErrCacheUnavailable, err)
	}
	return nil
}

// InvalidateUser deletes the user's feed payloads and both profile keys.
//
// Feed keys are found by SCAN rather than enumeration because niche feed
// types embed community ids the cache cannot know up front.
func (fc *FeedCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	keys := []string{
		InterestsKey(userID),
		PreferencesKey(userID),
	}

	pattern := PrefixFeed + userID.String() + ":*"
	iter := fc.cache.Client().Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", feed.ErrCacheUnavailable, err)
	}

	if err := fc.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("%w: %v", feed.ErrCacheUnavailable, err)
	}

	fc.log.Debug("invalidated user cache",
		logger.UserID(userID.String()),
		logger.Int("keys", len(keys)),
	)
	return nil
}
