package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/profile"
	"github.com/bazario/bazario-feed/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProfileCache implements profile.Cache. Interest and preference profiles
// are cached separately because they have different costs to rebuild and
// different staleness tolerances, hence the two TTLs.
type ProfileCache struct {
	cache          *Cache
	interestsTTL   time.Duration
	preferencesTTL time.Duration
	log            *logger.Logger
}

// NewProfileCache creates a ProfileCache with per-artifact TTLs.
func NewProfileCache(cache *Cache, interestsTTL, preferencesTTL time.Duration, log *logger.Logger) *ProfileCache {
	if log == nil {
		log = logger.Default()
	}
	return &ProfileCache{
		cache:          cache,
		interestsTTL:   interestsTTL,
		preferencesTTL: preferencesTTL,
		log:            log.With(logger.Component("profile_cache")),
	}
}

// Interests returns the cached interest profile or profile.ErrProfileMiss.
func (pc *ProfileCache) Interests(ctx context.Context, userID uuid.UUID) (*profile.InterestProfile, error) {
	key := InterestsKey(userID)

	var p profile.InterestProfile
	if err := pc.cache.Get(ctx, key, &p); err != nil {
		return nil, pc.missOrFail(ctx, key, err)
	}
	return &p, nil
}

// StoreInterests writes an interest profile with the configured TTL.
func (pc *ProfileCache) StoreInterests(ctx context.Context, p *profile.InterestProfile) error {
	if p == nil {
		return nil
	}
	return pc.cache.Set(ctx, InterestsKey(p.UserID), p, pc.interestsTTL)
}

// Preferences returns the cached preference profile or profile.ErrProfileMiss.
func (pc *ProfileCache) Preferences(ctx context.Context, userID uuid.UUID) (*profile.PreferenceProfile, error) {
	key := PreferencesKey(userID)

	var p profile.PreferenceProfile
	if err := pc.cache.Get(ctx, key, &p); err != nil {
		return nil, pc.missOrFail(ctx, key, err)
	}
	return &p, nil
}

// StorePreferences writes a preference profile with the configured TTL.
func (pc *ProfileCache) StorePreferences(ctx context.Context, p *profile.PreferenceProfile) error {
	if p == nil {
		return nil
	}
	return pc.cache.Set(ctx, PreferencesKey(p.UserID), p, pc.preferencesTTL)
}

// missOrFail maps cache-layer errors to the domain contract. Corrupt
// payloads are deleted and reported as a miss so extraction rebuilds them.
func (pc *ProfileCache) missOrFail(ctx context.Context, key string, err error) error {
	switch {
	case errors.Is(err, ErrCacheMiss):
		return profile.ErrProfileMiss

	case errors.Is(err, ErrCacheSerialization):
		pc.log.Warn("dropping corrupt profile payload",
			logger.CacheKey(key),
			logger.Err(err),
		)
		if delErr := pc.cache.Delete(ctx, key); delErr != nil {
			pc.log.Warn("failed to delete corrupt profile payload",
				logger.CacheKey(key),
				logger.Err(delErr),
			)
		}
		return profile.ErrProfileMiss

	default:
		return fmt.Errorf("profile cache read failed: %w", err)
	}
}
