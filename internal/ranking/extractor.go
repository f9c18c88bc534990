package ranking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/internal/domain/profile"
	"github.com/bazario/bazario-feed/pkg/logger"
	"github.com/bazario/bazario-feed/pkg/retry"
	"github.com/bazario/bazario-feed/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE EXTRACTION
// ══════════════════════════════════════════════════════════════════════════════

// Extractor builds interest and preference profiles from a user's recent
// engagement history, cache-aside: cached profiles are served as-is,
// misses are rebuilt from the signal store and written back.
//
// Cache failures are never fatal. A read failure falls through to
// extraction; a write-back failure is logged and the profile is served
// uncached for that call.
type Extractor struct {
	signals      feed.SignalRepository
	content      feed.ContentRepository
	cache        profile.Cache
	retrier      *retry.Retrier
	clock        timeutil.Clock
	historyLimit int
	log          *logger.Logger
}

// NewExtractor creates an Extractor. historyLimit bounds events read per
// signal type.
func NewExtractor(
	signals feed.SignalRepository,
	content feed.ContentRepository,
	cache profile.Cache,
	clock timeutil.Clock,
	historyLimit int,
	log *logger.Logger,
) *Extractor {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &Extractor{
		signals:      signals,
		content:      content,
		cache:        cache,
		retrier:      retry.SignalStoreRetrier(),
		clock:        clock,
		historyLimit: historyLimit,
		log:          log.With(logger.Component("extractor")),
	}
}

// Interests returns the user's interest profile, rebuilding on cache miss.
func (e *Extractor) Interests(ctx context.Context, userID uuid.UUID) (*profile.InterestProfile, error) {
	if cached, err := e.cache.Interests(ctx, userID); err == nil {
		return cached, nil
	} else if !errors.Is(err, profile.ErrProfileMiss) {
		e.log.Warn("interest profile cache read failed",
			logger.UserID(userID.String()),
			logger.Err(err),
		)
	}

	built, err := e.buildInterests(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := e.cache.StoreInterests(ctx, built); err != nil {
		e.log.Warn("interest profile cache write failed",
			logger.UserID(userID.String()),
			logger.Err(err),
		)
	}
	return built, nil
}

// buildInterests accumulates weighted category interest from the most
// recent likes, views, and follows.
func (e *Extractor) buildInterests(ctx context.Context, userID uuid.UUID) (*profile.InterestProfile, error) {
	p := profile.NewInterestProfile(userID)

	signalWeights := []struct {
		signal feed.SignalType
		weight float64
	}{
		{feed.SignalLike, profile.WeightLike},
		{feed.SignalView, profile.WeightView},
		{feed.SignalFollow, profile.WeightFollow},
	}

	for _, sw := range signalWeights {
		events, err := e.recentEngagements(ctx, userID, sw.signal)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			for _, categoryID := range ev.CategoryIDs {
				p.Add(categoryID, sw.weight)
			}
		}
	}

	return p, nil
}

// Preferences returns the user's preference profile, rebuilding on cache
// miss.
func (e *Extractor) Preferences(ctx context.Context, userID uuid.UUID) (*profile.PreferenceProfile, error) {
	if cached, err := e.cache.Preferences(ctx, userID); err == nil {
		return cached, nil
	} else if !errors.Is(err, profile.ErrProfileMiss) {
		e.log.Warn("preference profile cache read failed",
			logger.UserID(userID.String()),
			logger.Err(err),
		)
	}

	built, err := e.buildPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := e.cache.StorePreferences(ctx, built); err != nil {
		e.log.Warn("preference profile cache write failed",
			logger.UserID(userID.String()),
			logger.Err(err),
		)
	}
	return built, nil
}

// buildPreferences derives the behavioral profile from likes, views, and
// purchases: content-type ratio, price band, category counts, and the
// popularity/freshness tendencies of engaged content.
func (e *Extractor) buildPreferences(ctx context.Context, userID uuid.UUID) (*profile.PreferenceProfile, error) {
	p := profile.NewPreferenceProfile(userID)

	var all []feed.Engagement
	for _, signal := range []feed.SignalType{feed.SignalLike, feed.SignalView, feed.SignalPurchase} {
		events, err := e.recentEngagements(ctx, userID, signal)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	if len(all) == 0 {
		return p, nil
	}

	var posts int
	priceSeen := false
	for _, ev := range all {
		if ev.ContentType == feed.ContentTypePost {
			posts++
		}
		for _, categoryID := range ev.CategoryIDs {
			p.CategoryCounts[categoryID]++
		}

		// Price band comes from commercial signals only; views carry no
		// purchase intent.
		if ev.ContentType == feed.ContentTypeProduct && ev.Price > 0 &&
			(ev.Signal == feed.SignalPurchase || ev.Signal == feed.SignalLike) {
			if !priceSeen || ev.Price < p.PriceRange.Min {
				p.PriceRange.Min = ev.Price
			}
			if ev.Price > p.PriceRange.Max {
				p.PriceRange.Max = ev.Price
			}
			priceSeen = true
		}
	}
	p.ContentRatio = float64(posts) / float64(len(all))

	e.addContentTendencies(ctx, p, all)

	return p, nil
}

// addContentTendencies batch-loads the engaged content and computes the
// popularity and freshness tendencies. Failures degrade silently: the
// tendencies stay zero and scoring simply skips those boosts.
func (e *Extractor) addContentTendencies(ctx context.Context, p *profile.PreferenceProfile, events []feed.Engagement) {
	byType := map[feed.ContentType][]uuid.UUID{}
	occurred := map[uuid.UUID]feed.Engagement{}
	for _, ev := range events {
		byType[ev.ContentType] = append(byType[ev.ContentType], ev.ContentID)
		occurred[ev.ContentID] = ev
	}

	var totalEngagement int64
	var fresh, matched int
	for contentType, ids := range byType {
		candidates, err := e.content.ByIDs(ctx, contentType, ids)
		if err != nil {
			e.log.Warn("failed to load engaged content for tendencies",
				logger.UserID(p.UserID.String()),
				logger.Err(err),
			)
			return
		}
		for _, c := range candidates {
			matched++
			totalEngagement += c.EngagementCount
			if ev, ok := occurred[c.ID]; ok && timeutil.WithinLastDay(c.CreatedAt, ev.OccurredAt) {
				fresh++
			}
		}
	}
	if matched == 0 {
		return
	}

	p.EngagementPreference = float64(totalEngagement) / float64(matched)
	p.FreshnessPreference = float64(fresh) / float64(matched)
}

// recentEngagements reads one signal type's history with retries; the
// signal store is the only source of truth for profiles, so transient
// failures are worth a short wait.
func (e *Extractor) recentEngagements(ctx context.Context, userID uuid.UUID, signal feed.SignalType) ([]feed.Engagement, error) {
	var events []feed.Engagement
	err := e.retrier.Do(ctx, func(ctx context.Context) error {
		var opErr error
		events, opErr = e.signals.RecentEngagements(ctx, userID, signal, e.historyLimit)
		if opErr != nil {
			return retry.Retryable(opErr)
		}
		return nil
	})
	return events, err
}
