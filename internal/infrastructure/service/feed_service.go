// Package service wires the ranking pipeline, the aggregate cache, and
// the signal store into the feed engine's high-level operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/internal/domain/profile"
	"github.com/bazario/bazario-feed/internal/ranking"
	"github.com/bazario/bazario-feed/pkg/circuitbreaker"
	"github.com/bazario/bazario-feed/pkg/logger"
	"github.com/bazario/bazario-feed/pkg/retry"
	"github.com/bazario/bazario-feed/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEED SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// FeedRequest describes one feed read.
type FeedRequest struct {
	UserID   uuid.UUID
	FeedType feed.FeedType
	Page     int
	PerPage  int

	// ForceRefresh drops the user's cached feed and profiles before
	// generation, for "pull to refresh" semantics.
	ForceRefresh bool
}

// FeedServiceConfig holds serving tunables.
type FeedServiceConfig struct {
	// MaxFeedSize caps a generated feed after re-ranking.
	MaxFeedSize int

	// DefaultPerPage is the page size when the caller passes none.
	DefaultPerPage int

	// TrendingK bounds the degraded-trending response per content type.
	TrendingK int
}

// DefaultFeedServiceConfig returns production defaults.
func DefaultFeedServiceConfig() FeedServiceConfig {
	return FeedServiceConfig{
		MaxFeedSize:    100,
		DefaultPerPage: 20,
		TrendingK:      100,
	}
}

// FeedService serves personalized feeds with cache-first reads and a
// three-state degradation chain:
//
//	fresh             cached payload, or full pipeline on miss
//	degraded_trending popularity ranking when generation fails
//	degraded_recent   recent content by time when trending also fails
//
// A circuit breaker guards the aggregate cache so a dead Redis fails
// fast into generation instead of stalling every request on timeouts.
type FeedService struct {
	cache     feed.Cache
	trending  feed.TrendingStore
	content   feed.ContentRepository
	extractor *ranking.Extractor
	generator *ranking.Generator
	scorer    *ranking.Scorer
	breaker   *circuitbreaker.CircuitBreaker
	retrier   *retry.Retrier
	clock     timeutil.Clock
	cfg       FeedServiceConfig
	log       *logger.Logger
}

// NewFeedService creates a FeedService.
func NewFeedService(
	cache feed.Cache,
	trending feed.TrendingStore,
	content feed.ContentRepository,
	extractor *ranking.Extractor,
	generator *ranking.Generator,
	scorer *ranking.Scorer,
	clock timeutil.Clock,
	cfg FeedServiceConfig,
	log *logger.Logger,
) *FeedService {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Default()
	}
	svcLog := log.With(logger.Component("feed_service"))

	breaker := circuitbreaker.New("aggregate-cache",
		circuitbreaker.WithFailureThreshold(5),
		circuitbreaker.WithTimeout(15*time.Second),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			svcLog.Warn("circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	)

	return &FeedService{
		cache:     cache,
		trending:  trending,
		content:   content,
		extractor: extractor,
		generator: generator,
		scorer:    scorer,
		breaker:   breaker,
		retrier:   retry.SignalStoreRetrier(),
		clock:     clock,
		cfg:       cfg,
		log:       svcLog,
	}
}

// GetFeed returns one hydrated page of the user's feed.
//
// Unknown feed types fail with feed.ErrInvalidFeedType. Everything else
// degrades: the response may come from a staler or less personalized
// stage, but a valid request always gets a page.
func (s *FeedService) GetFeed(ctx context.Context, req FeedRequest) (*feed.Page, error) {
	if err := req.FeedType.Validate(); err != nil {
		return nil, err
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = s.cfg.DefaultPerPage
	}

	if req.ForceRefresh {
		if err := s.InvalidateUserFeed(ctx, req.UserID); err != nil {
			s.log.Warn("force refresh invalidation failed",
				logger.UserID(req.UserID.String()),
				logger.Err(err),
			)
		}
	}

	refs, state, err := s.feedRefs(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.servePage(ctx, req, refs, state)
}

// feedRefs walks the degradation chain until one stage yields references.
// Only all three stages failing surfaces an error.
func (s *FeedService) feedRefs(ctx context.Context, req FeedRequest) ([]feed.FeedItemRef, feed.ServeState, error) {
	if !req.ForceRefresh {
		if cached := s.cachedRefs(ctx, req); cached != nil {
			return cached, feed.StateFresh, nil
		}
	}

	refs, err := s.generate(ctx, req)
	if err == nil {
		return refs, feed.StateFresh, nil
	}
	s.log.Error("feed generation failed, degrading to trending",
		logger.UserID(req.UserID.String()),
		logger.FeedType(string(req.FeedType)),
		logger.FallbackState(string(feed.StateDegradedTrending)),
		logger.Err(err),
	)

	refs, err = s.trendingRefs(ctx)
	if err == nil {
		return refs, feed.StateDegradedTrending, nil
	}
	s.log.Error("trending fallback failed, degrading to recent",
		logger.UserID(req.UserID.String()),
		logger.FallbackState(string(feed.StateDegradedRecent)),
		logger.Err(err),
	)

	refs, err = s.recentRefs(ctx)
	if err != nil {
		s.log.Error("recent fallback failed",
			logger.UserID(req.UserID.String()),
			logger.Err(err),
		)
		return nil, "", fmt.Errorf("%w: %v", feed.ErrFeedExhausted, err)
	}
	return refs, feed.StateDegradedRecent, nil
}

// cachedRefs reads the cached payload through the circuit breaker.
// Any failure, including an open circuit, is a miss.
func (s *FeedService) cachedRefs(ctx context.Context, req FeedRequest) []feed.FeedItemRef {
	var cached *feed.CachedFeed
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		cached, opErr = s.cache.Feed(ctx, req.UserID, req.FeedType)
		if errors.Is(opErr, feed.ErrCacheMiss) {
			// A miss is a healthy answer, not a breaker failure.
			cached = nil
			return nil
		}
		return opErr
	})
	if err != nil {
		s.log.Warn("cache read failed",
			logger.UserID(req.UserID.String()),
			logger.FeedType(string(req.FeedType)),
			logger.Err(err),
		)
		return nil
	}
	if cached == nil {
		return nil
	}
	return cached.Items
}

// generate runs the full pipeline: profiles, candidates, scoring,
// diversity re-ranking, and a best-effort cache write.
func (s *FeedService) generate(ctx context.Context, req FeedRequest) ([]feed.FeedItemRef, error) {
	started := s.clock.Now()

	interests, prefs := s.profiles(ctx, req)

	candidates, err := s.generator.Generate(ctx, req.UserID, req.FeedType, interests, prefs)
	if err != nil {
		return nil, err
	}

	scored := s.scorer.ScoreAll(candidates, interests, prefs)
	refs := ranking.Interleave(scored, s.cfg.MaxFeedSize)
	if refs == nil {
		refs = []feed.FeedItemRef{}
	}

	cached := &feed.CachedFeed{
		Items: refs,
		Meta: feed.FeedMeta{
			GeneratedAt: s.clock.Now(),
			FeedType:    req.FeedType,
			ItemCount:   len(refs),
		},
	}
	if err := s.storeFeed(ctx, req, cached); err != nil {
		s.log.Warn("cache write failed, serving uncached",
			logger.UserID(req.UserID.String()),
			logger.FeedType(string(req.FeedType)),
			logger.Err(err),
		)
	}

	s.log.Info("feed generated",
		logger.UserID(req.UserID.String()),
		logger.FeedType(string(req.FeedType)),
		logger.CandidateCount(len(candidates)),
		logger.Int("item_count", len(refs)),
		logger.Latency(s.clock.Now().Sub(started)),
	)
	return refs, nil
}

// profiles extracts the user's personalization profiles for feed types
// that use them. Extraction failure is not fatal: scoring proceeds
// without the multipliers.
func (s *FeedService) profiles(ctx context.Context, req FeedRequest) (*profile.InterestProfile, *profile.PreferenceProfile) {
	switch {
	case req.FeedType == feed.FeedTypePersonalized,
		req.FeedType == feed.FeedTypeDiscover,
		req.FeedType.IsNiche():
	default:
		// Trending and following feeds are not personalized.
		return nil, nil
	}

	interests, err := s.extractor.Interests(ctx, req.UserID)
	if err != nil {
		s.log.Warn("interest extraction failed, scoring unpersonalized",
			logger.UserID(req.UserID.String()),
			logger.Err(err),
		)
	}
	prefs, err := s.extractor.Preferences(ctx, req.UserID)
	if err != nil {
		s.log.Warn("preference extraction failed, scoring unpersonalized",
			logger.UserID(req.UserID.String()),
			logger.Err(err),
		)
	}
	return interests, prefs
}

// storeFeed writes through the breaker so cache outages open it from the
// write path too.
func (s *FeedService) storeFeed(ctx context.Context, req FeedRequest, cached *feed.CachedFeed) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.cache.StoreFeed(ctx, req.UserID, req.FeedType, cached)
	})
}

// trendingRefs builds an unpersonalized ranking from the popularity
// store, interleaved like a normal feed.
func (s *FeedService) trendingRefs(ctx context.Context) ([]feed.FeedItemRef, error) {
	var candidates []feed.Candidate
	for _, contentType := range []feed.ContentType{feed.ContentTypePost, feed.ContentTypeProduct} {
		entries, err := s.trending.TopK(ctx, contentType, s.cfg.TrendingK)
		if err != nil {
			return nil, fmt.Errorf("failed to read trending ranking: %w", err)
		}
		if len(entries) == 0 {
			continue
		}
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ContentID
		}
		batch, err := s.content.ByIDs(ctx, contentType, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve trending content: %w", err)
		}
		for i := range batch {
			batch[i].Source = feed.SourceTrending
		}
		candidates = append(candidates, batch...)
	}

	scored := s.scorer.ScoreAll(candidates, nil, nil)
	return ranking.Interleave(scored, s.cfg.MaxFeedSize), nil
}

// recentRefs is the last resort: recent content ordered by time. Reads
// retry because at this point there is nothing left to degrade to.
func (s *FeedService) recentRefs(ctx context.Context) ([]feed.FeedItemRef, error) {
	var candidates []feed.Candidate
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		var opErr error
		candidates, opErr = s.content.RecentActive(ctx, s.cfg.MaxFeedSize)
		if opErr != nil {
			return retry.Retryable(opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].Source = feed.SourceRecent
	}
	refs := make([]feed.FeedItemRef, 0, len(candidates))
	for _, c := range candidates {
		refs = append(refs, feed.FeedItemRef{
			ID:        c.ID,
			Type:      c.Type,
			Score:     0,
			CreatedAt: c.CreatedAt,
		})
	}
	// Recency order, not score order.
	ranking.SortRefs(refs)
	if len(refs) > s.cfg.MaxFeedSize {
		refs = refs[:s.cfg.MaxFeedSize]
	}
	return refs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PAGINATION AND HYDRATION
// ─────────────────────────────────────────────────────────────────────────────

// servePage paginates the references and hydrates only the requested
// slice: one batch lookup per content type, never one per item.
func (s *FeedService) servePage(ctx context.Context, req FeedRequest, refs []feed.FeedItemRef, state feed.ServeState) (*feed.Page, error) {
	pagination := feed.NewPagination(req.Page, req.PerPage, int64(len(refs)))

	start := (req.Page - 1) * req.PerPage
	if start >= len(refs) {
		return &feed.Page{
			Items:      []feed.Item{},
			Pagination: pagination,
			State:      state,
		}, nil
	}
	end := start + req.PerPage
	if end > len(refs) {
		end = len(refs)
	}

	items, err := s.hydrate(ctx, refs[start:end])
	if err != nil {
		return nil, err
	}

	return &feed.Page{
		Items:      items,
		Pagination: pagination,
		State:      state,
	}, nil
}

// hydrate resolves references to full records, preserving ranked order.
// References whose content has been deleted or deactivated since
// generation are silently dropped; the cache entry ages out on its own.
func (s *FeedService) hydrate(ctx context.Context, refs []feed.FeedItemRef) ([]feed.Item, error) {
	var postIDs, productIDs []uuid.UUID
	for _, r := range refs {
		switch r.Type {
		case feed.ContentTypePost:
			postIDs = append(postIDs, r.ID)
		case feed.ContentTypeProduct:
			productIDs = append(productIDs, r.ID)
		}
	}

	posts, err := s.content.PostsByIDs(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate posts: %w", err)
	}
	products, err := s.content.ProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate products: %w", err)
	}

	items := make([]feed.Item, 0, len(refs))
	var dropped int
	for _, r := range refs {
		switch r.Type {
		case feed.ContentTypePost:
			if p, ok := posts[r.ID]; ok {
				items = append(items, feed.Item{Ref: r, Post: p})
				continue
			}
		case feed.ContentTypeProduct:
			if p, ok := products[r.ID]; ok {
				items = append(items, feed.Item{Ref: r, Product: p})
				continue
			}
		}
		dropped++
	}
	if dropped > 0 {
		s.log.Debug("dropped dead references during hydration",
			logger.Int("dropped", dropped),
		)
	}
	return items, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// WRITE-SIDE HOOKS
// ─────────────────────────────────────────────────────────────────────────────

// Trending bump weights per signal. Purchases are the strongest
// popularity evidence.
const (
	bumpView     = 1.0
	bumpLike     = 3.0
	bumpPurchase = 5.0
)

// BumpTrending records an engagement in the popularity ranking.
func (s *FeedService) BumpTrending(ctx context.Context, contentID uuid.UUID, contentType feed.ContentType, signal feed.SignalType) error {
	var delta float64
	switch signal {
	case feed.SignalView:
		delta = bumpView
	case feed.SignalLike:
		delta = bumpLike
	case feed.SignalPurchase:
		delta = bumpPurchase
	default:
		return nil
	}
	return s.trending.Increment(ctx, contentID, contentType, delta)
}

// RemoveTrending drops deactivated content from the popularity ranking
// so it stops surfacing in degraded responses before it ages out.
func (s *FeedService) RemoveTrending(ctx context.Context, contentID uuid.UUID, contentType feed.ContentType) error {
	if err := s.trending.Remove(ctx, contentID, contentType); err != nil {
		return err
	}
	s.log.Debug("content removed from trending",
		logger.Operation("remove_trending"),
		logger.ContentID(contentID.String()),
		logger.String("content_type", string(contentType)),
	)
	return nil
}

// InvalidateUserFeed drops the user's cached feeds and profiles so the
// next read regenerates. Called when the user's own signals change
// (follow, unfollow, bursts of engagement).
func (s *FeedService) InvalidateUserFeed(ctx context.Context, userID uuid.UUID) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.cache.InvalidateUser(ctx, userID)
	})
}

// RunTrendingDecay periodically multiplies all popularity scores by
// factor until the context is cancelled. Run it from one instance only.
func (s *FeedService) RunTrendingDecay(ctx context.Context, interval time.Duration, factor float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("trending decay sweep started",
		logger.Duration("interval", interval),
		logger.Float64("factor", factor),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("trending decay sweep stopped")
			return
		case <-ticker.C:
			for _, contentType := range []feed.ContentType{feed.ContentTypePost, feed.ContentTypeProduct} {
				if err := s.trending.Decay(ctx, contentType, factor); err != nil {
					s.log.Error("trending decay failed",
						logger.String("content_type", string(contentType)),
						logger.Err(err),
					)
				}
			}
		}
	}
}
