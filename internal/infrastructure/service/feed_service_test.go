package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/internal/domain/profile"
	"github.com/bazario/bazario-feed/internal/ranking"
	"github.com/bazario/bazario-feed/pkg/timeutil"
)

var testNow = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

// ─────────────────────────────────────────────────────────────────────────────
// FAKES
// ─────────────────────────────────────────────────────────────────────────────

type memCache struct {
	feeds        map[string]*feed.CachedFeed
	err          error
	stores       int
	invalidation int
}

func newMemCache() *memCache {
	return &memCache{feeds: make(map[string]*feed.CachedFeed)}
}

func cacheKey(userID uuid.UUID, ft feed.FeedType) string {
	return userID.String() + ":" + string(ft)
}

func (c *memCache) Feed(_ context.Context, userID uuid.UUID, ft feed.FeedType) (*feed.CachedFeed, error) {
	if c.err != nil {
		return nil, c.err
	}
	if cached, ok := c.feeds[cacheKey(userID, ft)]; ok {
		return cached, nil
	}
	return nil, feed.ErrCacheMiss
}

func (c *memCache) StoreFeed(_ context.Context, userID uuid.UUID, ft feed.FeedType, cached *feed.CachedFeed) error {
	if c.err != nil {
		return c.err
	}
	c.feeds[cacheKey(userID, ft)] = cached
	c.stores++
	return nil
}

func (c *memCache) InvalidateUser(_ context.Context, userID uuid.UUID) error {
	if c.err != nil {
		return c.err
	}
	for k := range c.feeds {
		if len(k) >= 36 && k[:36] == userID.String() {
			delete(c.feeds, k)
		}
	}
	c.invalidation++
	return nil
}

type memTrending struct {
	entries map[feed.ContentType][]feed.TrendingEntry
	incrs   map[uuid.UUID]float64
	removed []uuid.UUID
	err     error
}

func newMemTrending() *memTrending {
	return &memTrending{
		entries: make(map[feed.ContentType][]feed.TrendingEntry),
		incrs:   make(map[uuid.UUID]float64),
	}
}

func (tr *memTrending) Increment(_ context.Context, id uuid.UUID, _ feed.ContentType, delta float64) error {
	if tr.err != nil {
		return tr.err
	}
	tr.incrs[id] += delta
	return nil
}

func (tr *memTrending) TopK(_ context.Context, ct feed.ContentType, k int) ([]feed.TrendingEntry, error) {
	if tr.err != nil {
		return nil, tr.err
	}
	entries := tr.entries[ct]
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

func (tr *memTrending) Remove(_ context.Context, id uuid.UUID, ct feed.ContentType) error {
	if tr.err != nil {
		return tr.err
	}
	entries := tr.entries[ct]
	for i, e := range entries {
		if e.ContentID == id {
			tr.entries[ct] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	tr.removed = append(tr.removed, id)
	return nil
}

func (tr *memTrending) Decay(_ context.Context, _ feed.ContentType, _ float64) error {
	return tr.err
}

type memContent struct {
	candidates map[uuid.UUID]feed.Candidate
	posts      map[uuid.UUID]*feed.Post
	products   map[uuid.UUID]*feed.Product
	recent     []feed.Candidate
	err        error
	recentErr  error
	postCalls  int
}

func newMemContent() *memContent {
	return &memContent{
		candidates: make(map[uuid.UUID]feed.Candidate),
		posts:      make(map[uuid.UUID]*feed.Post),
		products:   make(map[uuid.UUID]*feed.Product),
	}
}

// addPost registers a post everywhere the service might look for it.
func (m *memContent) addPost(createdAt time.Time) feed.Candidate {
	c := feed.Candidate{
		ID:        uuid.New(),
		Type:      feed.ContentTypePost,
		AuthorID:  uuid.New(),
		CreatedAt: createdAt,
	}
	m.candidates[c.ID] = c
	m.posts[c.ID] = &feed.Post{ID: c.ID, AuthorID: c.AuthorID, CreatedAt: createdAt, Active: true}
	return c
}

func (m *memContent) RecentByAuthors(_ context.Context, _ []uuid.UUID, _ time.Time, _ int) ([]feed.Candidate, error) {
	return nil, m.err
}

func (m *memContent) ByIDs(_ context.Context, ct feed.ContentType, ids []uuid.UUID) ([]feed.Candidate, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []feed.Candidate
	for _, id := range ids {
		if c, ok := m.candidates[id]; ok && c.Type == ct {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContent) Discovery(_ context.Context, _ []uuid.UUID, _, _ float64, _ int) ([]feed.Candidate, error) {
	return nil, m.err
}

func (m *memContent) CommunityRecent(_ context.Context, _ uuid.UUID, _ int) ([]feed.Candidate, error) {
	return nil, m.err
}

func (m *memContent) RecentActive(_ context.Context, limit int) ([]feed.Candidate, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *memContent) PostsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*feed.Post, error) {
	m.postCalls++
	out := make(map[uuid.UUID]*feed.Post)
	for _, id := range ids {
		if p, ok := m.posts[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memContent) ProductsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*feed.Product, error) {
	out := make(map[uuid.UUID]*feed.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memSignals struct {
	err error
}

func (s *memSignals) FollowedAccounts(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, s.err
}

func (s *memSignals) EngagedAccounts(_ context.Context, _ uuid.UUID, _ int) ([]uuid.UUID, error) {
	return nil, s.err
}

func (s *memSignals) RecentEngagements(_ context.Context, _ uuid.UUID, _ feed.SignalType, _ int) ([]feed.Engagement, error) {
	return nil, s.err
}

func (s *memSignals) IsCommunityMember(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, s.err
}

type memProfiles struct{}

func (memProfiles) Interests(_ context.Context, _ uuid.UUID) (*profile.InterestProfile, error) {
	return nil, profile.ErrProfileMiss
}
func (memProfiles) StoreInterests(_ context.Context, _ *profile.InterestProfile) error { return nil }
func (memProfiles) Preferences(_ context.Context, _ uuid.UUID) (*profile.PreferenceProfile, error) {
	return nil, profile.ErrProfileMiss
}
func (memProfiles) StorePreferences(_ context.Context, _ *profile.PreferenceProfile) error {
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HARNESS
// ─────────────────────────────────────────────────────────────────────────────

type harness struct {
	svc      *FeedService
	cache    *memCache
	trending *memTrending
	content  *memContent
	signals  *memSignals
}

func newHarness() *harness {
	clock := timeutil.FixedClock{At: testNow}
	cache := newMemCache()
	trending := newMemTrending()
	content := newMemContent()
	signals := &memSignals{}

	extractor := ranking.NewExtractor(signals, content, memProfiles{}, clock, 50, nil)
	generatorCfg := ranking.DefaultGeneratorConfig()
	generatorCfg.SourceTimeout = time.Second
	generator := ranking.NewGenerator(content, signals, trending, clock, generatorCfg, nil)
	scorer := ranking.NewScorer(clock)

	svc := NewFeedService(
		cache, trending, content,
		extractor, generator, scorer,
		clock, DefaultFeedServiceConfig(), nil,
	)
	return &harness{svc: svc, cache: cache, trending: trending, content: content, signals: signals}
}

// seedTrending registers posts as trending entries with content behind them.
func (h *harness) seedTrending(n int) []feed.Candidate {
	var out []feed.Candidate
	for i := 0; i < n; i++ {
		c := h.content.addPost(testNow.Add(-time.Duration(i+1) * time.Hour))
		h.trending.entries[feed.ContentTypePost] = append(
			h.trending.entries[feed.ContentTypePost],
			feed.TrendingEntry{ContentID: c.ID, Type: feed.ContentTypePost, Score: float64(100 - i)},
		)
		out = append(out, c)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// TESTS
// ─────────────────────────────────────────────────────────────────────────────

func TestGetFeed_InvalidType(t *testing.T) {
	h := newHarness()
	_, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedType("newest"),
	})
	assert.ErrorIs(t, err, feed.ErrInvalidFeedType)
}

func TestGetFeed_FreshGenerationAndCache(t *testing.T) {
	h := newHarness()
	h.seedTrending(5)

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedTypeTrending,
	})
	require.NoError(t, err)

	assert.Equal(t, feed.StateFresh, page.State)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 1, h.cache.stores, "generated feed must be cached")
}

func TestGetFeed_CacheHitSkipsGeneration(t *testing.T) {
	h := newHarness()
	h.seedTrending(3)
	userID := uuid.New()

	_, err := h.svc.GetFeed(context.Background(), FeedRequest{UserID: userID, FeedType: feed.FeedTypeTrending})
	require.NoError(t, err)
	require.Equal(t, 1, h.cache.stores)

	// Kill the stores; only the cache can answer now.
	h.trending.err = errors.New("redis zset down")
	h.content.err = errors.New("pg down")

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{UserID: userID, FeedType: feed.FeedTypeTrending})
	require.NoError(t, err)
	assert.Equal(t, feed.StateFresh, page.State)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 1, h.cache.stores, "no regeneration on hit")
}

func TestGetFeed_DegradesToTrending(t *testing.T) {
	h := newHarness()
	h.seedTrending(4)
	// Following feed with the follow graph down: generation fails, the
	// popularity ranking still answers.
	h.signals.err = errors.New("signal store down")

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedTypeFollowing,
	})
	require.NoError(t, err)
	assert.Equal(t, feed.StateDegradedTrending, page.State)
	assert.NotEmpty(t, page.Items)
	assert.Zero(t, h.cache.stores, "degraded responses are never cached")
}

func TestGetFeed_DegradesToRecent(t *testing.T) {
	h := newHarness()
	h.signals.err = errors.New("signal store down")
	h.trending.err = errors.New("redis down")
	h.content.recent = []feed.Candidate{h.content.addPost(testNow.Add(-time.Hour))}

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedTypeFollowing,
	})
	require.NoError(t, err)
	assert.Equal(t, feed.StateDegradedRecent, page.State)
	assert.Len(t, page.Items, 1)
}

func TestGetFeed_EverythingDownSurfacesError(t *testing.T) {
	h := newHarness()
	h.signals.err = errors.New("signal store down")
	h.trending.err = errors.New("redis down")
	h.content.recentErr = errors.New("pg down")

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedTypeFollowing,
	})
	require.ErrorIs(t, err, feed.ErrFeedExhausted)
	assert.Nil(t, page)
}

func TestGetFeed_Pagination(t *testing.T) {
	h := newHarness()
	h.seedTrending(45)
	userID := uuid.New()

	page2, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   userID,
		FeedType: feed.FeedTypeTrending,
		Page:     2,
		PerPage:  20,
	})
	require.NoError(t, err)

	assert.Len(t, page2.Items, 20)
	assert.Equal(t, int64(45), page2.Pagination.Total)
	assert.Equal(t, 3, page2.Pagination.Pages)
	assert.True(t, page2.Pagination.HasNext)
	assert.True(t, page2.Pagination.HasPrev)

	last, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   userID,
		FeedType: feed.FeedTypeTrending,
		Page:     3,
		PerPage:  20,
	})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.Pagination.HasNext)
}

func TestGetFeed_PageBeyondEnd(t *testing.T) {
	h := newHarness()
	h.seedTrending(5)

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedTypeTrending,
		Page:     9,
		PerPage:  20,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(5), page.Pagination.Total)
}

func TestGetFeed_HydrationDropsDeadRefs(t *testing.T) {
	h := newHarness()
	seeded := h.seedTrending(5)
	userID := uuid.New()

	// Warm the cache, then deactivate one post behind its back.
	_, err := h.svc.GetFeed(context.Background(), FeedRequest{UserID: userID, FeedType: feed.FeedTypeTrending})
	require.NoError(t, err)
	delete(h.content.posts, seeded[2].ID)

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{UserID: userID, FeedType: feed.FeedTypeTrending})
	require.NoError(t, err)

	assert.Len(t, page.Items, 4, "dead reference dropped silently")
	for _, item := range page.Items {
		assert.NotEqual(t, seeded[2].ID, item.Ref.ID)
		require.NotNil(t, item.Post)
	}
}

func TestGetFeed_HydrationPreservesOrder(t *testing.T) {
	h := newHarness()
	h.seedTrending(10)

	page, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedTypeTrending,
	})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)

	var scores []float64
	for _, item := range page.Items {
		scores = append(scores, item.Ref.Score)
	}
	assert.IsNonIncreasing(t, scores)
}

func TestGetFeed_HydratesInBatches(t *testing.T) {
	h := newHarness()
	h.seedTrending(20)

	_, err := h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:   uuid.New(),
		FeedType: feed.FeedTypeTrending,
		PerPage:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.content.postCalls, "one batch lookup per content type")
}

func TestGetFeed_ForceRefreshInvalidates(t *testing.T) {
	h := newHarness()
	h.seedTrending(3)
	userID := uuid.New()

	_, err := h.svc.GetFeed(context.Background(), FeedRequest{UserID: userID, FeedType: feed.FeedTypeTrending})
	require.NoError(t, err)

	_, err = h.svc.GetFeed(context.Background(), FeedRequest{
		UserID:       userID,
		FeedType:     feed.FeedTypeTrending,
		ForceRefresh: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, h.cache.invalidation)
	assert.Equal(t, 2, h.cache.stores, "forced refresh regenerates")
}

func TestBumpTrending_SignalWeights(t *testing.T) {
	h := newHarness()
	contentID := uuid.New()
	ctx := context.Background()

	require.NoError(t, h.svc.BumpTrending(ctx, contentID, feed.ContentTypePost, feed.SignalView))
	require.NoError(t, h.svc.BumpTrending(ctx, contentID, feed.ContentTypePost, feed.SignalLike))
	require.NoError(t, h.svc.BumpTrending(ctx, contentID, feed.ContentTypePost, feed.SignalPurchase))

	assert.Equal(t, 9.0, h.trending.incrs[contentID])

	// Follows do not move popularity.
	require.NoError(t, h.svc.BumpTrending(ctx, contentID, feed.ContentTypePost, feed.SignalFollow))
	assert.Equal(t, 9.0, h.trending.incrs[contentID])
}

func TestRemoveTrending_DropsFromRanking(t *testing.T) {
	h := newHarness()
	seeded := h.seedTrending(3)
	ctx := context.Background()

	require.NoError(t, h.svc.RemoveTrending(ctx, seeded[1].ID, feed.ContentTypePost))

	assert.Equal(t, []uuid.UUID{seeded[1].ID}, h.trending.removed)
	entries, err := h.trending.TopK(ctx, feed.ContentTypePost, 10)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, seeded[1].ID, e.ContentID)
	}
}

func TestInvalidateUserFeed(t *testing.T) {
	h := newHarness()
	h.seedTrending(2)
	userID := uuid.New()

	_, err := h.svc.GetFeed(context.Background(), FeedRequest{UserID: userID, FeedType: feed.FeedTypeTrending})
	require.NoError(t, err)
	require.NotEmpty(t, h.cache.feeds)

	require.NoError(t, h.svc.InvalidateUserFeed(context.Background(), userID))
	assert.Empty(t, h.cache.feeds)
}
