package ranking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/internal/domain/profile"
	"github.com/bazario/bazario-feed/pkg/logger"
	"github.com/bazario/bazario-feed/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CANDIDATE GENERATION
// ══════════════════════════════════════════════════════════════════════════════

// GeneratorConfig holds candidate generation tunables.
type GeneratorConfig struct {
	// PerSourceLimit bounds each source's contribution.
	PerSourceLimit int

	// SourceTimeout bounds each source's queries independently.
	SourceTimeout time.Duration

	// FollowedWindow is how far back followed-account content is pulled.
	FollowedWindow time.Duration

	// TrendingK is how many trending entries are read per content type.
	TrendingK int

	// EngagedAccountLimit bounds how many recently-engaged authors feed
	// the engaged source.
	EngagedAccountLimit int
}

// DefaultGeneratorConfig returns production defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		PerSourceLimit:      50,
		SourceTimeout:       2 * time.Second,
		FollowedWindow:      7 * 24 * time.Hour,
		TrendingK:           100,
		EngagedAccountLimit: 20,
	}
}

// Generator produces the raw candidate pool for one feed generation by
// fanning out to the sources a feed type requires.
//
// Sources run concurrently and fail independently: a source that errors
// or times out contributes nothing and is logged, but never fails the
// generation. Only every source failing at once is an error for the
// caller to map into degradation.
//
// Duplicates across sources collapse to the highest-priority origin
// (followed > engaged > trending > discovery) so a followed author's post
// that is also trending keeps its follow boost.
type Generator struct {
	content  feed.ContentRepository
	signals  feed.SignalRepository
	trending feed.TrendingStore
	clock    timeutil.Clock
	cfg      GeneratorConfig
	log      *logger.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(
	content feed.ContentRepository,
	signals feed.SignalRepository,
	trending feed.TrendingStore,
	clock timeutil.Clock,
	cfg GeneratorConfig,
	log *logger.Logger,
) *Generator {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &Generator{
		content:  content,
		signals:  signals,
		trending: trending,
		clock:    clock,
		cfg:      cfg,
		log:      log.With(logger.Component("generator")),
	}
}

// sourceFn fetches one source's candidates.
type sourceFn func(ctx context.Context) ([]feed.Candidate, error)

// Generate returns the deduplicated candidate pool for a feed request.
// Profiles may be nil for cold-start users; sources that need them
// degrade to unpersonalized queries.
func (g *Generator) Generate(
	ctx context.Context,
	userID uuid.UUID,
	feedType feed.FeedType,
	interests *profile.InterestProfile,
	prefs *profile.PreferenceProfile,
) ([]feed.Candidate, error) {
	if feedType.IsNiche() {
		return g.nicheCandidates(ctx, userID, feedType)
	}

	var sources []namedSource
	switch feedType {
	case feed.FeedTypePersonalized:
		sources = []namedSource{
			{feed.SourceFollowed, g.followedSource(userID)},
			{feed.SourceEngaged, g.engagedSource(userID)},
			{feed.SourceTrending, g.trendingSource()},
			{feed.SourceDiscovery, g.discoverySource(interests, prefs)},
		}
	case feed.FeedTypeFollowing:
		sources = []namedSource{
			{feed.SourceFollowed, g.followedSource(userID)},
		}
	case feed.FeedTypeTrending:
		sources = []namedSource{
			{feed.SourceTrending, g.trendingSource()},
		}
	case feed.FeedTypeDiscover:
		sources = []namedSource{
			{feed.SourceTrending, g.trendingSource()},
			{feed.SourceDiscovery, g.discoverySource(interests, prefs)},
		}
	default:
		return nil, fmt.Errorf("%w: %q", feed.ErrInvalidFeedType, feedType)
	}

	merged, failed := g.fanOut(ctx, userID, sources)
	if len(merged) == 0 && failed == len(sources) {
		// Every source is down. A healthy-but-empty pool is a valid
		// feed; this is not, and the caller degrades.
		return nil, fmt.Errorf("all %d candidate sources failed", failed)
	}
	return merged, nil
}

type namedSource struct {
	name feed.CandidateSource
	fn   sourceFn
}

// fanOut runs all sources concurrently and merges their results in
// priority order, keeping the first occurrence of each content id.
// It also reports how many sources failed outright.
func (g *Generator) fanOut(ctx context.Context, userID uuid.UUID, sources []namedSource) ([]feed.Candidate, int) {
	results := make([][]feed.Candidate, len(sources))
	var mu sync.Mutex
	var failed int

	eg, egCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		eg.Go(func() error {
			srcCtx, cancel := context.WithTimeout(egCtx, g.cfg.SourceTimeout)
			defer cancel()

			candidates, err := src.fn(srcCtx)
			if err != nil {
				g.log.Warn("candidate source failed",
					logger.UserID(userID.String()),
					logger.String("source", string(src.name)),
					logger.Err(err),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			for j := range candidates {
				candidates[j].Source = src.name
			}

			mu.Lock()
			results[i] = candidates
			mu.Unlock()
			return nil
		})
	}
	// Sources never return errors, only log them.
	_ = eg.Wait()

	// Merge in declaration order = priority order.
	seen := make(map[uuid.UUID]struct{})
	var merged []feed.Candidate
	for _, batch := range results {
		for _, c := range batch {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged, failed
}

// ─────────────────────────────────────────────────────────────────────────────
// SOURCES
// ─────────────────────────────────────────────────────────────────────────────

func (g *Generator) followedSource(userID uuid.UUID) sourceFn {
	return func(ctx context.Context) ([]feed.Candidate, error) {
		authors, err := g.signals.FollowedAccounts(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(authors) == 0 {
			return nil, nil
		}
		since := g.clock.Now().Add(-g.cfg.FollowedWindow)
		return g.content.RecentByAuthors(ctx, authors, since, g.cfg.PerSourceLimit)
	}
}

func (g *Generator) engagedSource(userID uuid.UUID) sourceFn {
	return func(ctx context.Context) ([]feed.Candidate, error) {
		authors, err := g.signals.EngagedAccounts(ctx, userID, g.cfg.EngagedAccountLimit)
		if err != nil {
			return nil, err
		}
		if len(authors) == 0 {
			return nil, nil
		}
		since := g.clock.Now().Add(-g.cfg.FollowedWindow)
		return g.content.RecentByAuthors(ctx, authors, since, g.cfg.PerSourceLimit)
	}
}

// trendingSource reads both popularity rankings and resolves them to
// candidates through one batch lookup per content type. Entries whose
// content has since been deactivated drop out naturally.
func (g *Generator) trendingSource() sourceFn {
	return func(ctx context.Context) ([]feed.Candidate, error) {
		var all []feed.Candidate
		for _, contentType := range []feed.ContentType{feed.ContentTypePost, feed.ContentTypeProduct} {
			entries, err := g.trending.TopK(ctx, contentType, g.cfg.TrendingK)
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				continue
			}
			ids := make([]uuid.UUID, len(entries))
			for i, e := range entries {
				ids[i] = e.ContentID
			}
			candidates, err := g.content.ByIDs(ctx, contentType, ids)
			if err != nil {
				return nil, err
			}
			all = append(all, candidates...)
		}
		return all, nil
	}
}

// discoverySource queries content in the user's preferred categories and
// price band. With no profile signal at all it falls back to a broad
// popularity query so cold-start users still get a pool.
func (g *Generator) discoverySource(interests *profile.InterestProfile, prefs *profile.PreferenceProfile) sourceFn {
	return func(ctx context.Context) ([]feed.Candidate, error) {
		const topCategories = 10

		var categories []uuid.UUID
		if !interests.IsEmpty() {
			categories = interests.TopCategories(topCategories)
		} else if prefs != nil {
			categories = prefs.TopCategories(topCategories)
		}

		var minPrice, maxPrice float64
		if prefs != nil {
			minPrice = prefs.PriceRange.Min
			maxPrice = prefs.PriceRange.Max
		}

		return g.content.Discovery(ctx, categories, minPrice, maxPrice, g.cfg.PerSourceLimit)
	}
}

// nicheCandidates gates the community feed on membership: a non-member
// gets an empty feed, not an error, and nothing is queried for them.
func (g *Generator) nicheCandidates(ctx context.Context, userID uuid.UUID, feedType feed.FeedType) ([]feed.Candidate, error) {
	communityID, ok := feedType.NicheID()
	if !ok {
		return nil, fmt.Errorf("%w: %q", feed.ErrInvalidFeedType, feedType)
	}

	member, err := g.signals.IsCommunityMember(ctx, userID, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to check community membership: %w", err)
	}
	if !member {
		g.log.Debug("non-member requested niche feed",
			logger.UserID(userID.String()),
			logger.FeedType(string(feedType)),
		)
		return nil, nil
	}

	candidates, err := g.content.CommunityRecent(ctx, communityID, g.cfg.PerSourceLimit)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].Source = feed.SourceNiche
	}
	return candidates, nil
}
