// Package ranking implements the feed generation pipeline: profile
// extraction from engagement signals, multi-source candidate generation,
// composite scoring, and diversity re-ranking.
//
// The pipeline is pure computation over data fetched by its collaborators;
// every stage is deterministic given its inputs and the scoring clock, so
// the whole chain is testable at a frozen instant.
package ranking

import (
	"math"
	"sort"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/internal/domain/profile"
	"github.com/bazario/bazario-feed/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORING CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// Base scores by origin. Content from followed accounts starts well above
// anything else so the follow graph dominates a personalized feed.
const (
	baseFollowed = 15.0
	basePost     = 5.0
	baseProduct  = 10.0
)

// Recency half-lives. A post loses half its score every 3 days; product
// listings stay relevant for weeks, hence the longer half-life.
const (
	postHalfLifeHours    = 72.0
	productHalfLifeHours = 168.0
)

// Personalization multipliers.
const (
	// strongInterestMultiplier applies when a post's category intersects
	// the interest profile, or a product both sits in the preferred price
	// band and matches a category.
	strongInterestMultiplier = 1.5

	// engagedSellerMultiplier applies to content from sellers the user
	// recently engaged with.
	engagedSellerMultiplier = 1.4

	// categoryPreferenceMultiplier applies on a weak match: the candidate
	// shares a category with the user's engagement history but misses the
	// strong conditions above.
	categoryPreferenceMultiplier = 1.3
)

// Product quality bonuses, added before decay.
const (
	verifiedSellerBonus = 2.0
	highRatingBonus     = 1.5
	goodRatingBonus     = 0.75
	highRatingFloor     = 4.0
	goodRatingFloor     = 3.0
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORER
// ══════════════════════════════════════════════════════════════════════════════

// Scorer computes composite relevance scores:
//
//	score = (base + log1p(engagement)·sourceWeight + bonuses) · decay · multipliers
//
// The clock is injected so a whole generation is scored against one
// frozen instant; two candidates never race the wall clock.
type Scorer struct {
	clock timeutil.Clock
}

// NewScorer creates a Scorer using the given clock.
func NewScorer(clock timeutil.Clock) *Scorer {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Scorer{clock: clock}
}

// Score computes the composite score of one candidate against the user's
// profiles. Either profile may be nil (cold start); scoring then falls
// back to popularity and recency alone.
func (s *Scorer) Score(c feed.Candidate, interests *profile.InterestProfile, prefs *profile.PreferenceProfile) float64 {
	base := basePost
	switch {
	case c.Source == feed.SourceFollowed:
		base = baseFollowed
	case c.Type == feed.ContentTypeProduct:
		base = baseProduct
	}

	engagement := math.Log1p(float64(c.EngagementCount)) * c.Source.Weight()

	bonus := 0.0
	if c.Type == feed.ContentTypeProduct {
		if c.SellerVerified {
			bonus += verifiedSellerBonus
		}
		switch {
		case c.Rating >= highRatingFloor:
			bonus += highRatingBonus
		case c.Rating >= goodRatingFloor:
			bonus += goodRatingBonus
		}
	}

	halfLife := postHalfLifeHours
	if c.Type == feed.ContentTypeProduct {
		halfLife = productHalfLifeHours
	}
	age := timeutil.AgeHours(c.CreatedAt, s.clock.Now())
	decay := timeutil.HalfLifeDecay(age, halfLife)

	score := (base + engagement + bonus) * decay

	score *= s.personalizationMultiplier(c, interests, prefs)

	return score
}

// personalizationMultiplier combines the profile-driven boosts. The
// strong and weak boosts are mutually exclusive; the engaged-seller
// boost stacks on top of either.
func (s *Scorer) personalizationMultiplier(c feed.Candidate, interests *profile.InterestProfile, prefs *profile.PreferenceProfile) float64 {
	m := 1.0

	switch {
	case strongMatch(c, interests, prefs):
		m *= strongInterestMultiplier
	case interests.Matches(c.CategoryIDs) || prefs.PrefersCategory(c.CategoryIDs):
		m *= categoryPreferenceMultiplier
	}

	if c.Source == feed.SourceEngaged {
		m *= engagedSellerMultiplier
	}

	return m
}

// strongMatch reports a full personalization hit: for posts, any interest
// category overlap; for products, the price must also sit in the user's
// observed band.
func strongMatch(c feed.Candidate, interests *profile.InterestProfile, prefs *profile.PreferenceProfile) bool {
	if c.Type == feed.ContentTypeProduct {
		if prefs == nil || !prefs.PriceRange.Contains(c.Price) {
			return false
		}
		return interests.Matches(c.CategoryIDs) || prefs.PrefersCategory(c.CategoryIDs)
	}
	return interests.Matches(c.CategoryIDs)
}

// ScoreAll scores every candidate and returns ranked references, best
// first. Ties break by recency, then id, so a generation is reproducible.
func (s *Scorer) ScoreAll(candidates []feed.Candidate, interests *profile.InterestProfile, prefs *profile.PreferenceProfile) []feed.FeedItemRef {
	refs := make([]feed.FeedItemRef, 0, len(candidates))
	for _, c := range candidates {
		refs = append(refs, feed.FeedItemRef{
			ID:        c.ID,
			Type:      c.Type,
			Score:     s.Score(c, interests, prefs),
			CreatedAt: c.CreatedAt,
		})
	}
	SortRefs(refs)
	return refs
}

// SortRefs orders references by score descending, breaking ties by
// CreatedAt descending and finally by id.
func SortRefs(refs []feed.FeedItemRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Score != refs[j].Score {
			return refs[i].Score > refs[j].Score
		}
		if !refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].CreatedAt.After(refs[j].CreatedAt)
		}
		return refs[i].ID.String() < refs[j].ID.String()
	})
}
