// Package profile contains the personalization domain model: weighted
// category interests and behavioral preference profiles derived from a
// user's recent engagement history.
//
// Both profiles are cached per user with independent multi-hour TTLs and
// recomputed lazily on expiry, never on write. Their staleness is an
// accepted trade-off for read cost.
package profile

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Signal weights for interest extraction. A follow is the strongest
// intent signal, a view the weakest.
const (
	WeightLike   = 3.0
	WeightView   = 2.0
	WeightFollow = 4.0
)

// InterestProfile maps category ids to accumulated interest weight.
// Weights are never negative; unseen categories are absent, not zero.
type InterestProfile struct {
	UserID     uuid.UUID             `json:"user_id"`
	Categories map[uuid.UUID]float64 `json:"categories"`
	BuiltAt    time.Time             `json:"built_at"`
}

// NewInterestProfile creates an empty profile for a user.
func NewInterestProfile(userID uuid.UUID) *InterestProfile {
	return &InterestProfile{
		UserID:     userID,
		Categories: make(map[uuid.UUID]float64),
		BuiltAt:    time.Now().UTC(),
	}
}

// Add accumulates weight for a category. Non-positive weights are ignored
// so the profile can never go negative.
func (p *InterestProfile) Add(categoryID uuid.UUID, weight float64) {
	if weight <= 0 {
		return
	}
	if p.Categories == nil {
		p.Categories = make(map[uuid.UUID]float64)
	}
	p.Categories[categoryID] += weight
}

// Weight returns the accumulated weight for a category, 0 if absent.
func (p *InterestProfile) Weight(categoryID uuid.UUID) float64 {
	if p == nil || p.Categories == nil {
		return 0
	}
	return p.Categories[categoryID]
}

// Matches reports whether any of the given categories carries interest.
func (p *InterestProfile) Matches(categoryIDs []uuid.UUID) bool {
	if p == nil || len(p.Categories) == 0 {
		return false
	}
	for _, id := range categoryIDs {
		if _, ok := p.Categories[id]; ok {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the profile has no interests at all
// (cold-start users).
func (p *InterestProfile) IsEmpty() bool {
	return p == nil || len(p.Categories) == 0
}

// TopCategories returns up to n category ids ordered by descending weight,
// ties broken by id for determinism.
func (p *InterestProfile) TopCategories(n int) []uuid.UUID {
	if p == nil || len(p.Categories) == 0 || n <= 0 {
		return nil
	}
	type cw struct {
		id uuid.UUID
		w  float64
	}
	all := make([]cw, 0, len(p.Categories))
	for id, w := range p.Categories {
		all = append(all, cw{id: id, w: w})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].w != all[j].w {
			return all[i].w > all[j].w
		}
		return all[i].id.String() < all[j].id.String()
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]uuid.UUID, len(all))
	for i, c := range all {
		out[i] = c.id
	}
	return out
}

// PriceRange is the price band observed in a user's purchase and like
// history. Min is floored at zero.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether a price falls inside the band. An unset range
// (Max == 0) matches nothing.
func (r PriceRange) Contains(price float64) bool {
	if r.Max <= 0 {
		return false
	}
	return price >= r.Min && price <= r.Max
}

// PreferenceProfile is the behavioral preference profile: what mix of
// content the user engages with and in which price band.
type PreferenceProfile struct {
	UserID uuid.UUID `json:"user_id"`

	// ContentRatio is the share of posts in the user's engagement,
	// in [0,1]. 1 means posts only, 0 means products only.
	ContentRatio float64 `json:"content_ratio"`

	// PriceRange is the observed purchase/like price band.
	PriceRange PriceRange `json:"price_range"`

	// CategoryCounts counts engagements per category, regardless of
	// signal strength.
	CategoryCounts map[uuid.UUID]int `json:"category_preferences"`

	// EngagementPreference is the mean engagement count of content the
	// user interacted with; high values mean the user gravitates to
	// already-popular content.
	EngagementPreference float64 `json:"engagement_preference"`

	// FreshnessPreference is the share of engagements on content younger
	// than a day at engagement time, in [0,1].
	FreshnessPreference float64 `json:"freshness_preference"`

	BuiltAt time.Time `json:"built_at"`
}

// NewPreferenceProfile creates an empty preference profile.
func NewPreferenceProfile(userID uuid.UUID) *PreferenceProfile {
	return &PreferenceProfile{
		UserID:         userID,
		CategoryCounts: make(map[uuid.UUID]int),
		BuiltAt:        time.Now().UTC(),
	}
}

// PrefersCategory reports whether the user has engaged with any of the
// given categories.
func (p *PreferenceProfile) PrefersCategory(categoryIDs []uuid.UUID) bool {
	if p == nil || len(p.CategoryCounts) == 0 {
		return false
	}
	for _, id := range categoryIDs {
		if p.CategoryCounts[id] > 0 {
			return true
		}
	}
	return false
}

// TopCategories returns up to n category ids ordered by descending count,
// ties broken by id.
func (p *PreferenceProfile) TopCategories(n int) []uuid.UUID {
	if p == nil || len(p.CategoryCounts) == 0 || n <= 0 {
		return nil
	}
	type cc struct {
		id uuid.UUID
		c  int
	}
	all := make([]cc, 0, len(p.CategoryCounts))
	for id, c := range p.CategoryCounts {
		all = append(all, cc{id: id, c: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].c != all[j].c {
			return all[i].c > all[j].c
		}
		return all[i].id.String() < all[j].id.String()
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]uuid.UUID, len(all))
	for i, c := range all {
		out[i] = c.id
	}
	return out
}
