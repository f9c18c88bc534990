package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// SIGNAL STORE CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// ContentRepository reads content from the relational signal store.
// Implementations live in the infrastructure layer (PostgreSQL).
//
// Batch lookups are the critical performance contract of hydration: one
// query per content type, never one per item.
type ContentRepository interface {
	// RecentByAuthors returns recent active content from the given
	// authors, newest first.
	RecentByAuthors(ctx context.Context, authorIDs []uuid.UUID, since time.Time, limit int) ([]Candidate, error)

	// ByIDs loads candidate data for a set of content ids of one type.
	// Missing or deactivated ids are silently absent from the result.
	ByIDs(ctx context.Context, contentType ContentType, ids []uuid.UUID) ([]Candidate, error)

	// Discovery returns active content matching the given categories and,
	// for products, the price band. A nil category list matches broadly.
	Discovery(ctx context.Context, categoryIDs []uuid.UUID, minPrice, maxPrice float64, limit int) ([]Candidate, error)

	// CommunityRecent returns recent content scoped to one community.
	CommunityRecent(ctx context.Context, communityID uuid.UUID, limit int) ([]Candidate, error)

	// RecentActive returns the most recent active content of both types,
	// used by the last fallback state.
	RecentActive(ctx context.Context, limit int) ([]Candidate, error)

	// PostsByIDs hydrates posts in one batch lookup.
	PostsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Post, error)

	// ProductsByIDs hydrates products in one batch lookup.
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
}

// SignalRepository reads behavioral signals from the relational store.
type SignalRepository interface {
	// FollowedAccounts returns the accounts the user follows.
	FollowedAccounts(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// EngagedAccounts returns authors whose content the user recently
	// liked, most recently engaged first.
	EngagedAccounts(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error)

	// RecentEngagements returns the user's most recent events of one
	// signal type, bounded by limit.
	RecentEngagements(ctx context.Context, userID uuid.UUID, signal SignalType, limit int) ([]Engagement, error)

	// IsCommunityMember reports whether the user may read a niche feed.
	IsCommunityMember(ctx context.Context, userID, communityID uuid.UUID) (bool, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE CACHE CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Cache stores generated feed payloads per (user, feed type).
type Cache interface {
	// Feed returns the cached payload or ErrCacheMiss.
	Feed(ctx context.Context, userID uuid.UUID, feedType FeedType) (*CachedFeed, error)

	// StoreFeed writes a generated payload with the configured TTL.
	StoreFeed(ctx context.Context, userID uuid.UUID, feedType FeedType, cached *CachedFeed) error

	// InvalidateUser deletes the user's feed payloads and both profile
	// keys in one operation.
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

// TrendingStore is the shared popularity ranking: a concurrent-safe score
// store with atomic increments, one set per content type, global across
// users.
type TrendingStore interface {
	// Increment atomically adjusts a content item's popularity score.
	Increment(ctx context.Context, contentID uuid.UUID, contentType ContentType, delta float64) error

	// TopK returns the k highest-scored entries of one content type,
	// best first.
	TopK(ctx context.Context, contentType ContentType, k int) ([]TrendingEntry, error)

	// Remove drops a content item from the ranking, used when content is
	// deactivated so it stops surfacing in degraded responses.
	Remove(ctx context.Context, contentID uuid.UUID, contentType ContentType) error

	// Decay multiplies all scores of one content type by factor,
	// keeping popularity time-sensitive.
	Decay(ctx context.Context, contentType ContentType, factor float64) error
}
