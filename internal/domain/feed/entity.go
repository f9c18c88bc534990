// Package feed contains the domain model of the Bazario content feed:
// lightweight ranked references, cached feed payloads, hydrated items,
// and the store contracts the ranking engine consumes.
//
// A feed is an ordered stream of heterogeneous content (posts and product
// listings) produced per user. The cache holds only references (id, type,
// score, timestamp); full records are hydrated on read via batch lookups.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// ContentType identifies the kind of content behind a feed item.
type ContentType string

const (
	// ContentTypePost is user-generated content (text, images).
	ContentTypePost ContentType = "post"

	// ContentTypeProduct is a marketplace product listing.
	ContentTypeProduct ContentType = "product"
)

// IsValid reports whether the content type is one of the known kinds.
func (t ContentType) IsValid() bool {
	return t == ContentTypePost || t == ContentTypeProduct
}

// ══════════════════════════════════════════════════════════════════════════════
// FEED TYPES
// ══════════════════════════════════════════════════════════════════════════════

// FeedType selects the candidate strategy for a feed request.
// Niche feeds carry a community id as "niche:<uuid>".
type FeedType string

const (
	// FeedTypePersonalized combines follows, engagement history,
	// interest-filtered trending and preference-matched discovery.
	FeedTypePersonalized FeedType = "personalized"

	// FeedTypeTrending serves the global popularity ranking only.
	FeedTypeTrending FeedType = "trending"

	// FeedTypeFollowing serves content from followed accounts only.
	FeedTypeFollowing FeedType = "following"

	// FeedTypeDiscover serves trending plus discovery content without
	// the follow-graph boost.
	FeedTypeDiscover FeedType = "discover"
)

// nichePrefix marks community-scoped feed types.
const nichePrefix = "niche:"

// NicheFeedType builds the feed type for a community-scoped feed.
func NicheFeedType(communityID uuid.UUID) FeedType {
	return FeedType(nichePrefix + communityID.String())
}

// ParseFeedType validates a caller-supplied feed type string.
// Unknown values are a caller contract violation (ErrInvalidFeedType).
func ParseFeedType(s string) (FeedType, error) {
	switch FeedType(s) {
	case FeedTypePersonalized, FeedTypeTrending, FeedTypeFollowing, FeedTypeDiscover:
		return FeedType(s), nil
	}
	if strings.HasPrefix(s, nichePrefix) {
		if _, err := uuid.Parse(strings.TrimPrefix(s, nichePrefix)); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidFeedType, s)
		}
		return FeedType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFeedType, s)
}

// IsNiche reports whether the feed is scoped to a single community.
func (t FeedType) IsNiche() bool {
	return strings.HasPrefix(string(t), nichePrefix)
}

// NicheID returns the community id of a niche feed type.
func (t FeedType) NicheID() (uuid.UUID, bool) {
	if !t.IsNiche() {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(string(t), nichePrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Validate returns ErrInvalidFeedType for values that did not come
// through ParseFeedType.
func (t FeedType) Validate() error {
	_, err := ParseFeedType(string(t))
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// FEED ITEM REFERENCES
// ══════════════════════════════════════════════════════════════════════════════

// FeedItemRef is the unit of caching and ranking: a content reference with
// the score it received at generation time. Intentionally lightweight so
// cache entries stay small regardless of content schema evolution.
//
// A ref's score is only meaningful within the feed type and generation it
// was produced for; scores are never compared across generations.
type FeedItemRef struct {
	ID        uuid.UUID   `json:"id"`
	Type      ContentType `json:"type"`
	Score     float64     `json:"score"`
	CreatedAt time.Time   `json:"created_at"`
}

// FeedMeta describes one cached feed generation.
type FeedMeta struct {
	GeneratedAt time.Time `json:"generated_at"`
	FeedType    FeedType  `json:"feed_type"`
	ItemCount   int       `json:"item_count"`
}

// CachedFeed is the cache payload for one (user, feed type) pair.
// Item order is the final ranked order at generation time; the cache
// never re-sorts on read.
type CachedFeed struct {
	Items []FeedItemRef `json:"items"`
	Meta  FeedMeta      `json:"metadata"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CANDIDATES
// ══════════════════════════════════════════════════════════════════════════════

// CandidateSource records which generator strategy produced a candidate.
type CandidateSource string

const (
	SourceFollowed  CandidateSource = "followed"
	SourceEngaged   CandidateSource = "engaged"
	SourceTrending  CandidateSource = "trending"
	SourceDiscovery CandidateSource = "discovery"
	SourceNiche     CandidateSource = "niche"
	SourceRecent    CandidateSource = "recent"
)

// Weight returns the engagement multiplier of the source, applied to the
// log-scaled engagement count during scoring.
func (s CandidateSource) Weight() float64 {
	switch s {
	case SourceFollowed:
		return 2.0
	case SourceEngaged:
		return 1.8
	case SourceTrending:
		return 1.5
	case SourceNiche:
		return 1.2
	default:
		return 1.0
	}
}

// Candidate is a raw, unscored reference to a post or product under
// consideration for a feed, carrying just enough denormalized data for the
// scorer to work without further lookups.
type Candidate struct {
	ID              uuid.UUID
	Type            ContentType
	AuthorID        uuid.UUID
	CategoryIDs     []uuid.UUID
	EngagementCount int64
	CreatedAt       time.Time
	Source          CandidateSource

	// Product-only attributes. Zero values for posts.
	Price          float64
	Rating         float64
	SellerVerified bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HYDRATED CONTENT
// ══════════════════════════════════════════════════════════════════════════════

// Post is a fully hydrated user post.
type Post struct {
	ID          uuid.UUID   `json:"id"`
	AuthorID    uuid.UUID   `json:"author_id"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
	LikeCount   int64       `json:"like_count"`
	ViewCount   int64       `json:"view_count"`
	CreatedAt   time.Time   `json:"created_at"`
	Active      bool        `json:"active"`
}

// Product is a fully hydrated marketplace listing.
type Product struct {
	ID             uuid.UUID   `json:"id"`
	SellerID       uuid.UUID   `json:"seller_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Price          float64     `json:"price"`
	CategoryIDs    []uuid.UUID `json:"category_ids"`
	LikeCount      int64       `json:"like_count"`
	ViewCount      int64       `json:"view_count"`
	PurchaseCount  int64       `json:"purchase_count"`
	Rating         float64     `json:"rating"`
	SellerVerified bool        `json:"seller_verified"`
	CreatedAt      time.Time   `json:"created_at"`
	Active         bool        `json:"active"`
}

// Item is one hydrated feed entry. Exactly one of Post/Product is set,
// matching Ref.Type.
type Item struct {
	Ref     FeedItemRef `json:"ref"`
	Post    *Post       `json:"post,omitempty"`
	Product *Product    `json:"product,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGINATION
// ══════════════════════════════════════════════════════════════════════════════

// Pagination describes page boundaries of a feed result.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// NewPagination computes page boundaries for a feed of the given total size.
// Pages is at least 1 so an empty feed still has a valid first page.
func NewPagination(page, perPage int, total int64) Pagination {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages == 0 {
		pages = 1
	}
	return Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// ServeState records which stage of the degradation chain produced a
// feed response.
type ServeState string

const (
	// StateFresh is the healthy path: cached or freshly generated.
	StateFresh ServeState = "fresh"

	// StateDegradedTrending means generation failed and the response came
	// from the popularity ranking alone.
	StateDegradedTrending ServeState = "degraded_trending"

	// StateDegradedRecent is the last resort: recent content by time only.
	StateDegradedRecent ServeState = "degraded_recent"
)

// Page is the hydrated, paginated feed result returned to the serving layer.
type Page struct {
	Items      []Item     `json:"items"`
	Pagination Pagination `json:"pagination"`
	State      ServeState `json:"state"`
}

// ══════════════════════════════════════════════════════════════════════════════
// TRENDING
// ══════════════════════════════════════════════════════════════════════════════

// TrendingEntry is one member of the global popularity ranking.
type TrendingEntry struct {
	ContentID uuid.UUID
	Type      ContentType
	Score     float64
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT SIGNALS
// ══════════════════════════════════════════════════════════════════════════════

// SignalType classifies a behavioral engagement event.
type SignalType string

const (
	SignalLike     SignalType = "like"
	SignalView     SignalType = "view"
	SignalFollow   SignalType = "follow"
	SignalPurchase SignalType = "purchase"
)

// Engagement is one behavioral event read from the signal store, carrying
// the category and price context needed for profile extraction.
type Engagement struct {
	ContentID   uuid.UUID
	ContentType ContentType
	CategoryIDs []uuid.UUID
	Price       float64
	Signal      SignalType
	OccurredAt  time.Time
}
