package feed

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedType_Known(t *testing.T) {
	for _, s := range []string{"personalized", "trending", "following", "discover"} {
		ft, err := ParseFeedType(s)
		assert.NoError(t, err)
		assert.Equal(t, FeedType(s), ft)
		assert.False(t, ft.IsNiche())
	}
}

func TestParseFeedType_Niche(t *testing.T) {
	communityID := uuid.New()
	ft, err := ParseFeedType("niche:" + communityID.String())
	require.NoError(t, err)
	assert.True(t, ft.IsNiche())

	id, ok := ft.NicheID()
	assert.True(t, ok)
	assert.Equal(t, communityID, id)

	assert.Equal(t, ft, NicheFeedType(communityID))
}

func TestParseFeedType_Invalid(t *testing.T) {
	for _, s := range []string{"", "newest", "niche:", "niche:not-a-uuid", "Personalized"} {
		_, err := ParseFeedType(s)
		assert.ErrorIs(t, err, ErrInvalidFeedType, "input %q", s)
	}
}

func TestNicheID_NotNiche(t *testing.T) {
	_, ok := FeedTypeTrending.NicheID()
	assert.False(t, ok)
}

func TestCandidateSource_Weights(t *testing.T) {
	assert.Equal(t, 2.0, SourceFollowed.Weight())
	assert.Equal(t, 1.8, SourceEngaged.Weight())
	assert.Equal(t, 1.5, SourceTrending.Weight())
	assert.Equal(t, 1.2, SourceNiche.Weight())
	assert.Equal(t, 1.0, SourceDiscovery.Weight())
	assert.Equal(t, 1.0, SourceRecent.Weight())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, int64(45), p.Total)
	assert.Equal(t, 3, p.Pages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	last := NewPagination(3, 20, 45)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestNewPagination_Empty(t *testing.T) {
	p := NewPagination(1, 20, 0)
	assert.Equal(t, 1, p.Pages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}

func TestContentType_IsValid(t *testing.T) {
	assert.True(t, ContentTypePost.IsValid())
	assert.True(t, ContentTypeProduct.IsValid())
	assert.False(t, ContentType("video").IsValid())
}

func TestCachedFeed_RefsAreLightweight(t *testing.T) {
	// The cache payload must round-trip without touching content fields.
	ref := FeedItemRef{
		ID:        uuid.New(),
		Type:      ContentTypeProduct,
		Score:     12.5,
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	cached := CachedFeed{
		Items: []FeedItemRef{ref},
		Meta: FeedMeta{
			GeneratedAt: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
			FeedType:    FeedTypePersonalized,
			ItemCount:   1,
		},
	}
	assert.Equal(t, 1, cached.Meta.ItemCount)
	assert.Equal(t, ref.ID, cached.Items[0].ID)
}
