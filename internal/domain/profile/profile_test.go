package profile

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInterestProfile_Add(t *testing.T) {
	p := NewInterestProfile(uuid.New())
	cat := uuid.New()

	p.Add(cat, WeightLike)
	p.Add(cat, WeightView)
	assert.Equal(t, WeightLike+WeightView, p.Weight(cat))

	// Non-positive weights are ignored.
	p.Add(cat, -1)
	p.Add(cat, 0)
	assert.Equal(t, WeightLike+WeightView, p.Weight(cat))
}

func TestInterestProfile_Matches(t *testing.T) {
	p := NewInterestProfile(uuid.New())
	known := uuid.New()
	p.Add(known, WeightFollow)

	assert.True(t, p.Matches([]uuid.UUID{uuid.New(), known}))
	assert.False(t, p.Matches([]uuid.UUID{uuid.New()}))
	assert.False(t, p.Matches(nil))
}

func TestInterestProfile_IsEmpty(t *testing.T) {
	var nilProfile *InterestProfile
	assert.True(t, nilProfile.IsEmpty())
	assert.True(t, NewInterestProfile(uuid.New()).IsEmpty())

	p := NewInterestProfile(uuid.New())
	p.Add(uuid.New(), WeightView)
	assert.False(t, p.IsEmpty())
}

func TestInterestProfile_TopCategories(t *testing.T) {
	p := NewInterestProfile(uuid.New())
	low, mid, high := uuid.New(), uuid.New(), uuid.New()
	p.Add(low, 1)
	p.Add(mid, 5)
	p.Add(high, 9)

	top := p.TopCategories(2)
	assert.Equal(t, []uuid.UUID{high, mid}, top)

	// Asking for more than exists returns everything.
	assert.Len(t, p.TopCategories(10), 3)
	assert.Nil(t, p.TopCategories(0))
}

func TestPriceRange_Contains(t *testing.T) {
	r := PriceRange{Min: 10, Max: 100}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(55))
	assert.True(t, r.Contains(100))
	assert.False(t, r.Contains(9.99))
	assert.False(t, r.Contains(100.01))

	// Unset range matches nothing.
	assert.False(t, PriceRange{}.Contains(50))
}

func TestPreferenceProfile_PrefersCategory(t *testing.T) {
	p := NewPreferenceProfile(uuid.New())
	cat := uuid.New()
	p.CategoryCounts[cat] = 3

	assert.True(t, p.PrefersCategory([]uuid.UUID{cat}))
	assert.False(t, p.PrefersCategory([]uuid.UUID{uuid.New()}))
	assert.False(t, p.PrefersCategory(nil))
}

func TestPreferenceProfile_TopCategories(t *testing.T) {
	p := NewPreferenceProfile(uuid.New())
	a, b := uuid.New(), uuid.New()
	p.CategoryCounts[a] = 2
	p.CategoryCounts[b] = 7

	assert.Equal(t, []uuid.UUID{b, a}, p.TopCategories(5))
	assert.Equal(t, []uuid.UUID{b}, p.TopCategories(1))
}
