package ranking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/feed"
	"github.com/bazario/bazario-feed/internal/domain/profile"
)

// In-memory collaborators for pipeline tests. Any error field, when set,
// fails the corresponding call.

var errStoreDown = errors.New("store down")

type fakeContentRepo struct {
	byAuthor   []feed.Candidate
	byID       map[uuid.UUID]feed.Candidate
	discovery  []feed.Candidate
	community  []feed.Candidate
	recent     []feed.Candidate
	posts      map[uuid.UUID]*feed.Post
	products   map[uuid.UUID]*feed.Product
	failAll    bool
	discErr    error
	byAuthorCt int
}

func (f *fakeContentRepo) RecentByAuthors(_ context.Context, _ []uuid.UUID, _ time.Time, _ int) ([]feed.Candidate, error) {
	f.byAuthorCt++
	if f.failAll {
		return nil, errStoreDown
	}
	return f.byAuthor, nil
}

func (f *fakeContentRepo) ByIDs(_ context.Context, contentType feed.ContentType, ids []uuid.UUID) ([]feed.Candidate, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	var out []feed.Candidate
	for _, id := range ids {
		if c, ok := f.byID[id]; ok && c.Type == contentType {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContentRepo) Discovery(_ context.Context, _ []uuid.UUID, _, _ float64, _ int) ([]feed.Candidate, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	if f.discErr != nil {
		return nil, f.discErr
	}
	return f.discovery, nil
}

func (f *fakeContentRepo) CommunityRecent(_ context.Context, _ uuid.UUID, _ int) ([]feed.Candidate, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	return f.community, nil
}

func (f *fakeContentRepo) RecentActive(_ context.Context, limit int) ([]feed.Candidate, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeContentRepo) PostsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*feed.Post, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	out := make(map[uuid.UUID]*feed.Post)
	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeContentRepo) ProductsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*feed.Product, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	out := make(map[uuid.UUID]*feed.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeSignalRepo struct {
	followed    []uuid.UUID
	engaged     []uuid.UUID
	engagements map[feed.SignalType][]feed.Engagement
	members     map[uuid.UUID]bool
	followErr   error
	eventErr    error
}

func (f *fakeSignalRepo) FollowedAccounts(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	if f.followErr != nil {
		return nil, f.followErr
	}
	return f.followed, nil
}

func (f *fakeSignalRepo) EngagedAccounts(_ context.Context, _ uuid.UUID, _ int) ([]uuid.UUID, error) {
	return f.engaged, nil
}

func (f *fakeSignalRepo) RecentEngagements(_ context.Context, _ uuid.UUID, signal feed.SignalType, limit int) ([]feed.Engagement, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	events := f.engagements[signal]
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (f *fakeSignalRepo) IsCommunityMember(_ context.Context, _, communityID uuid.UUID) (bool, error) {
	return f.members[communityID], nil
}

type fakeTrendingStore struct {
	entries map[feed.ContentType][]feed.TrendingEntry
	incrs   map[uuid.UUID]float64
	decays  int
	err     error
}

func newFakeTrendingStore() *fakeTrendingStore {
	return &fakeTrendingStore{
		entries: make(map[feed.ContentType][]feed.TrendingEntry),
		incrs:   make(map[uuid.UUID]float64),
	}
}

func (f *fakeTrendingStore) Increment(_ context.Context, contentID uuid.UUID, _ feed.ContentType, delta float64) error {
	if f.err != nil {
		return f.err
	}
	f.incrs[contentID] += delta
	return nil
}

func (f *fakeTrendingStore) TopK(_ context.Context, contentType feed.ContentType, k int) ([]feed.TrendingEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	entries := f.entries[contentType]
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

func (f *fakeTrendingStore) Remove(_ context.Context, contentID uuid.UUID, contentType feed.ContentType) error {
	if f.err != nil {
		return f.err
	}
	entries := f.entries[contentType]
	for i, e := range entries {
		if e.ContentID == contentID {
			f.entries[contentType] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeTrendingStore) Decay(_ context.Context, _ feed.ContentType, _ float64) error {
	if f.err != nil {
		return f.err
	}
	f.decays++
	return nil
}

type fakeProfileCache struct {
	interests   map[uuid.UUID]*profile.InterestProfile
	preferences map[uuid.UUID]*profile.PreferenceProfile
	readErr     error
	storeErr    error
	storedInt   int
	storedPref  int
}

func newFakeProfileCache() *fakeProfileCache {
	return &fakeProfileCache{
		interests:   make(map[uuid.UUID]*profile.InterestProfile),
		preferences: make(map[uuid.UUID]*profile.PreferenceProfile),
	}
}

func (f *fakeProfileCache) Interests(_ context.Context, userID uuid.UUID) (*profile.InterestProfile, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if p, ok := f.interests[userID]; ok {
		return p, nil
	}
	return nil, profile.ErrProfileMiss
}

func (f *fakeProfileCache) StoreInterests(_ context.Context, p *profile.InterestProfile) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.interests[p.UserID] = p
	f.storedInt++
	return nil
}

func (f *fakeProfileCache) Preferences(_ context.Context, userID uuid.UUID) (*profile.PreferenceProfile, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if p, ok := f.preferences[userID]; ok {
		return p, nil
	}
	return nil, profile.ErrProfileMiss
}

func (f *fakeProfileCache) StorePreferences(_ context.Context, p *profile.PreferenceProfile) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.preferences[p.UserID] = p
	f.storedPref++
	return nil
}
