package profile

import (
	"context"

	"github.com/google/uuid"
)

// Cache stores interest and preference profiles per user with independent
// TTLs. Implementations live in the infrastructure layer (Redis).
//
// Cache failures are non-fatal everywhere: extraction proceeds from the
// signal store and the result is simply not cached for that call.
type Cache interface {
	// Interests returns the cached interest profile or ErrProfileMiss.
	Interests(ctx context.Context, userID uuid.UUID) (*InterestProfile, error)

	// StoreInterests writes an interest profile with the interests TTL.
	StoreInterests(ctx context.Context, p *InterestProfile) error

	// Preferences returns the cached preference profile or ErrProfileMiss.
	Preferences(ctx context.Context, userID uuid.UUID) (*PreferenceProfile, error)

	// StorePreferences writes a preference profile with the preferences TTL.
	StorePreferences(ctx context.Context, p *PreferenceProfile) error
}
