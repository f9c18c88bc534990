package feed

import "errors"

var (
	// ErrInvalidFeedType is returned for feed type strings outside the
	// known set. A caller contract violation: the request is rejected,
	// never retried or degraded.
	ErrInvalidFeedType = errors.New("feed: invalid feed type")

	// ErrCacheMiss is returned when no cached feed or profile exists for
	// the requested key. Treated as a signal to regenerate, not a failure.
	ErrCacheMiss = errors.New("feed: cache miss")

	// ErrCacheUnavailable is returned when the aggregate cache cannot be
	// reached. Recoverable: the caller proceeds without caching.
	ErrCacheUnavailable = errors.New("feed: cache unavailable")

	// ErrFeedExhausted is returned when all fallback states failed and no
	// feed could be produced at all.
	ErrFeedExhausted = errors.New("feed: all feed sources failed")
)
