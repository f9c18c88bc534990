package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/event"
	"github.com/bazario/bazario-feed/internal/domain/feed"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEED EVENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// FeedEngine is the slice of the feed service the handlers drive.
type FeedEngine interface {
	BumpTrending(ctx context.Context, contentID uuid.UUID, contentType feed.ContentType, signal feed.SignalType) error
	RemoveTrending(ctx context.Context, contentID uuid.UUID, contentType feed.ContentType) error
	InvalidateUserFeed(ctx context.Context, userID uuid.UUID) error
}

// handlerTimeout bounds each handler's downstream calls so a slow Redis
// cannot pile up bus workers.
const handlerTimeout = 5 * time.Second

// RegisterFeedHandlers subscribes the feed engine's reactions to the
// marketplace event stream:
//
//   - engagement events bump the trending rankings
//   - follow-graph changes invalidate the follower's cached feeds
//   - likes and purchases also invalidate the actor's feeds, since they
//     shift the profiles feeds are built from
//   - a new post or product invalidates the author's feeds so their own
//     content shows up on the next read
//   - deactivated content is pulled out of the trending rankings
func RegisterFeedHandlers(bus event.Bus, engine FeedEngine) {
	bus.Subscribe(event.EventContentViewed, engagementHandler(engine, feed.SignalView, false))
	bus.Subscribe(event.EventContentLiked, engagementHandler(engine, feed.SignalLike, true))
	bus.Subscribe(event.EventContentPurchased, engagementHandler(engine, feed.SignalPurchase, true))

	bus.Subscribe(event.EventUserFollowed, followHandler(engine))
	bus.Subscribe(event.EventUserUnfollowed, followHandler(engine))

	bus.Subscribe(event.EventContentCreated, contentCreatedHandler(engine))
	bus.Subscribe(event.EventContentDeactivated, contentDeactivatedHandler(engine))
}

// engagementHandler bumps trending and, for profile-shifting signals,
// invalidates the actor's cache.
func engagementHandler(engine FeedEngine, signal feed.SignalType, invalidate bool) event.Handler {
	return func(ev event.Event) error {
		e, ok := ev.(event.EngagementEvent)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", ev.EventType())
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		if err := engine.BumpTrending(ctx, e.ContentID, e.ContentType, signal); err != nil {
			return fmt.Errorf("trending bump failed: %w", err)
		}
		if invalidate {
			if err := engine.InvalidateUserFeed(ctx, e.UserID); err != nil {
				return fmt.Errorf("feed invalidation failed: %w", err)
			}
		}
		return nil
	}
}

// contentCreatedHandler invalidates the author's cached feeds so their
// own new post or listing appears on the next read instead of after the
// cache TTL.
func contentCreatedHandler(engine FeedEngine) event.Handler {
	return func(ev event.Event) error {
		e, ok := ev.(event.ContentEvent)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", ev.EventType())
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		if err := engine.InvalidateUserFeed(ctx, e.AuthorID); err != nil {
			return fmt.Errorf("feed invalidation failed: %w", err)
		}
		return nil
	}
}

// contentDeactivatedHandler pulls the content out of trending and
// invalidates the author's feeds. Cached references elsewhere are
// dropped by hydration.
func contentDeactivatedHandler(engine FeedEngine) event.Handler {
	return func(ev event.Event) error {
		e, ok := ev.(event.ContentEvent)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", ev.EventType())
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		if err := engine.RemoveTrending(ctx, e.ContentID, e.ContentType); err != nil {
			return fmt.Errorf("trending removal failed: %w", err)
		}
		if err := engine.InvalidateUserFeed(ctx, e.AuthorID); err != nil {
			return fmt.Errorf("feed invalidation failed: %w", err)
		}
		return nil
	}
}

// followHandler invalidates the follower's feeds; the followee's feeds
// are unaffected by who follows them.
func followHandler(engine FeedEngine) event.Handler {
	return func(ev event.Event) error {
		e, ok := ev.(event.FollowEvent)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", ev.EventType())
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		if err := engine.InvalidateUserFeed(ctx, e.FollowerID); err != nil {
			return fmt.Errorf("feed invalidation failed: %w", err)
		}
		return nil
	}
}
