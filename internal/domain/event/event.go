// Package event contains the domain events the feed engine consumes and
// the bus contracts connecting it to the rest of the marketplace.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/feed"
)

// Type represents the type of domain event.
type Type string

// Event types published by the catalog and social services. Each one
// affects either the popularity rankings or a user's cached feed.
const (
	// Engagement events
	EventContentLiked     Type = "content.liked"
	EventContentViewed    Type = "content.viewed"
	EventContentPurchased Type = "content.purchased"

	// Follow-graph events
	EventUserFollowed   Type = "user.followed"
	EventUserUnfollowed Type = "user.unfollowed"

	// Content lifecycle events
	EventContentCreated     Type = "content.created"
	EventContentDeactivated Type = "content.deactivated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() Type

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType implements Event.
func (e BaseEvent) EventType() Type { return e.Type }

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a new base event stamped now.
func NewBaseEvent(eventType Type) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: time.Now().UTC()}
}

// EngagementEvent is emitted when a user likes, views, or purchases
// content.
type EngagementEvent struct {
	BaseEvent
	UserID      uuid.UUID        `json:"user_id"`
	ContentID   uuid.UUID        `json:"content_id"`
	ContentType feed.ContentType `json:"content_type"`
}

// FollowEvent is emitted when a user follows or unfollows an account.
type FollowEvent struct {
	BaseEvent
	FollowerID uuid.UUID `json:"follower_id"`
	FolloweeID uuid.UUID `json:"followee_id"`
}

// ContentEvent is emitted on content lifecycle changes.
type ContentEvent struct {
	BaseEvent
	ContentID   uuid.UUID        `json:"content_id"`
	ContentType feed.ContentType `json:"content_type"`
	AuthorID    uuid.UUID        `json:"author_id"`
}

// Handler processes one event. Handlers must be safe for concurrent use.
type Handler func(event Event) error

// Bus connects event producers to handlers.
type Bus interface {
	// Publish delivers an event to all handlers subscribed to its type.
	Publish(event Event) error

	// Subscribe registers a handler for an event type.
	Subscribe(eventType Type, handler Handler)

	// Close stops delivery and waits for in-flight handlers.
	Close() error
}
