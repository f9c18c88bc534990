package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bazario/bazario-feed/internal/domain/feed"
)

// ══════════════════════════════════════════════════════════════════════════════
// SIGNAL REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SignalRepository implements feed.SignalRepository. It reads the follow
// graph and the engagement event log written by the social service.
type SignalRepository struct {
	conn *Connection
}

// NewSignalRepository creates a new SignalRepository.
func NewSignalRepository(conn *Connection) *SignalRepository {
	return &SignalRepository{conn: conn}
}

// FollowedAccounts returns the accounts the user follows.
func (r *SignalRepository) FollowedAccounts(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT followee_id
		FROM follows
		WHERE follower_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query followed accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan followee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EngagedAccounts returns authors whose content the user recently liked,
// most recently engaged first. Duplicate authors collapse to their most
// recent engagement.
func (r *SignalRepository) EngagedAccounts(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT author_id
		FROM (
			SELECT e.author_id, MAX(e.occurred_at) AS last_engaged
			FROM engagements e
			WHERE e.user_id = $1 AND e.signal = $2
			GROUP BY e.author_id
		) recent
		ORDER BY last_engaged DESC
		LIMIT $3
	`, userID, string(feed.SignalLike), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query engaged accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan engaged author id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecentEngagements returns the user's most recent events of one signal
// type, newest first, bounded by limit. Category ids and price are
// denormalized onto the event row at write time so profile extraction
// needs no content join.
func (r *SignalRepository) RecentEngagements(ctx context.Context, userID uuid.UUID, signal feed.SignalType, limit int) ([]feed.Engagement, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT content_id, content_type, category_ids, price, occurred_at
		FROM engagements
		WHERE user_id = $1 AND signal = $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`, userID, string(signal), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent engagements: %w", err)
	}
	defer rows.Close()

	var events []feed.Engagement
	for rows.Next() {
		e := feed.Engagement{Signal: signal}
		var contentType string
		if err := rows.Scan(&e.ContentID, &contentType, &e.CategoryIDs, &e.Price, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan engagement: %w", err)
		}
		e.ContentType = feed.ContentType(contentType)
		events = append(events, e)
	}
	return events, rows.Err()
}

// IsCommunityMember reports whether the user may read a niche feed.
func (r *SignalRepository) IsCommunityMember(ctx context.Context, userID, communityID uuid.UUID) (bool, error) {
	var member bool
	err := r.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM community_members
			WHERE user_id = $1 AND community_id = $2
		)
	`, userID, communityID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("failed to check community membership: %w", err)
	}
	return member, nil
}
