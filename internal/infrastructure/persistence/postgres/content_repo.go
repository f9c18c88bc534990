package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bazario/bazario-feed/internal/domain/feed"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ContentRepository implements feed.ContentRepository against the posts and
// products tables. All candidate queries return only active rows; batch
// hydration uses one ANY($1) lookup per content type.
type ContentRepository struct {
	conn *Connection
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(conn *Connection) *ContentRepository {
	return &ContentRepository{conn: conn}
}

// candidate column lists shared by the query helpers.
const (
	postCandidateCols = `
		id, author_id, category_ids, like_count + view_count, created_at`

	productCandidateCols = `
		id, seller_id, category_ids, like_count + view_count + purchase_count,
		created_at, price, rating, seller_verified`
)

// ─────────────────────────────────────────────────────────────────────────────
// CANDIDATE QUERIES
// ─────────────────────────────────────────────────────────────────────────────

// RecentByAuthors returns recent active content from the given authors,
// newest first, posts and products combined.
func (r *ContentRepository) RecentByAuthors(ctx context.Context, authorIDs []uuid.UUID, since time.Time, limit int) ([]feed.Candidate, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	posts, err := r.queryPostCandidates(ctx, `
		SELECT`+postCandidateCols+`
		FROM posts
		WHERE author_id = ANY($1) AND created_at >= $2 AND active
		ORDER BY created_at DESC
		LIMIT $3
	`, authorIDs, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts by authors: %w", err)
	}

	products, err := r.queryProductCandidates(ctx, `
		SELECT`+productCandidateCols+`
		FROM products
		WHERE seller_id = ANY($1) AND created_at >= $2 AND active
		ORDER BY created_at DESC
		LIMIT $3
	`, authorIDs, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by authors: %w", err)
	}

	return append(posts, products...), nil
}

// ByIDs loads candidate data for a set of content ids of one type.
// Missing or deactivated ids are silently absent from the result.
func (r *ContentRepository) ByIDs(ctx context.Context, contentType feed.ContentType, ids []uuid.UUID) ([]feed.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	switch contentType {
	case feed.ContentTypePost:
		return r.queryPostCandidates(ctx, `
			SELECT`+postCandidateCols+`
			FROM posts
			WHERE id = ANY($1) AND active
		`, ids)
	case feed.ContentTypeProduct:
		return r.queryProductCandidates(ctx, `
			SELECT`+productCandidateCols+`
			FROM products
			WHERE id = ANY($1) AND active
		`, ids)
	default:
		return nil, fmt.Errorf("content repository: unknown content type %q", contentType)
	}
}

// Discovery returns active content matching the given categories and, for
// products, the price band. A nil category list matches broadly.
func (r *ContentRepository) Discovery(ctx context.Context, categoryIDs []uuid.UUID, minPrice, maxPrice float64, limit int) ([]feed.Candidate, error) {
	postFilter := ""
	productFilter := ""
	if len(categoryIDs) > 0 {
		postFilter = " AND category_ids && $2"
		productFilter = " AND category_ids && $4"
	}

	postArgs := []any{limit}
	if len(categoryIDs) > 0 {
		postArgs = append(postArgs, categoryIDs)
	}
	posts, err := r.queryPostCandidates(ctx, `
		SELECT`+postCandidateCols+`
		FROM posts
		WHERE active`+postFilter+`
		ORDER BY like_count + view_count DESC, created_at DESC
		LIMIT $1
	`, postArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query discovery posts: %w", err)
	}

	productArgs := []any{limit, minPrice, maxPrice}
	if len(categoryIDs) > 0 {
		productArgs = append(productArgs, categoryIDs)
	}
	products, err := r.queryProductCandidates(ctx, `
		SELECT`+productCandidateCols+`
		FROM products
		WHERE active AND ($3 <= 0 OR price BETWEEN $2 AND $3)`+productFilter+`
		ORDER BY like_count + view_count + purchase_count DESC, created_at DESC
		LIMIT $1
	`, productArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query discovery products: %w", err)
	}

	return append(posts, products...), nil
}

// CommunityRecent returns recent content scoped to one community.
func (r *ContentRepository) CommunityRecent(ctx context.Context, communityID uuid.UUID, limit int) ([]feed.Candidate, error) {
	posts, err := r.queryPostCandidates(ctx, `
		SELECT`+postCandidateCols+`
		FROM posts
		WHERE community_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT $2
	`, communityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query community posts: %w", err)
	}

	products, err := r.queryProductCandidates(ctx, `
		SELECT`+productCandidateCols+`
		FROM products
		WHERE community_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT $2
	`, communityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query community products: %w", err)
	}

	return append(posts, products...), nil
}

// RecentActive returns the most recent active content of both types.
// This is the last-resort feed source when both the cache and the
// trending store are unreachable.
func (r *ContentRepository) RecentActive(ctx context.Context, limit int) ([]feed.Candidate, error) {
	posts, err := r.queryPostCandidates(ctx, `
		SELECT`+postCandidateCols+`
		FROM posts
		WHERE active
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}

	products, err := r.queryProductCandidates(ctx, `
		SELECT`+productCandidateCols+`
		FROM products
		WHERE active
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent products: %w", err)
	}

	return append(posts, products...), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// BATCH HYDRATION
// ─────────────────────────────────────────────────────────────────────────────

// PostsByIDs hydrates posts in one batch lookup. Deleted or deactivated
// ids are simply absent from the map.
func (r *ContentRepository) PostsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*feed.Post, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*feed.Post{}, nil
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, author_id, title, body, category_ids,
		       like_count, view_count, created_at, active
		FROM posts
		WHERE id = ANY($1) AND active
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load posts: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*feed.Post, len(ids))
	for rows.Next() {
		var p feed.Post
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.CategoryIDs,
			&p.LikeCount, &p.ViewCount, &p.CreatedAt, &p.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		result[p.ID] = &p
	}
	return result, rows.Err()
}

// ProductsByIDs hydrates products in one batch lookup.
func (r *ContentRepository) ProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*feed.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*feed.Product{}, nil
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, seller_id, title, description, price, category_ids,
		       like_count, view_count, purchase_count, rating,
		       seller_verified, created_at, active
		FROM products
		WHERE id = ANY($1) AND active
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load products: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*feed.Product, len(ids))
	for rows.Next() {
		var p feed.Product
		if err := rows.Scan(
			&p.ID, &p.SellerID, &p.Title, &p.Description, &p.Price, &p.CategoryIDs,
			&p.LikeCount, &p.ViewCount, &p.PurchaseCount, &p.Rating,
			&p.SellerVerified, &p.CreatedAt, &p.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result[p.ID] = &p
	}
	return result, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// SCAN HELPERS
// ─────────────────────────────────────────────────────────────────────────────

func (r *ContentRepository) queryPostCandidates(ctx context.Context, sql string, args ...any) ([]feed.Candidate, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows, feed.ContentTypePost)
}

func (r *ContentRepository) queryProductCandidates(ctx context.Context, sql string, args ...any) ([]feed.Candidate, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows, feed.ContentTypeProduct)
}

func scanCandidates(rows pgx.Rows, contentType feed.ContentType) ([]feed.Candidate, error) {
	var out []feed.Candidate
	for rows.Next() {
		c := feed.Candidate{Type: contentType}
		var err error
		if contentType == feed.ContentTypeProduct {
			err = rows.Scan(
				&c.ID, &c.AuthorID, &c.CategoryIDs, &c.EngagementCount,
				&c.CreatedAt, &c.Price, &c.Rating, &c.SellerVerified,
			)
		} else {
			err = rows.Scan(
				&c.ID, &c.AuthorID, &c.CategoryIDs, &c.EngagementCount, &c.CreatedAt,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
