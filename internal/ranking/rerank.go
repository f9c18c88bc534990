package ranking

import (
	"github.com/bazario/bazario-feed/internal/domain/feed"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIVERSITY RE-RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Interleave rebuilds a scored ranking so posts and products alternate,
// preventing a wall of one content type at the top of the feed.
//
// The input must already be sorted best first. Each type keeps its own
// internal order; at every position the next item comes from whichever
// type's head scores higher, but the same type never runs more than twice
// in a row while the other type still has items. Leftovers of the longer
// partition append at the end. The result is capped at maxSize.
func Interleave(refs []feed.FeedItemRef, maxSize int) []feed.FeedItemRef {
	if maxSize <= 0 || len(refs) == 0 {
		return nil
	}

	posts := make([]feed.FeedItemRef, 0, len(refs))
	products := make([]feed.FeedItemRef, 0, len(refs))
	for _, r := range refs {
		if r.Type == feed.ContentTypeProduct {
			products = append(products, r)
		} else {
			posts = append(posts, r)
		}
	}

	out := make([]feed.FeedItemRef, 0, min(len(refs), maxSize))
	var pi, qi int // heads of posts, products
	runType := feed.ContentType("")
	runLen := 0

	for len(out) < maxSize && (pi < len(posts) || qi < len(products)) {
		var next feed.FeedItemRef

		switch {
		case pi >= len(posts):
			next = products[qi]
			qi++
		case qi >= len(products):
			next = posts[pi]
			pi++
		default:
			takePost := posts[pi].Score >= products[qi].Score
			// Break a run of two by forcing the other type.
			if runLen >= 2 {
				takePost = runType != feed.ContentTypePost
			}
			if takePost {
				next = posts[pi]
				pi++
			} else {
				next = products[qi]
				qi++
			}
		}

		if next.Type == runType {
			runLen++
		} else {
			runType = next.Type
			runLen = 1
		}
		out = append(out, next)
	}

	return out
}
