// Package dedup decides whether an incoming item already exists in storage.
package dedup

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ykarpov/newshound/app/database"
	"github.com/ykarpov/newshound/app/feed"
)

const (
	// minBodyLength gates the content-similarity strategy: short bodies
	// produce too few tokens for a meaningful comparison.
	minBodyLength = 50
	// phraseWordCount is how many leading body words form the search phrase.
	phraseWordCount = 20
	// similarityThreshold is the Jaccard score above which two titles from
	// the same source count as the same story.
	similarityThreshold = 0.8

	searchLimit = 20
)

var foldCaser = cases.Fold()

// Resolver checks incoming items against persisted history.
type Resolver struct {
	store database.Store
}

func NewResolver(store database.Store) *Resolver {
	return &Resolver{store: store}
}

// Exists reports whether item is already stored, using three escalating
// strategies: exact URL match, case-insensitive title plus source match, and
// content-phrase search with Jaccard title similarity. The first positive
// match wins. Storage errors are logged and treated as "does not exist":
// suppressing a genuinely new article is worse than re-storing one, and the
// URL uniqueness constraint absorbs true re-inserts.
func (r *Resolver) Exists(ctx context.Context, item feed.Item) bool {
	if r.existsByURL(ctx, item) {
		return true
	}
	if r.existsByTitle(ctx, item) {
		return true
	}
	return r.existsBySimilarity(ctx, item)
}

func (r *Resolver) existsByURL(ctx context.Context, item feed.Item) bool {
	article, err := r.store.GetArticleByURL(ctx, item.URL)
	if err != nil {
		slog.Warn("Duplicate check failed, assuming new", "strategy", "url", "url", item.URL, "error", err)
		return false
	}
	return article != nil
}

func (r *Resolver) existsByTitle(ctx context.Context, item feed.Item) bool {
	articles, err := r.store.Search(ctx, item.Title, searchLimit)
	if err != nil {
		slog.Warn("Duplicate check failed, assuming new", "strategy", "title", "title", item.Title, "error", err)
		return false
	}

	title := foldCaser.String(item.Title)
	for _, article := range articles {
		if article.Source == item.Source && foldCaser.String(article.Title) == title {
			return true
		}
	}
	return false
}

func (r *Resolver) existsBySimilarity(ctx context.Context, item feed.Item) bool {
	if len(item.Body) <= minBodyLength {
		return false
	}

	phrase := firstWords(item.Body, phraseWordCount)
	if phrase == "" {
		return false
	}

	articles, err := r.store.Search(ctx, phrase, searchLimit)
	if err != nil {
		slog.Warn("Duplicate check failed, assuming new", "strategy", "similarity", "title", item.Title, "error", err)
		return false
	}

	for _, article := range articles {
		if article.Source != item.Source {
			continue
		}
		if jaccardSimilarity(item.Title, article.Title) > similarityThreshold {
			slog.Debug("Content-similarity duplicate",
				"title", item.Title, "existing", article.Title, "source", item.Source)
			return true
		}
	}
	return false
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
