package database

import (
	"context"

	"github.com/ykarpov/newshound/app/feed"
)

// InsertResult reports aggregate counts for one batch insert.
type InsertResult struct {
	Inserted int
	Failed   int
}

// Store is the persistence contract the scraping core depends on. Backends
// are selected at construction time; the core calls the store from one
// logical flow at a time and relies on the backend to serialize writes.
type Store interface {
	// Init prepares the schema. Idempotent.
	Init() error

	// InsertArticles upserts items by URL. Individual row failures are
	// counted in the result but never abort the batch.
	InsertArticles(ctx context.Context, items []feed.Item) (InsertResult, error)

	// GetArticleByURL returns the stored article with the exact URL, or
	// nil when none exists.
	GetArticleByURL(ctx context.Context, url string) (*Article, error)

	// Search returns articles whose title or body contains term.
	Search(ctx context.Context, term string, limit int) ([]Article, error)

	// CountArticles returns the total number of stored articles.
	CountArticles(ctx context.Context) (int, error)

	Close() error
}
