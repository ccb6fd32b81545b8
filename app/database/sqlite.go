package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"

	"github.com/ykarpov/newshound/app/feed"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists articles in a local SQLite file via modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway, and one shared
	// handle avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Init() error {
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	return runMigrations(driver, "migrations/sqlite", "sqlite")
}

func (s *SQLiteStore) InsertArticles(ctx context.Context, items []feed.Item) (InsertResult, error) {
	var result InsertResult

	for _, item := range items {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO articles (title, body, image_url, url, published, published_at, duration, source, category)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET
				title = excluded.title,
				body = excluded.body,
				image_url = excluded.image_url,
				published = excluded.published,
				published_at = excluded.published_at,
				duration = excluded.duration,
				source = excluded.source,
				category = excluded.category
		`, item.Title, item.Body, item.ImageURL, item.URL, item.Published,
			item.PublishedAt, item.Duration, item.Source, item.Category)

		if err != nil {
			result.Failed++
			slog.Warn("Failed to store article", "url", item.URL, "error", err)
			continue
		}
		result.Inserted++
	}

	return result, nil
}

func (s *SQLiteStore) GetArticleByURL(ctx context.Context, url string) (*Article, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM articles WHERE url = ?`, url)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by url: %w", err)
	}
	return article, nil
}

func (s *SQLiteStore) Search(ctx context.Context, term string, limit int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM articles
		WHERE title LIKE '%' || ? || '%' OR body LIKE '%' || ? || '%'
		ORDER BY created_at DESC
		LIMIT ?
	`, term, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func (s *SQLiteStore) CountArticles(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
