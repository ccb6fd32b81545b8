package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"

	"github.com/ykarpov/newshound/app/feed"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists articles in PostgreSQL via lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the PostgreSQL instance described by the
// individual connection parameters.
func NewPostgresStore(host, port, user, password, dbname string) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Init() error {
	driver, err := pgmigrate.WithInstance(s.db, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}
	return runMigrations(driver, "migrations/postgres", "postgres")
}

func (s *PostgresStore) InsertArticles(ctx context.Context, items []feed.Item) (InsertResult, error) {
	var result InsertResult

	for _, item := range items {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO articles (title, body, image_url, url, published, published_at, duration, source, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (url) DO UPDATE SET
				title = EXCLUDED.title,
				body = EXCLUDED.body,
				image_url = EXCLUDED.image_url,
				published = EXCLUDED.published,
				published_at = EXCLUDED.published_at,
				duration = EXCLUDED.duration,
				source = EXCLUDED.source,
				category = EXCLUDED.category
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

func (s *PostgresStore) GetArticleByURL(ctx context.Context, url string) (*Article, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM articles WHERE url = $1`, url)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by url: %w", err)
	}
	return article, nil
}

func (s *PostgresStore) Search(ctx context.Context, term string, limit int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM articles
		WHERE title ILIKE '%' || $1 || '%' OR body ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2
	`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func (s *PostgresStore) CountArticles(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
