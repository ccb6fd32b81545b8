package database

import (
	"database/sql"
	"fmt"
)

const selectColumns = `
	SELECT id, title, COALESCE(body, ''), COALESCE(image_url, ''), url,
	       COALESCE(published, ''), published_at, COALESCE(duration, ''),
	       source, category, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var publishedAt sql.NullTime

	err := row.Scan(
		&article.ID, &article.Title, &article.Body, &article.ImageURL,
		&article.URL, &article.Published, &publishedAt, &article.Duration,
		&article.Source, &article.Category, &article.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		t := publishedAt.Time
		article.PublishedAt = &t
	}

	return &article, nil
}

func collectArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}
