package database

import "time"

// Article is a persisted feed item with its storage-assigned identity.
type Article struct {
	ID          int64
	Title       string
	Body        string
	ImageURL    string
	URL         string
	Published   string
	PublishedAt *time.Time
	Duration    string
	Source      string
	Category    string
	CreatedAt   time.Time
}
