package feed

import (
	"strings"
	"time"
)

// Item is a normalized feed entry before persistence.
type Item struct {
	Title       string
	Body        string
	ImageURL    string
	URL         string
	Published   string     // display-formatted date, or the raw feed value when unparsable
	PublishedAt *time.Time // nil when the feed date was missing or unparsable
	Duration    string     // media duration for podcast-style feeds
	Source      string
	Category    string
}

// Valid reports whether the item carries the minimum required fields.
// Invalid items are dropped right after parsing and never reach later stages.
func (i Item) Valid() bool {
	return strings.TrimSpace(i.Title) != "" && i.URL != ""
}
