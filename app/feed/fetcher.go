package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/ykarpov/newshound/app/cfg"
	"github.com/ykarpov/newshound/app/sources"
)

// displayTimeLayout is the format used for the human-readable published date.
const displayTimeLayout = "Jan 2, 2006 15:04 MST"

// FetchError is returned after all fetch attempts for a source are exhausted.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch feed %q: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves a feed document and normalizes its entries.
type Fetcher struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	stripper   *bluemonday.Policy
	userAgent  string
	maxRetries int
	retryDelay time.Duration
}

func NewFetcher(httpClient *http.Client) *Fetcher {
	c := cfg.Get()

	return &Fetcher{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		stripper:   bluemonday.StrictPolicy(),
		userAgent:  c.UserAgent,
		maxRetries: c.FetchRetries,
		retryDelay: time.Duration(c.FetchRetryDelay) * time.Second,
	}
}

// Fetch retrieves source and returns its normalized items. Failed attempts
// are retried with a backoff of retryDelay multiplied by the attempt number;
// when all attempts fail a *FetchError carrying the source name is returned.
func (f *Fetcher) Fetch(ctx context.Context, src sources.Source) ([]Item, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		items, err := f.fetchOnce(ctx, src)
		if err == nil {
			return items, nil
		}
		lastErr = err

		if attempt < f.maxRetries {
			delay := f.retryDelay * time.Duration(attempt)
			slog.Warn("Feed fetch failed, retrying",
				"source", src.Name, "attempt", attempt, "delay", delay.String(), "error", err)

			select {
			case <-ctx.Done():
				return nil, &FetchError{Source: src.Name, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
	}

	return nil, &FetchError{Source: src.Name, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, src sources.Source) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	parsed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		item, ok := f.normalizeEntry(entry, src)
		if !ok {
			// A single malformed entry never fails the whole feed.
			slog.Debug("Skipping malformed feed entry", "source", src.Name, "link", entry.Link)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// normalizeEntry maps one parsed feed entry to an Item. Entries missing a
// title or link are reported as not ok and dropped.
func (f *Fetcher) normalizeEntry(entry *gofeed.Item, src sources.Source) (Item, bool) {
	item := Item{
		Title:    strings.TrimSpace(entry.Title),
		URL:      strings.TrimSpace(entry.Link),
		Body:     f.extractBody(entry),
		ImageURL: extractImage(entry),
		Duration: extractDuration(entry),
		Source:   src.Name,
		Category: src.Category,
	}

	if !item.Valid() {
		return Item{}, false
	}

	if entry.PublishedParsed != nil {
		published := entry.PublishedParsed.UTC()
		item.PublishedAt = &published
		item.Published = published.Format(displayTimeLayout)
	} else {
		// Keep the raw value verbatim; a bad date never fails the item.
		item.Published = strings.TrimSpace(entry.Published)
	}

	return item, true
}

// extractBody picks the item text with a fixed preference order:
// short subtitle snippet, then description, then the stripped full content.
func (f *Fetcher) extractBody(entry *gofeed.Item) string {
	if entry.ITunesExt != nil {
		if snippet := strings.TrimSpace(entry.ITunesExt.Subtitle); snippet != "" {
			return snippet
		}
	}
	if desc := strings.TrimSpace(entry.Description); desc != "" {
		return desc
	}
	if content := strings.TrimSpace(entry.Content); content != "" {
		return strings.TrimSpace(f.stripper.Sanitize(content))
	}
	return ""
}

// extractImage picks the item image with a fixed preference order:
// media:content, media:thumbnail, itunes:image, then the first enclosure.
func extractImage(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}

	if entry.ITunesExt != nil && entry.ITunesExt.Image != "" {
		return entry.ITunesExt.Image
	}

	for _, enclosure := range entry.Enclosures {
		if enclosure != nil && enclosure.URL != "" {
			return enclosure.URL
		}
	}

	return ""
}

func extractDuration(entry *gofeed.Item) string {
	if entry.ITunesExt != nil {
		return entry.ITunesExt.Duration
	}
	return ""
}
