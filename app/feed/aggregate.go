package feed

import (
	"sort"
	"strings"
	"time"
)

// Aggregate merges per-source results into a single cycle batch: items with
// an identical lowercase(title)+"-"+url key are collapsed (first occurrence
// wins) and the remainder is sorted by publication time, newest first.
// Items without a parsable date sort as the oldest.
func Aggregate(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	merged := make([]Item, 0, len(items))

	for _, item := range items {
		key := strings.ToLower(item.Title) + "-" + item.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, item)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return publishedOrZero(merged[i]).After(publishedOrZero(merged[j]))
	})

	return merged
}

func publishedOrZero(item Item) time.Time {
	if item.PublishedAt == nil {
		return time.Time{}
	}
	return *item.PublishedAt
}
