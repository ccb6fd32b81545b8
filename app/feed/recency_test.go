package feed

import (
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestFilterRecent_KeepsItemsWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	items := []Item{
		{Title: "Fresh", URL: "https://example.com/fresh", PublishedAt: timePtr(now.Add(-30 * time.Minute))},
		{Title: "Boundary", URL: "https://example.com/boundary", PublishedAt: timePtr(now.Add(-60 * time.Minute))},
		{Title: "Stale", URL: "https://example.com/stale", PublishedAt: timePtr(now.Add(-61 * time.Minute))},
	}

	kept, stats := FilterRecent(items, now, time.Hour, false)

	if len(kept) != 2 {
		t.Fatalf("Expected 2 kept items, got %d", len(kept))
	}
	if kept[0].Title != "Fresh" || kept[1].Title != "Boundary" {
		t.Errorf("Unexpected kept items: %v", kept)
	}
	if stats.Kept != 2 {
		t.Errorf("Expected Kept=2, got %d", stats.Kept)
	}
	if stats.DroppedOld != 1 {
		t.Errorf("Expected DroppedOld=1, got %d", stats.DroppedOld)
	}
}

func TestFilterRecent_UndatedDroppedByDefault(t *testing.T) {
	now := time.Now()

	items := []Item{
		{Title: "Undated", URL: "https://example.com/undated"},
	}

	kept, stats := FilterRecent(items, now, time.Hour, false)

	if len(kept) != 0 {
		t.Fatalf("Expected undated item to be dropped, got %d items", len(kept))
	}
	if stats.KeptUndated != 0 {
		t.Errorf("Expected KeptUndated=0, got %d", stats.KeptUndated)
	}
}

func TestFilterRecent_UndatedKeptWithFallback(t *testing.T) {
	now := time.Now()

	items := []Item{
		{Title: "Undated", URL: "https://example.com/undated"},
		{Title: "Stale", URL: "https://example.com/stale", PublishedAt: timePtr(now.Add(-2 * time.Hour))},
	}

	kept, stats := FilterRecent(items, now, time.Hour, true)

	if len(kept) != 1 {
		t.Fatalf("Expected 1 kept item, got %d", len(kept))
	}
	if kept[0].Title != "Undated" {
		t.Errorf("Expected the undated item to survive, got %q", kept[0].Title)
	}
	if stats.KeptUndated != 1 {
		t.Errorf("Expected KeptUndated=1, got %d", stats.KeptUndated)
	}
	if stats.DroppedOld != 1 {
		t.Errorf("Expected DroppedOld=1, got %d", stats.DroppedOld)
	}
}

func TestFilterRecent_EmptyInput(t *testing.T) {
	kept, stats := FilterRecent(nil, time.Now(), time.Hour, true)

	if len(kept) != 0 {
		t.Errorf("Expected no items, got %d", len(kept))
	}
	if stats != (RecencyStats{}) {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
}
