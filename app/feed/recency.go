package feed

import "time"

// RecencyStats reports how the filter classified the items it saw. The
// counts are advisory, used for end-of-cycle logging only.
type RecencyStats struct {
	Kept        int
	DroppedOld  int
	KeptUndated int
}

// FilterRecent keeps items published within maxAge of now. Items without a
// parsable publication date are kept only when includeUndated is set. The
// function is pure: it performs no I/O and depends only on its arguments.
func FilterRecent(items []Item, now time.Time, maxAge time.Duration, includeUndated bool) ([]Item, RecencyStats) {
	cutoff := now.Add(-maxAge)

	kept := make([]Item, 0, len(items))
	var stats RecencyStats

	for _, item := range items {
		if item.PublishedAt == nil {
			if includeUndated {
				stats.KeptUndated++
				kept = append(kept, item)
			} else {
				stats.DroppedOld++
			}
			continue
		}

		if item.PublishedAt.Before(cutoff) {
			stats.DroppedOld++
			continue
		}

		stats.Kept++
		kept = append(kept, item)
	}

	return kept, stats
}
