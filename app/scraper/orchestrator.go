// Package scraper drives the periodic fetch, filter, dedup, persist cycle.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ykarpov/newshound/app/cfg"
	"github.com/ykarpov/newshound/app/database"
	"github.com/ykarpov/newshound/app/feed"
	"github.com/ykarpov/newshound/app/sources"
)

// ErrConsecutiveFailures is delivered on Done() when the configured number
// of consecutive failed cycles is reached. The host is expected to stop the
// process; the orchestrator schedules no further cycles.
var ErrConsecutiveFailures = errors.New("too many consecutive cycle failures")

// State of the orchestrator.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Stats is the orchestrator's cycle bookkeeping. Snapshots are returned by
// GetStats; the struct is never persisted.
type Stats struct {
	State              State
	CycleCount         int
	TotalArticlesAdded int
	ConsecutiveErrors  int
	LastCycleStartedAt *time.Time
	LastSuccessAt      *time.Time
}

// Fetcher retrieves normalized items for one source.
type Fetcher interface {
	Fetch(ctx context.Context, src sources.Source) ([]feed.Item, error)
}

// Resolver reports whether an item already exists in storage.
type Resolver interface {
	Exists(ctx context.Context, item feed.Item) bool
}

// Announcer publishes newly persisted items. Optional; failures are logged
// and never fail a cycle.
type Announcer interface {
	Announce(ctx context.Context, items []feed.Item) error
}

// Orchestrator runs scrape cycles over a fixed source registry.
type Orchestrator struct {
	sources   []sources.Source
	fetcher   Fetcher
	resolver  Resolver
	store     database.Store
	announcer Announcer

	maxAge         time.Duration
	includeUndated bool
	cycleTimeout   time.Duration
	workerCount    int
	maxConsecutive int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan error

	mu    sync.RWMutex
	state State
	stats Stats
}

func NewOrchestrator(srcs []sources.Source, fetcher Fetcher, resolver Resolver,
	store database.Store, announcer Announcer) *Orchestrator {
	c := cfg.Get()
	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		sources:        srcs,
		fetcher:        fetcher,
		resolver:       resolver,
		store:          store,
		announcer:      announcer,
		maxAge:         time.Duration(c.MaxAgeMinutes) * time.Minute,
		includeUndated: c.IncludeUndated,
		cycleTimeout:   time.Duration(c.CycleTimeout) * time.Second,
		workerCount:    max(c.WorkerCount, 1),
		maxConsecutive: c.MaxConsecutiveErrors,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan error, 1),
		state:          StateIdle,
	}
}

// Start runs one cycle immediately and then one per ticker interval.
// Scheduling is fixed-rate measured from cycle start: the ticker fires at a
// constant rate regardless of cycle duration, but the loop runs cycles
// sequentially, so a tick arriving while a cycle is still running is dropped
// rather than overlapping it.
func (o *Orchestrator) Start(interval time.Duration) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if !o.runScheduled() {
			return
		}

		for {
			select {
			case <-o.ctx.Done():
				return
			case <-ticker.C:
				if !o.runScheduled() {
					return
				}
			}
		}
	}()
}

// runScheduled runs one cycle and reports whether scheduling should continue.
func (o *Orchestrator) runScheduled() bool {
	if err := o.RunOneCycle(o.ctx); err != nil {
		if errors.Is(err, ErrConsecutiveFailures) {
			return false
		}
		if o.ctx.Err() != nil {
			return false
		}
		slog.Error("Scrape cycle failed", "error", err)
	}
	return true
}

// Stop prevents any further cycles from starting and waits for an in-flight
// cycle to wind down. It does not cancel a cycle mid-stage.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
}

// Done delivers ErrConsecutiveFailures when the orchestrator gives up.
func (o *Orchestrator) Done() <-chan error {
	return o.done
}

// GetStats returns a snapshot of the cycle statistics.
func (o *Orchestrator) GetStats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	stats := o.stats
	stats.State = o.state
	return stats
}

// RunOneCycle executes one full fetch, filter, dedup, persist pass and
// updates the cycle statistics. A returned error means the cycle as a whole
// failed; per-source and per-item failures are absorbed and reported in the
// cycle summary instead.
func (o *Orchestrator) RunOneCycle(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateStopped {
		o.mu.Unlock()
		return ErrConsecutiveFailures
	}
	o.state = StateRunning
	startedAt := time.Now()
	o.stats.LastCycleStartedAt = &startedAt
	o.mu.Unlock()

	if o.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cycleTimeout)
		defer cancel()
	}

	added, err := o.runCycle(ctx)
	return o.finishCycle(added, err)
}

// finishCycle applies the end-of-cycle statistics update and decides whether
// the consecutive-failure threshold has been crossed.
func (o *Orchestrator) finishCycle(added int, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stats.CycleCount++
	o.stats.TotalArticlesAdded += added

	// A stop signal mid-cycle is not a cycle failure; deadline overruns are.
	if errors.Is(err, context.Canceled) {
		o.state = StateIdle
		return err
	}

	if err != nil {
		o.stats.ConsecutiveErrors++
		if o.stats.ConsecutiveErrors >= o.maxConsecutive {
			o.state = StateStopped
			o.cancel()
			select {
			case o.done <- ErrConsecutiveFailures:
			default:
			}
			slog.Error("Consecutive failure threshold reached, giving up",
				"failures", o.stats.ConsecutiveErrors, "threshold", o.maxConsecutive)
			return fmt.Errorf("%w: %v", ErrConsecutiveFailures, err)
		}
		o.state = StateIdle
		return err
	}

	o.stats.ConsecutiveErrors = 0
	now := time.Now()
	o.stats.LastSuccessAt = &now
	o.state = StateIdle
	return nil
}

func (o *Orchestrator) runCycle(ctx context.Context) (int, error) {
	start := time.Now()

	items, skipped, recency := o.fetchAll(ctx)
	batch := feed.Aggregate(items)

	newItems := make([]feed.Item, 0, len(batch))
	duplicates := 0
	for _, item := range batch {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("cycle deadline exceeded during duplicate resolution: %w", err)
		}
		if o.resolver.Exists(ctx, item) {
			duplicates++
			continue
		}
		newItems = append(newItems, item)
	}

	var result database.InsertResult
	if len(newItems) > 0 {
		var err error
		result, err = o.store.InsertArticles(ctx, newItems)
		if err != nil {
			return 0, fmt.Errorf("batch insert failed: %w", err)
		}
	}

	if o.announcer != nil && result.Inserted > 0 {
		if err := o.announcer.Announce(ctx, newItems); err != nil {
			slog.Warn("Failed to announce new articles", "count", len(newItems), "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return result.Inserted, fmt.Errorf("cycle deadline exceeded: %w", err)
	}

	slog.Info("Cycle completed",
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"sources", len(o.sources),
		"sources_skipped", skipped,
		"fetched", len(items)+recency.DroppedOld,
		"dropped_old", recency.DroppedOld,
		"kept_undated", recency.KeptUndated,
		"duplicates", duplicates,
		"new", result.Inserted,
		"insert_failures", result.Failed)

	return result.Inserted, nil
}

// fetchAll fetches every source with a bounded worker pool and applies the
// recency filter to each source's results. A failed source is logged and
// skipped; it never aborts the cycle.
func (o *Orchestrator) fetchAll(ctx context.Context) ([]feed.Item, int, feed.RecencyStats) {
	var (
		mu      sync.Mutex
		items   []feed.Item
		skipped int
		stats   feed.RecencyStats
	)

	sem := make(chan struct{}, o.workerCount)
	var wg sync.WaitGroup

	for _, src := range o.sources {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(src sources.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			fetched, err := o.fetcher.Fetch(ctx, src)
			if err != nil {
				slog.Warn("Source skipped", "source", src.Name, "error", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return
			}

			recent, srcStats := feed.FilterRecent(fetched, time.Now(), o.maxAge, o.includeUndated)

			mu.Lock()
			items = append(items, recent...)
			stats.Kept += srcStats.Kept
			stats.DroppedOld += srcStats.DroppedOld
			stats.KeptUndated += srcStats.KeptUndated
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return items, skipped, stats
}
