package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ykarpov/newshound/app/database"
	"github.com/ykarpov/newshound/app/dedup"
	"github.com/ykarpov/newshound/app/feed"
	"github.com/ykarpov/newshound/app/sources"
)

// stubFetcher serves canned per-source results.
type stubFetcher struct {
	mu      sync.Mutex
	items   map[string][]feed.Item
	errs    map[string]error
	fetches int
}

func (f *stubFetcher) Fetch(ctx context.Context, src sources.Source) ([]feed.Item, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	if err := f.errs[src.Name]; err != nil {
		return nil, err
	}
	return f.items[src.Name], nil
}

func (f *stubFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// memStore is an in-memory database.Store.
type memStore struct {
	mu        sync.Mutex
	articles  map[string]database.Article
	nextID    int64
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{articles: make(map[string]database.Article)}
}

func (m *memStore) seed(title, url, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.articles[url] = database.Article{ID: m.nextID, Title: title, URL: url, Source: source}
}

func (m *memStore) Init() error { return nil }

func (m *memStore) InsertArticles(ctx context.Context, items []feed.Item) (database.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return database.InsertResult{}, m.insertErr
	}

	var result database.InsertResult
	for _, item := range items {
		if existing, ok := m.articles[item.URL]; ok {
			existing.Title = item.Title
			existing.Body = item.Body
			m.articles[item.URL] = existing
		} else {
			m.nextID++
			m.articles[item.URL] = database.Article{
				ID: m.nextID, Title: item.Title, Body: item.Body,
				URL: item.URL, Source: item.Source, Category: item.Category,
			}
		}
		result.Inserted++
	}
	return result, nil
}

func (m *memStore) GetArticleByURL(ctx context.Context, url string) (*database.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if article, ok := m.articles[url]; ok {
		return &article, nil
	}
	return nil, nil
}

func (m *memStore) Search(ctx context.Context, term string, limit int) ([]database.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lower := strings.ToLower(term)
	var results []database.Article
	for _, article := range m.articles {
		if strings.Contains(strings.ToLower(article.Title), lower) ||
			strings.Contains(strings.ToLower(article.Body), lower) {
			results = append(results, article)
			if len(results) == limit {
				break
			}
		}
	}
	return results, nil
}

func (m *memStore) CountArticles(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.articles), nil
}

func (m *memStore) Close() error { return nil }

func newTestOrchestrator(srcs []sources.Source, fetcher Fetcher, resolver Resolver,
	store database.Store, maxConsecutive int) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		sources:        srcs,
		fetcher:        fetcher,
		resolver:       resolver,
		store:          store,
		maxAge:         time.Hour,
		workerCount:    2,
		maxConsecutive: maxConsecutive,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan error, 1),
		state:          StateIdle,
	}
}

func TestOrchestrator_RunOneCycle_EndToEnd(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-10 * time.Minute)
	stale := now.Add(-3 * time.Hour)

	srcs := []sources.Source{
		{Name: "Alpha", URL: "https://alpha.example.com/rss", Category: "general"},
		{Name: "Beta", URL: "https://beta.example.com/rss", Category: "general"},
		{Name: "Gamma", URL: "https://gamma.example.com/rss", Category: "general"},
	}

	fetcher := &stubFetcher{
		items: map[string][]feed.Item{
			"Alpha": {
				{Title: "Alpha Fresh", URL: "https://alpha.example.com/fresh", PublishedAt: &fresh, Source: "Alpha"},
				{Title: "Alpha Stale", URL: "https://alpha.example.com/stale", PublishedAt: &stale, Source: "Alpha"},
			},
			"Beta": {
				{Title: "Beta Story", URL: "https://beta.example.com/story", PublishedAt: &fresh, Source: "Beta"},
			},
			"Gamma": {
				{Title: "Gamma Rerun", URL: "https://gamma.example.com/rerun", PublishedAt: &fresh, Source: "Gamma"},
			},
		},
	}

	store := newMemStore()
	// Gamma's item is already persisted from an earlier cycle.
	store.seed("Gamma Rerun", "https://gamma.example.com/rerun", "Gamma")

	o := newTestOrchestrator(srcs, fetcher, dedup.NewResolver(store), store, 5)

	if err := o.RunOneCycle(context.Background()); err != nil {
		t.Fatalf("RunOneCycle failed: %v", err)
	}

	count, _ := store.CountArticles(context.Background())
	if count != 3 { // seeded + Alpha fresh + Beta
		t.Errorf("Expected 3 stored articles, got %d", count)
	}

	for _, url := range []string{"https://alpha.example.com/fresh", "https://beta.example.com/story"} {
		if article, _ := store.GetArticleByURL(context.Background(), url); article == nil {
			t.Errorf("Expected %s to be persisted", url)
		}
	}
	if article, _ := store.GetArticleByURL(context.Background(), "https://alpha.example.com/stale"); article != nil {
		t.Error("Expected stale item to be filtered by age")
	}

	stats := o.GetStats()
	if stats.CycleCount != 1 {
		t.Errorf("Expected CycleCount=1, got %d", stats.CycleCount)
	}
	if stats.TotalArticlesAdded != 2 {
		t.Errorf("Expected TotalArticlesAdded=2, got %d", stats.TotalArticlesAdded)
	}
	if stats.ConsecutiveErrors != 0 {
		t.Errorf("Expected ConsecutiveErrors=0, got %d", stats.ConsecutiveErrors)
	}
	if stats.LastSuccessAt == nil {
		t.Error("Expected LastSuccessAt to be stamped")
	}
	if stats.State != StateIdle {
		t.Errorf("Expected state idle after cycle, got %s", stats.State)
	}
}

func TestOrchestrator_SourceFailureDoesNotAbortCycle(t *testing.T) {
	now := time.Now().Add(-5 * time.Minute)

	srcs := []sources.Source{
		{Name: "Down", URL: "https://down.example.com/rss", Category: "general"},
		{Name: "Up", URL: "https://up.example.com/rss", Category: "general"},
	}

	fetcher := &stubFetcher{
		items: map[string][]feed.Item{
			"Up": {{Title: "Up Story", URL: "https://up.example.com/story", PublishedAt: &now, Source: "Up"}},
		},
		errs: map[string]error{
			"Down": &feed.FetchError{Source: "Down", Err: errors.New("connection refused")},
		},
	}

	store := newMemStore()
	o := newTestOrchestrator(srcs, fetcher, dedup.NewResolver(store), store, 5)

	if err := o.RunOneCycle(context.Background()); err != nil {
		t.Fatalf("Expected cycle to survive a failed source, got %v", err)
	}

	if article, _ := store.GetArticleByURL(context.Background(), "https://up.example.com/story"); article == nil {
		t.Error("Expected healthy source's item to be persisted")
	}
	if o.GetStats().ConsecutiveErrors != 0 {
		t.Error("A skipped source must not count as a cycle failure")
	}
}

func TestOrchestrator_ConsecutiveFailuresStop(t *testing.T) {
	now := time.Now().Add(-5 * time.Minute)

	srcs := []sources.Source{
		{Name: "Alpha", URL: "https://alpha.example.com/rss", Category: "general"},
	}
	fetcher := &stubFetcher{
		items: map[string][]feed.Item{
			"Alpha": {{Title: "Story", URL: "https://alpha.example.com/story", PublishedAt: &now, Source: "Alpha"}},
		},
	}

	store := newMemStore()
	store.insertErr = errors.New("disk full")

	o := newTestOrchestrator(srcs, fetcher, dedup.NewResolver(store), store, 3)

	for i := 1; i <= 2; i++ {
		err := o.RunOneCycle(context.Background())
		if err == nil {
			t.Fatalf("Cycle %d: expected failure", i)
		}
		if errors.Is(err, ErrConsecutiveFailures) {
			t.Fatalf("Cycle %d: threshold reached too early", i)
		}
	}

	err := o.RunOneCycle(context.Background())
	if !errors.Is(err, ErrConsecutiveFailures) {
		t.Fatalf("Expected ErrConsecutiveFailures on cycle 3, got %v", err)
	}

	select {
	case doneErr := <-o.Done():
		if !errors.Is(doneErr, ErrConsecutiveFailures) {
			t.Errorf("Expected fatal error on Done, got %v", doneErr)
		}
	default:
		t.Error("Expected Done channel to deliver the fatal error")
	}

	if o.GetStats().State != StateStopped {
		t.Errorf("Expected stopped state, got %s", o.GetStats().State)
	}

	// No further cycle may run once stopped.
	before := fetcher.fetchCount()
	if err := o.RunOneCycle(context.Background()); !errors.Is(err, ErrConsecutiveFailures) {
		t.Errorf("Expected stopped orchestrator to refuse new cycles, got %v", err)
	}
	if fetcher.fetchCount() != before {
		t.Error("Stopped orchestrator must not fetch")
	}
}

func TestOrchestrator_SuccessResetsConsecutiveErrors(t *testing.T) {
	now := time.Now().Add(-5 * time.Minute)

	srcs := []sources.Source{
		{Name: "Alpha", URL: "https://alpha.example.com/rss", Category: "general"},
	}
	fetcher := &stubFetcher{
		items: map[string][]feed.Item{
			"Alpha": {{Title: "Story", URL: "https://alpha.example.com/story", PublishedAt: &now, Source: "Alpha"}},
		},
	}

	store := newMemStore()
	store.insertErr = errors.New("transient failure")

	o := newTestOrchestrator(srcs, fetcher, dedup.NewResolver(store), store, 5)

	if err := o.RunOneCycle(context.Background()); err == nil {
		t.Fatal("Expected first cycle to fail")
	}
	if o.GetStats().ConsecutiveErrors != 1 {
		t.Fatalf("Expected ConsecutiveErrors=1, got %d", o.GetStats().ConsecutiveErrors)
	}

	store.mu.Lock()
	store.insertErr = nil
	store.mu.Unlock()

	if err := o.RunOneCycle(context.Background()); err != nil {
		t.Fatalf("Expected second cycle to succeed, got %v", err)
	}

	stats := o.GetStats()
	if stats.ConsecutiveErrors != 0 {
		t.Errorf("Expected counter reset after success, got %d", stats.ConsecutiveErrors)
	}
	if stats.LastSuccessAt == nil {
		t.Error("Expected LastSuccessAt to be stamped")
	}
	if stats.CycleCount != 2 {
		t.Errorf("Expected CycleCount=2, got %d", stats.CycleCount)
	}
}

func TestOrchestrator_StartRunsCyclesOnInterval(t *testing.T) {
	srcs := []sources.Source{
		{Name: "Alpha", URL: "https://alpha.example.com/rss", Category: "general"},
	}
	fetcher := &stubFetcher{items: map[string][]feed.Item{}}
	store := newMemStore()

	o := newTestOrchestrator(srcs, fetcher, dedup.NewResolver(store), store, 5)
	o.Start(20 * time.Millisecond)

	time.Sleep(110 * time.Millisecond)
	o.Stop()

	if got := o.GetStats().CycleCount; got < 2 {
		t.Errorf("Expected at least 2 cycles (immediate + ticker), got %d", got)
	}
}
