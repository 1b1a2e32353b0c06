package gc

import (
	"context"
	"testing"

	"vidsum/internal/bundle"
	"vidsum/internal/cache"
	"vidsum/internal/config"
	"vidsum/internal/metadata"
)

func newTestSweeper(t *testing.T) (*Sweeper, *cache.Coordinator, *metadata.Store, *bundle.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Cache.ProfileVersion = 1
	cfg.Cache.TTLDays = 0
	cfg.Cache.FailedTTLHours = 0
	cfg.Cache.MaxBytes = 0

	store, err := metadata.Open(&cfg)
	if err != nil {
		t.Fatalf("metadata.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	bundles, err := bundle.NewStore(&cfg)
	if err != nil {
		t.Fatalf("bundle.NewStore() error = %v", err)
	}

	coordinator := cache.New(store, bundles, nil, &cfg, nil)
	return New(store, bundles, coordinator, &cfg, nil), coordinator, store, bundles
}

func completeEntry(t *testing.T, ctx context.Context, coordinator *cache.Coordinator, store *metadata.Store, bundles *bundle.Store, url string) string {
	t.Helper()
	lookup, err := coordinator.LookupURL(ctx, url, "Example", false)
	if err != nil {
		t.Fatalf("LookupURL() error = %v", err)
	}
	if err := store.StartJob(ctx, lookup.Item.JobID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}
	if err := bundles.MarkStatus(lookup.Item.StagingDir, "completed", "a summary", ""); err != nil {
		t.Fatalf("MarkStatus() error = %v", err)
	}
	finalDir, err := bundles.Promote(lookup.Item.JobID, string(lookup.Entry.SourceType), lookup.Item.CacheKey)
	if err != nil {
		t.Fatalf("Promote() error = %v", err)
	}
	if err := store.CompleteJob(ctx, lookup.Item.JobID, "a summary", finalDir); err != nil {
		t.Fatalf("CompleteJob() error = %v", err)
	}
	return lookup.Item.CacheKey
}

func TestRunSkipsEveryPolicyWhenDisabled(t *testing.T) {
	sweeper, coordinator, store, bundles := newTestSweeper(t)
	ctx := context.Background()

	completedKey := completeEntry(t, ctx, coordinator, store, bundles, "https://example.com/watch?v=1")

	failedLookup, err := coordinator.LookupURL(ctx, "https://example.com/watch?v=2", "Example", false)
	if err != nil {
		t.Fatalf("LookupURL() error = %v", err)
	}
	if err := store.FailJob(ctx, failedLookup.Item.JobID, "boom"); err != nil {
		t.Fatalf("FailJob() error = %v", err)
	}

	result, err := sweeper.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ExpiredRemoved != 0 || result.FailedRemoved != 0 || result.OversizeRemoved != 0 {
		t.Fatalf("Run() = %+v, want an all-zero result with every policy disabled", result)
	}
	if _, err := store.GetCacheEntry(ctx, completedKey); err != nil {
		t.Fatalf("expected completed entry to survive: %v", err)
	}
	if _, err := store.GetCacheEntry(ctx, failedLookup.Item.CacheKey); err != nil {
		t.Fatalf("expected failed entry to survive: %v", err)
	}
}

func TestRunEnforcesSizeBudget(t *testing.T) {
	sweeper, coordinator, store, bundles := newTestSweeper(t)
	sweeper.cfg.Cache.MaxBytes = 1
	ctx := context.Background()

	cacheKey := completeEntry(t, ctx, coordinator, store, bundles, "https://example.com/watch?v=big")

	result, err := sweeper.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.OversizeRemoved != 1 {
		t.Fatalf("OversizeRemoved = %d, want 1", result.OversizeRemoved)
	}
	if _, err := store.GetCacheEntry(ctx, cacheKey); err == nil {
		t.Fatal("expected the entry to be evicted once the size budget was exceeded")
	}
}

func TestRunLeavesUndersizedCacheAlone(t *testing.T) {
	sweeper, coordinator, store, bundles := newTestSweeper(t)
	sweeper.cfg.Cache.MaxBytes = 1 << 30
	ctx := context.Background()

	cacheKey := completeEntry(t, ctx, coordinator, store, bundles, "https://example.com/watch?v=small")

	result, err := sweeper.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.OversizeRemoved != 0 {
		t.Fatalf("OversizeRemoved = %d, want 0 when the cache is well under budget", result.OversizeRemoved)
	}
	if _, err := store.GetCacheEntry(ctx, cacheKey); err != nil {
		t.Fatalf("expected entry to survive: %v", err)
	}
}
