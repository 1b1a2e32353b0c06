package pipeline

import (
	"context"
	"errors"
	"testing"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/metadata"
)

func newTestStore(t *testing.T) *metadata.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	store, err := metadata.Open(&cfg)
	if err != nil {
		t.Fatalf("metadata.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type fakeHandler struct {
	prepareErr error
	executeErr error
	executed   bool
}

func (h *fakeHandler) Prepare(ctx context.Context, item *Item) error { return h.prepareErr }
func (h *fakeHandler) Execute(ctx context.Context, item *Item) error {
	h.executed = true
	if h.executeErr != nil {
		return h.executeErr
	}
	item.SummaryText = "a summary"
	return nil
}
func (h *fakeHandler) HealthCheck(ctx context.Context) Health { return Health{Healthy: true} }

func setupJob(t *testing.T, store *metadata.Store) *Item {
	t.Helper()
	result, err := store.GetOrCreate(context.Background(), "cachekey01", metadata.SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	return &Item{JobID: result.Job.JobID, CacheKey: "cachekey01"}
}

func TestRunCompletesJobOnSuccess(t *testing.T) {
	store := newTestStore(t)
	item := setupJob(t, store)

	err := Run(context.Background(), Options{
		Store:  store,
		Item:   item,
		Stages: []Stage{{Name: "summarize", Handler: &fakeHandler{}}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entry, err := store.GetCacheEntry(context.Background(), "cachekey01")
	if err != nil {
		t.Fatalf("GetCacheEntry() error = %v", err)
	}
	if entry.Status != metadata.StatusCompleted {
		t.Fatalf("entry.Status = %s, want completed", entry.Status)
	}
}

func TestRunFailsJobWhenStageErrors(t *testing.T) {
	store := newTestStore(t)
	item := setupJob(t, store)

	stageErr := apperr.New(apperr.KindUpstream, "pipeline:fetch", "upstream unreachable")
	err := Run(context.Background(), Options{
		Store:  store,
		Item:   item,
		Stages: []Stage{{Name: "fetch", Handler: &fakeHandler{executeErr: stageErr}}},
	})
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if !errors.Is(err, stageErr) {
		t.Fatalf("Run() error = %v, want wrapping %v", err, stageErr)
	}

	entry, err := store.GetCacheEntry(context.Background(), "cachekey01")
	if err != nil {
		t.Fatalf("GetCacheEntry() error = %v", err)
	}
	if entry.Status != metadata.StatusFailed {
		t.Fatalf("entry.Status = %s, want failed", entry.Status)
	}
	if entry.Error != "upstream unreachable" {
		t.Fatalf("entry.Error = %q, want %q", entry.Error, "upstream unreachable")
	}
}

func TestRunStopsChainOnFirstFailure(t *testing.T) {
	store := newTestStore(t)
	item := setupJob(t, store)

	first := &fakeHandler{executeErr: errors.New("boom")}
	second := &fakeHandler{}
	_ = Run(context.Background(), Options{
		Store:  store,
		Item:   item,
		Stages: []Stage{{Name: "first", Handler: first}, {Name: "second", Handler: second}},
	})
	if second.executed {
		t.Fatal("second stage should not run after first stage fails")
	}
}
