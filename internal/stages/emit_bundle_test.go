package stages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vidsum/internal/bundle"
	"vidsum/internal/config"
	"vidsum/internal/pipeline"
)

func newTestBundleStore(t *testing.T) *bundle.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	store, err := bundle.NewStore(&cfg)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestEmitBundleHandlerPromotesAndRewritesStagingDir(t *testing.T) {
	store := newTestBundleStore(t)
	stagingDir, err := store.Stage("j_job1", "cachekey1", "url", "https://example.com/v", "Example", 1)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	h := NewEmitBundleHandler(store)
	item := &pipeline.Item{
		JobID:      "j_job1",
		CacheKey:   "cachekey1",
		SourceType: "url",
		StagingDir: stagingDir,
		SummaryText: "a concise summary",
		Transcript:  "the raw transcript",
		DurationMS:  5000,
	}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if item.StagingDir != store.FinalDir("url", "cachekey1") {
		t.Fatalf("StagingDir after Execute = %q, want the promoted final dir", item.StagingDir)
	}
	if !store.Validate("url", "cachekey1") {
		t.Fatal("expected the promoted bundle to validate")
	}

	manifest, err := store.Load("url", "cachekey1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if manifest.SummaryText != "a concise summary" {
		t.Fatalf("manifest.SummaryText = %q", manifest.SummaryText)
	}
	if manifest.DurationMS != 5000 {
		t.Fatalf("manifest.DurationMS = %d, want 5000", manifest.DurationMS)
	}
	if _, ok := manifest.Artifacts[bundle.ArtifactASR]; !ok {
		t.Fatal("expected an asr artifact since Transcript was set")
	}
}

func TestEmitBundleHandlerCopiesExternalArtifacts(t *testing.T) {
	store := newTestBundleStore(t)
	stagingDir, err := store.Stage("j_job2", "cachekey2", "local", "upload:file-1", "clip.mp4", 1)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	uploadsDir := t.TempDir()
	videoPath := filepath.Join(uploadsDir, "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewEmitBundleHandler(store)
	item := &pipeline.Item{
		JobID:       "j_job2",
		CacheKey:    "cachekey2",
		SourceType:  "local",
		StagingDir:  stagingDir,
		SummaryText: "a summary",
		VideoPath:   videoPath,
	}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	manifest, err := store.Load("local", "cachekey2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := manifest.Artifacts[bundle.ArtifactVideo]; !ok {
		t.Fatal("expected a video artifact copied from the upload path")
	}
}

func TestEmitBundleHandlerHealthCheck(t *testing.T) {
	store := newTestBundleStore(t)
	h := NewEmitBundleHandler(store)
	if !h.HealthCheck(context.Background()).Healthy {
		t.Fatal("expected a healthy bundle store to report healthy")
	}
}
