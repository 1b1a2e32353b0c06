package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"vidsum/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	store, err := NewStore(&cfg)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStagePromoteRoundTrip(t *testing.T) {
	store := newTestStore(t)

	stagingDir, err := store.Stage("j_job1", "cachekeyaaa", "url", "https://example.com/v", "Example", 1)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	summaryPath := filepath.Join(stagingDir, "raw_summary.txt")
	if err := os.WriteFile(summaryPath, []byte("a concise summary"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddArtifact(stagingDir, ArtifactSummary, summaryPath); err != nil {
		t.Fatalf("AddArtifact() error = %v", err)
	}
	if err := store.MarkStatus(stagingDir, "completed", "a concise summary", ""); err != nil {
		t.Fatalf("MarkStatus() error = %v", err)
	}

	finalDir, err := store.Promote("j_job1", "url", "cachekeyaaa")
	if err != nil {
		t.Fatalf("Promote() error = %v", err)
	}
	if finalDir != store.FinalDir("url", "cachekeyaaa") {
		t.Fatalf("Promote() dir = %s, want %s", finalDir, store.FinalDir("url", "cachekeyaaa"))
	}
	if _, err := os.Stat(stagingDir); !os.IsNotExist(err) {
		t.Fatal("staging dir should no longer exist after promotion")
	}

	if !store.Validate("url", "cachekeyaaa") {
		t.Fatal("Validate() should report the promoted bundle as valid")
	}

	manifest, err := store.Load("url", "cachekeyaaa")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if manifest.Status != "completed" {
		t.Fatalf("manifest.Status = %s, want completed", manifest.Status)
	}
	if _, ok := manifest.Artifacts[ArtifactSummary]; !ok {
		t.Fatal("manifest missing summary artifact")
	}
}

func TestValidateFailsWithEmptySummary(t *testing.T) {
	store := newTestStore(t)

	stagingDir, err := store.Stage("j_job2", "cachekeyempty", "url", "https://example.com/v", "Example", 1)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := store.MarkStatus(stagingDir, "completed", "", ""); err != nil {
		t.Fatalf("MarkStatus() error = %v", err)
	}
	if _, err := store.Promote("j_job2", "url", "cachekeyempty"); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}

	if store.Validate("url", "cachekeyempty") {
		t.Fatal("Validate() should reject a completed bundle with an empty summary")
	}
}

func TestValidateFailsWhenBundleNeverStaged(t *testing.T) {
	store := newTestStore(t)
	if store.Validate("url", "missing-key") {
		t.Fatal("Validate() should be false for a bundle that was never staged")
	}
}

func TestPromoteFailsWithoutStaging(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Promote("j_nope", "url", "cachekeybbb"); err == nil {
		t.Fatal("Promote() should fail when staging dir does not exist")
	}
}

func TestDiscardRemovesStagingDir(t *testing.T) {
	store := newTestStore(t)
	stagingDir, err := store.Stage("j_job2", "cachekeyccc", "url", "https://example.com/v2", "", 1)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := store.Discard("j_job2"); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if _, err := os.Stat(stagingDir); !os.IsNotExist(err) {
		t.Fatal("staging dir should be removed after Discard")
	}
}

func TestPromoteReplacesStaleBundle(t *testing.T) {
	store := newTestStore(t)

	firstStaging, _ := store.Stage("j_job3", "cachekeyddd", "url", "https://example.com/v3", "", 1)
	_ = store.MarkStatus(firstStaging, "completed", "first", "")
	if _, err := store.Promote("j_job3", "url", "cachekeyddd"); err != nil {
		t.Fatalf("first Promote() error = %v", err)
	}

	secondStaging, _ := store.Stage("j_job4", "cachekeyddd", "url", "https://example.com/v3", "", 1)
	_ = store.MarkStatus(secondStaging, "completed", "second", "")
	finalDir, err := store.Promote("j_job4", "url", "cachekeyddd")
	if err != nil {
		t.Fatalf("second Promote() error = %v", err)
	}

	manifest, err := loadManifest(finalDir)
	if err != nil {
		t.Fatalf("loadManifest() error = %v", err)
	}
	if manifest.SummaryText != "second" {
		t.Fatalf("manifest.SummaryText = %s, want second (refresh should replace the bundle)", manifest.SummaryText)
	}
}
