package metadata

import (
	"context"
	"testing"
	"time"

	"vidsum/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetOrCreateFirstRequestCreatesJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.GetOrCreate(ctx, "cachekeyaaa", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if result.Hit {
		t.Fatal("first request should not be a hit")
	}
	if result.Job == nil {
		t.Fatal("first request should create a job")
	}
	if !result.Created {
		t.Fatal("first request should report Created = true")
	}
	if result.Entry.Status != StatusPending {
		t.Fatalf("Entry.Status = %s, want pending", result.Entry.Status)
	}
}

func TestGetOrCreateAdoptsInFlightJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "cachekeybbb", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	second, err := store.GetOrCreate(ctx, "cachekeybbb", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if second.Hit {
		t.Fatal("in-flight request should not be a hit")
	}
	if second.Job == nil || second.Job.JobID != first.Job.JobID {
		t.Fatalf("second request should adopt the same job, got %+v vs %+v", second.Job, first.Job)
	}
	if second.Created {
		t.Fatal("adopting an in-flight job must not report Created = true")
	}
}

func TestGetOrCreateCompletedIsHitWhenValid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreate(ctx, "cachekeyccc", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := store.StartJob(ctx, created.Job.JobID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}
	if err := store.CompleteJob(ctx, created.Job.JobID, "a summary", "/cache/url/cachekeyccc"); err != nil {
		t.Fatalf("CompleteJob() error = %v", err)
	}

	alwaysValid := func(CacheEntry) bool { return true }
	hit, err := store.GetOrCreate(ctx, "cachekeyccc", SourceURL, "https://example.com/v", "Example", 1, false, alwaysValid)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if !hit.Hit {
		t.Fatal("completed valid entry should be a hit")
	}
	if hit.Entry.SummaryText != "a summary" {
		t.Fatalf("SummaryText = %q, want %q", hit.Entry.SummaryText, "a summary")
	}
}

func TestGetOrCreateRefreshResetsCompletedEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreate(ctx, "cachekeyddd", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	_ = store.StartJob(ctx, created.Job.JobID)
	_ = store.CompleteJob(ctx, created.Job.JobID, "old summary", "/cache/url/cachekeyddd")

	refreshed, err := store.GetOrCreate(ctx, "cachekeyddd", SourceURL, "https://example.com/v", "Example", 1, true, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if refreshed.Hit {
		t.Fatal("refresh should not be a hit")
	}
	if refreshed.Job == nil || refreshed.Job.JobID == created.Job.JobID {
		t.Fatal("refresh should create a fresh job")
	}
	if refreshed.Entry.Status != StatusPending || refreshed.Entry.SummaryText != "" {
		t.Fatalf("refresh should reset entry to pending with cleared summary, got %+v", refreshed.Entry)
	}
}

func TestGetOrCreateFailedWithoutRefreshSurfacesError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreate(ctx, "cachekeyeee", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	_ = store.StartJob(ctx, created.Job.JobID)
	if err := store.FailJob(ctx, created.Job.JobID, "upstream error"); err != nil {
		t.Fatalf("FailJob() error = %v", err)
	}

	result, err := store.GetOrCreate(ctx, "cachekeyeee", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if result.Job != nil {
		t.Fatal("failed entry without refresh should not create a new job")
	}
	if result.Entry.Error != "upstream error" {
		t.Fatalf("Entry.Error = %q, want %q", result.Entry.Error, "upstream error")
	}
}

func TestGetOrCreateRefreshDoesNotStackASecondJobWhileOneIsRunning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreate(ctx, "cachekeyrefreshrace", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := store.StartJob(ctx, created.Job.JobID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}

	refreshed, err := store.GetOrCreate(ctx, "cachekeyrefreshrace", SourceURL, "https://example.com/v", "Example", 1, true, nil)
	if err != nil {
		t.Fatalf("GetOrCreate(refresh) error = %v", err)
	}
	if refreshed.Created {
		t.Fatal("refresh must not create a second job while one is already running")
	}
	if refreshed.Job == nil || refreshed.Job.JobID != created.Job.JobID {
		t.Fatalf("refresh should report the already-running job, got %+v", refreshed.Job)
	}
}

func TestCompleteJobDoesNotClobberAnEntrySupersededByRefresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "cachekeystale", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := store.StartJob(ctx, first.Job.JobID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}
	if err := store.FailJob(ctx, first.Job.JobID, "boom"); err != nil {
		t.Fatalf("FailJob() error = %v", err)
	}

	second, err := store.GetOrCreate(ctx, "cachekeystale", SourceURL, "https://example.com/v", "Example", 1, true, nil)
	if err != nil {
		t.Fatalf("GetOrCreate(refresh) error = %v", err)
	}
	if err := store.StartJob(ctx, second.Job.JobID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}
	if err := store.CompleteJob(ctx, second.Job.JobID, "fresh summary", "/cache/url/cachekeystale"); err != nil {
		t.Fatalf("CompleteJob() error = %v", err)
	}

	// A stale worker for the superseded first job finally finishes: its
	// CompleteJob call must silently no-op rather than overwrite the second
	// job's completed result.
	if err := store.CompleteJob(ctx, first.Job.JobID, "stale summary", "/cache/url/stale-path"); err != nil {
		t.Fatalf("CompleteJob() on a superseded job_id error = %v, want nil (no-op)", err)
	}

	entry, err := store.GetCacheEntry(ctx, "cachekeystale")
	if err != nil {
		t.Fatalf("GetCacheEntry() error = %v", err)
	}
	if entry.SummaryText != "fresh summary" {
		t.Fatalf("SummaryText = %q, want %q (the stale job must not have overwritten it)", entry.SummaryText, "fresh summary")
	}
	if entry.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed", entry.Status)
	}
}

func TestSweepInterruptedJobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreate(ctx, "cachekeyfff", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := store.StartJob(ctx, created.Job.JobID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}

	jobIDs, err := store.SweepInterruptedJobs(ctx)
	if err != nil {
		t.Fatalf("SweepInterruptedJobs() error = %v", err)
	}
	if len(jobIDs) != 1 || jobIDs[0] != created.Job.JobID {
		t.Fatalf("SweepInterruptedJobs() = %v, want [%s]", jobIDs, created.Job.JobID)
	}

	entry, err := store.GetCacheEntry(ctx, "cachekeyfff")
	if err != nil {
		t.Fatalf("GetCacheEntry() error = %v", err)
	}
	if entry.Status != StatusFailed {
		t.Fatalf("Entry.Status = %s, want failed", entry.Status)
	}
}

func TestDeleteCacheEntryCascadesJobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreate(ctx, "cachekeyggg", SourceURL, "https://example.com/v", "Example", 1, false, nil)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if _, err := store.DeleteCacheEntry(ctx, "cachekeyggg"); err != nil {
		t.Fatalf("DeleteCacheEntry() error = %v", err)
	}
	if _, err := store.GetCacheEntry(ctx, "cachekeyggg"); err == nil {
		t.Fatal("expected not-found after delete")
	}
	if _, err := store.GetJob(ctx, created.Job.JobID); err == nil {
		t.Fatal("expected job to be cascaded away after delete")
	}
}

func TestUploadLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	upload := Upload{
		FileID:       "f_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		OriginalName: "sample.srt",
		Size:         42,
		MimeType:     "text/plain",
		FileType:     FileTypeSubtitle,
		FileHash:     "deadbeef",
		StoredPath:   "/work/uploads/f_aaa/sample.srt",
		CreatedAt:    now,
		ExpiresAt:    now.Add(24 * time.Hour),
	}
	if err := store.InsertUpload(ctx, upload); err != nil {
		t.Fatalf("InsertUpload() error = %v", err)
	}

	got, err := store.GetUpload(ctx, upload.FileID)
	if err != nil {
		t.Fatalf("GetUpload() error = %v", err)
	}
	if got.OriginalName != upload.OriginalName {
		t.Fatalf("OriginalName = %q, want %q", got.OriginalName, upload.OriginalName)
	}

	found, ok, err := store.FindUploadByHash(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("FindUploadByHash() error = %v", err)
	}
	if !ok || found.FileID != upload.FileID {
		t.Fatalf("FindUploadByHash() = %+v, %v, want a match on %s", found, ok, upload.FileID)
	}

	if err := store.DeleteUpload(ctx, upload.FileID); err != nil {
		t.Fatalf("DeleteUpload() error = %v", err)
	}
	if _, err := store.GetUpload(ctx, upload.FileID); err == nil {
		t.Fatal("expected not-found after delete")
	}
}

func TestGetUploadLazilyExpires(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	upload := Upload{
		FileID:       "f_bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		OriginalName: "old.srt",
		Size:         1,
		MimeType:     "text/plain",
		FileType:     FileTypeSubtitle,
		FileHash:     "cafef00d",
		StoredPath:   "/work/uploads/f_bbb/old.srt",
		CreatedAt:    now.Add(-48 * time.Hour),
		ExpiresAt:    now.Add(-24 * time.Hour),
	}
	if err := store.InsertUpload(ctx, upload); err != nil {
		t.Fatalf("InsertUpload() error = %v", err)
	}

	if _, err := store.GetUpload(ctx, upload.FileID); err == nil {
		t.Fatal("expected not-found for an expired upload")
	}

	expired, err := store.ExpiredUploads(ctx, now)
	if err != nil {
		t.Fatalf("ExpiredUploads() error = %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("ExpiredUploads() = %d, want 0 after lazy expiry already removed the row", len(expired))
	}
}
