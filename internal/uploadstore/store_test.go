package uploadstore

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/metadata"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Upload.ChunkSizeBytes = 8
	cfg.Upload.MaxFileSizeBytes = 1 << 20
	cfg.Upload.Concurrency = 2
	cfg.Upload.RatePerMinute = 600

	metaStore, err := metadata.Open(&cfg)
	if err != nil {
		t.Fatalf("metadata.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = metaStore.Close() })

	store, err := New(&cfg, metaStore, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestPutStreamsAndPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n")

	upload, err := store.Put(ctx, bytes.NewReader(content), "clip.srt", int64(len(content)), true, "text/plain")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if upload.FileType != metadata.FileTypeSubtitle {
		t.Fatalf("FileType = %s, want subtitle", upload.FileType)
	}
	if !strings.HasPrefix(upload.FileID, "f_") {
		t.Fatalf("FileID = %q, want f_ prefix", upload.FileID)
	}

	stored, err := os.ReadFile(upload.StoredPath)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatal("stored file content does not match the uploaded bytes")
	}

	fetched, err := store.Get(ctx, upload.FileID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fetched.FileHash != upload.FileHash {
		t.Fatalf("FileHash mismatch: %q vs %q", fetched.FileHash, upload.FileHash)
	}
}

func TestPutRejectsUnsupportedExtension(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Put(context.Background(), bytes.NewReader([]byte("x")), "notes.txt", 1, true, "")
	if apperr.KindOf(err) != apperr.KindUnsupportedType {
		t.Fatalf("KindOf(err) = %v, want unsupported_type", apperr.KindOf(err))
	}
}

func TestPutRejectsMismatchedMIME(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Put(context.Background(), bytes.NewReader([]byte("x")), "clip.mp4", 1, true, "audio/mpeg")
	if apperr.KindOf(err) != apperr.KindUnsupportedType {
		t.Fatalf("KindOf(err) = %v, want unsupported_type", apperr.KindOf(err))
	}
}

func TestPutRejectsOversizedDeclaredSize(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Put(context.Background(), bytes.NewReader([]byte("x")), "clip.mp4", store.cfg.MaxFileSizeBytes+store.cfg.GraceBytes+1, true, "")
	if apperr.KindOf(err) != apperr.KindTooLarge {
		t.Fatalf("KindOf(err) = %v, want too_large", apperr.KindOf(err))
	}
}

func TestPutAbortsOnActualSizeOverflow(t *testing.T) {
	store := newTestStore(t)
	store.cfg.MaxFileSizeBytes = 4
	oversized := bytes.NewReader([]byte("way too much content for the limit"))

	_, err := store.Put(context.Background(), oversized, "clip.srt", 0, false, "")
	if apperr.KindOf(err) != apperr.KindTooLarge {
		t.Fatalf("KindOf(err) = %v, want too_large", apperr.KindOf(err))
	}

	remaining, err := os.ReadDir(store.tmpDir)
	if err != nil {
		t.Fatalf("ReadDir(tmpDir) error = %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected the aborted staging file to be cleaned up, found %d entries", len(remaining))
	}
}

func TestPutDeduplicatesByContentHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("duplicate content for dedup test")

	first, err := store.Put(ctx, bytes.NewReader(content), "a.wav", int64(len(content)), true, "")
	if err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	second, err := store.Put(ctx, bytes.NewReader(content), "b.wav", int64(len(content)), true, "")
	if err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	if first.FileID == second.FileID {
		t.Fatal("expected distinct file_ids for two uploads")
	}
	if first.StoredPath != second.StoredPath {
		t.Fatalf("expected shared stored_path, got %q and %q", first.StoredPath, second.StoredPath)
	}

	if err := store.Remove(ctx, first.FileID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(second.StoredPath); err != nil {
		t.Fatal("removing one reference should not affect the other")
	}
}

func TestRemoveDeletesFileWhenLastReference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("solo content")

	upload, err := store.Put(ctx, bytes.NewReader(content), "solo.wav", int64(len(content)), true, "")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Remove(ctx, upload.FileID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(upload.StoredPath); !os.IsNotExist(err) {
		t.Fatal("stored file should be removed once its last reference is gone")
	}
	if _, err := store.Get(ctx, upload.FileID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("Get() after Remove() KindOf = %v, want not_found", apperr.KindOf(err))
	}
}

func TestHealthCheckReportsAccessibleDirectories(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
}

func TestSanitizeNameStripsPathSeparators(t *testing.T) {
	name, err := sanitizeName("../../etc/passwd.mp4")
	if err != nil {
		t.Fatalf("sanitizeName() error = %v", err)
	}
	if strings.ContainsAny(name, "/\\") {
		t.Fatalf("sanitizeName() = %q, still contains a separator", name)
	}
}

func TestSanitizeNameRejectsEmpty(t *testing.T) {
	if _, err := sanitizeName("   "); apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("KindOf(err) = %v, want invalid_argument", apperr.KindOf(err))
	}
}
