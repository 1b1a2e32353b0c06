package uploadstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/idgen"
	"vidsum/internal/logging"
	"vidsum/internal/metadata"
)

// Store implements the streaming upload path: chunked writes with a running
// hash, declared-size and running-size limits, MIME/extension agreement,
// content-hash dedup against an existing stored path, and a TTL reaper.
// Grounded on bundle.Store's staging-then-move idiom, generalized from a
// one-shot rename to a chunked copy with its own limits.
type Store struct {
	cfg        config.Upload
	metaStore  *metadata.Store
	uploadsDir string
	tmpDir     string
	logger     *slog.Logger

	sem     *semaphore.Weighted
	limiter *rate.Limiter

	// mu serializes the hash-dedup-or-move decision and file removal
	// against the reaper, which takes the same lock before deleting.
	mu sync.Mutex
}

// New builds a Store rooted at cfg's work directory.
func New(cfg *config.Config, metaStore *metadata.Store, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	uploadsDir := filepath.Join(cfg.Paths.WorkDir, "uploads")
	tmpDir := filepath.Join(cfg.Paths.WorkDir, "tmp")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	concurrency := int64(cfg.Upload.Concurrency)
	if concurrency <= 0 {
		concurrency = 1
	}
	ratePerMinute := cfg.Upload.RatePerMinute
	if ratePerMinute <= 0 {
		ratePerMinute = 1
	}

	return &Store{
		cfg:        cfg.Upload,
		metaStore:  metaStore,
		uploadsDir: uploadsDir,
		tmpDir:     tmpDir,
		logger:     logging.NewComponentLogger(logger, "uploadstore"),
		sem:        semaphore.NewWeighted(concurrency),
		limiter:    rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute),
	}, nil
}

// Put streams r into a fresh staging file, enforcing size and type limits,
// then either reuses an existing stored path with the same content hash or
// moves the staging file into its stable location.
// declaredSize and sizeKnown describe a client-supplied Content-Length;
// pass sizeKnown = false when the caller has no such hint.
func (s *Store) Put(ctx context.Context, r io.Reader, declaredName string, declaredSize int64, sizeKnown bool, mimeType string) (metadata.Upload, error) {
	const op = "uploadstore:put"

	safeName, err := sanitizeName(declaredName)
	if err != nil {
		return metadata.Upload{}, err
	}

	ext := extOf(safeName)
	if len(ext) > 0 {
		ext = ext[1:]
	}
	fileType, ok := fileTypeFromExtension(ext)
	if !ok {
		return metadata.Upload{}, apperr.New(apperr.KindUnsupportedType, op, fmt.Sprintf("unsupported file extension %q", ext))
	}

	if sizeKnown && declaredSize > s.cfg.MaxFileSizeBytes+s.cfg.GraceBytes {
		return metadata.Upload{}, apperr.New(apperr.KindTooLarge, op, "declared size exceeds the configured maximum")
	}

	release, err := s.admit(ctx)
	if err != nil {
		return metadata.Upload{}, err
	}
	defer release()

	stagingPath := filepath.Join(s.tmpDir, "upload-"+idgen.FileID()+".partial")
	size, hash, streamErr := s.stream(ctx, r, stagingPath)
	if streamErr != nil {
		_ = os.Remove(stagingPath)
		return metadata.Upload{}, streamErr
	}

	if mimeType != "" {
		mimeFamily, mimeOk := fileTypeFromMIME(mimeType)
		if !mimeOk || mimeFamily != fileType {
			_ = os.Remove(stagingPath)
			return metadata.Upload{}, apperr.New(apperr.KindUnsupportedType, op, "declared MIME type does not match the file extension")
		}
	}

	upload, err := s.finalize(ctx, stagingPath, safeName, fileType, mimeType, size, hash)
	if err != nil {
		_ = os.Remove(stagingPath)
		return metadata.Upload{}, err
	}
	return upload, nil
}

// finalize resolves content dedup against the metadata store and either
// reuses the existing stored path or moves the staging file into place,
// then persists the upload record. Runs under s.mu so a concurrent reaper
// pass never races the decision of whether stored_path is still referenced.
func (s *Store) finalize(ctx context.Context, stagingPath, safeName string, fileType metadata.FileType, mimeType string, size int64, hash string) (metadata.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storedPath := ""
	if existing, found, err := s.metaStore.FindUploadByHash(ctx, hash); err != nil {
		return metadata.Upload{}, err
	} else if found {
		if _, statErr := os.Stat(existing.StoredPath); statErr == nil {
			storedPath = existing.StoredPath
			_ = os.Remove(stagingPath)
		}
	}

	fileID := idgen.FileID()
	if storedPath == "" {
		destDir := filepath.Join(s.uploadsDir, fileID)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return metadata.Upload{}, fmt.Errorf("create upload dir: %w", err)
		}
		storedPath = filepath.Join(destDir, safeName)
		if err := os.Rename(stagingPath, storedPath); err != nil {
			return metadata.Upload{}, fmt.Errorf("move upload into place: %w", err)
		}
	}

	now := time.Now().UTC()
	ttl := time.Duration(s.cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	upload := metadata.Upload{
		FileID:       fileID,
		OriginalName: safeName,
		Size:         size,
		MimeType:     mimeType,
		FileType:     fileType,
		FileHash:     hash,
		StoredPath:   storedPath,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.metaStore.InsertUpload(ctx, upload); err != nil {
		return metadata.Upload{}, err
	}
	return upload, nil
}

// Get returns the upload record for fileID, lazily expiring it past its
// TTL (delegates to metadata.Store.GetUpload).
func (s *Store) Get(ctx context.Context, fileID string) (metadata.Upload, error) {
	return s.metaStore.GetUpload(ctx, fileID)
}

// GetByHash resolves an upload by its content hash rather than its
// file_id, for callers that only have a file_hash identifier.
func (s *Store) GetByHash(ctx context.Context, fileHash string) (metadata.Upload, error) {
	upload, found, err := s.metaStore.FindUploadByHash(ctx, fileHash)
	if err != nil {
		return metadata.Upload{}, err
	}
	if !found {
		return metadata.Upload{}, apperr.New(apperr.KindNotFound, "uploadstore:get_by_hash", "no upload found for that file hash")
	}
	return upload, nil
}

// Remove deletes the upload record and, if no other record references its
// stored_path, the underlying file.
func (s *Store) Remove(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, err := s.metaStore.GetUpload(ctx, fileID)
	if err != nil {
		return err
	}
	if err := s.metaStore.DeleteUpload(ctx, fileID); err != nil {
		return err
	}
	return s.removeOrphanedFileLocked(ctx, upload.StoredPath)
}

func (s *Store) removeOrphanedFileLocked(ctx context.Context, storedPath string) error {
	count, err := s.metaStore.CountUploadsByStoredPath(ctx, storedPath)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := os.RemoveAll(filepath.Dir(storedPath)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HealthCheck verifies the uploads and tmp directories are readable and
// writable, mirroring bundle.Store.HealthCheck.
func (s *Store) HealthCheck() error {
	for _, dir := range []string{s.uploadsDir, s.tmpDir} {
		if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return fmt.Errorf("upload directory %s not accessible: %w", dir, err)
		}
	}
	return nil
}

// admit acquires the rate limiter and the concurrency semaphore in order,
// within a single fair timeout bound by the configured write timeout.
func (s *Store) admit(ctx context.Context) (func(), error) {
	const op = "uploadstore:admit"

	timeout := time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	admitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.limiter.Wait(admitCtx); err != nil {
		return nil, apperr.Wrap(apperr.KindTooManyRequests, op, "upload rate limit exceeded", err)
	}
	if err := s.sem.Acquire(admitCtx, 1); err != nil {
		return nil, apperr.Wrap(apperr.KindTooManyRequests, op, "upload concurrency limit exceeded", err)
	}
	return func() { s.sem.Release(1) }, nil
}

// stream copies r into a fresh file at stagingPath in cfg.ChunkSizeBytes
// chunks, updating a running SHA-256 and aborting on a size or timeout
// violation.
func (s *Store) stream(ctx context.Context, r io.Reader, stagingPath string) (int64, string, error) {
	const op = "uploadstore:put"

	dst, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, "", fmt.Errorf("create staging file: %w", err)
	}
	defer dst.Close()

	chunkSize := s.cfg.ChunkSizeBytes
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	readTimeout := timeoutOr(s.cfg.ReadTimeoutSeconds, 30*time.Second)
	writeTimeout := timeoutOr(s.cfg.WriteTimeoutSeconds, 30*time.Second)
	limit := s.cfg.MaxFileSizeBytes

	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	var total int64

	for {
		var n int
		readErr := withTimeout(ctx, readTimeout, func() error {
			var err error
			n, err = r.Read(buf)
			return err
		})
		if n > 0 {
			total += int64(n)
			if total > limit {
				return 0, "", apperr.New(apperr.KindTooLarge, op, "upload exceeds the configured maximum size")
			}
			chunk := buf[:n]
			if writeErr := withTimeout(ctx, writeTimeout, func() error {
				_, err := dst.Write(chunk)
				return err
			}); writeErr != nil {
				return 0, "", classifyIOErr(writeErr)
			}
			hasher.Write(chunk)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return 0, "", classifyIOErr(readErr)
		}
	}

	if err := dst.Sync(); err != nil {
		return 0, "", fmt.Errorf("sync staging file: %w", err)
	}
	return total, hex.EncodeToString(hasher.Sum(nil)), nil
}

func timeoutOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// withTimeout runs op in a goroutine and returns either its result or an
// apperr.KindTimeout once timeout elapses. A caller that sees a timeout
// error must abort the whole stream, since the goroutine may still be
// blocked on the buffer it was handed.
func withTimeout(ctx context.Context, timeout time.Duration, op func() error) error {
	done := make(chan error, 1)
	go func() { done <- op() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return apperr.New(apperr.KindTimeout, "uploadstore:io", "operation exceeded its timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classifyIOErr(err error) error {
	if appErr, ok := err.(*apperr.Error); ok {
		return appErr
	}
	return apperr.Wrap(apperr.KindInternal, "uploadstore:put", "upload stream failed", err)
}
