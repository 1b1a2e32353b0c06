package uploadstore

import (
	"context"
	"time"

	"vidsum/internal/logging"
)

// StartReaper launches a background goroutine that periodically deletes
// expired upload records and any stored file left orphaned by that
// deletion. It returns immediately; the
// goroutine exits when ctx is cancelled.
func (s *Store) StartReaper(ctx context.Context) {
	interval := timeoutOr(s.cfg.ReapIntervalSeconds, time.Minute)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reapOnce(ctx)
			}
		}
	}()
}

func (s *Store) reapOnce(ctx context.Context) {
	expired, err := s.metaStore.ExpiredUploads(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Warn("failed to list expired uploads", logging.Error(err))
		return
	}

	for _, upload := range expired {
		if err := s.reapOne(ctx, upload.FileID, upload.StoredPath); err != nil {
			s.logger.Warn("failed to reap expired upload",
				logging.String("file_id", upload.FileID), logging.Error(err))
		}
	}
}

func (s *Store) reapOne(ctx context.Context, fileID, storedPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.metaStore.DeleteUpload(ctx, fileID); err != nil {
		return err
	}
	return s.removeOrphanedFileLocked(ctx, storedPath)
}
