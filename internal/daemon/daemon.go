package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vidsum/internal/apperr"
	"vidsum/internal/cache"
	"vidsum/internal/config"
	"vidsum/internal/gc"
	"vidsum/internal/httpapi"
	"vidsum/internal/jobqueue"
	"vidsum/internal/logging"
	"vidsum/internal/metadata"
	"vidsum/internal/uploadstore"
)

// Daemon coordinates the background processing services (job queue, upload
// reaper, HTTP surface) and enforces single-instance execution over one
// work directory via an flock-based lock.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *metadata.Store
	coordinator *cache.Coordinator
	uploads     *uploadstore.Store
	queue       *jobqueue.Queue
	server      *httpapi.Server
	sweeper     *gc.Sweeper

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status summarizes daemon runtime information for operational tooling.
type Status struct {
	Running      bool
	Cache        metadata.Stats
	APIBind      string
	WorkDir      string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. All arguments must
// be non-nil; wiring them up is the caller's job (see cmd/vidsumd).
func New(cfg *config.Config, logger *slog.Logger, store *metadata.Store, coordinator *cache.Coordinator, uploads *uploadstore.Store, queue *jobqueue.Queue, server *httpapi.Server, sweeper *gc.Sweeper) (*Daemon, error) {
	if cfg == nil || logger == nil || store == nil || coordinator == nil || uploads == nil || queue == nil || server == nil || sweeper == nil {
		return nil, errors.New("daemon requires config, logger, store, coordinator, uploads, queue, server, and sweeper")
	}

	lockPath := filepath.Join(cfg.Paths.WorkDir, "vidsumd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		coordinator: coordinator,
		uploads:     uploads,
		queue:       queue,
		server:      server,
		sweeper:     sweeper,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, sweeps jobs interrupted by a prior process
// lifetime, then launches the upload reaper, the periodic cache GC sweep,
// the job queue's worker pool, and the HTTP surface. The HTTP listener runs
// in a background goroutine; Start does not wait for it to bind, and a bind
// failure is logged rather than returned.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return apperr.New(apperr.KindInvalidArgument, "daemon:start", "daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another vidsum daemon instance is already running against this work directory")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.sweepInterrupted(runCtx); err != nil {
		d.logger.Warn("interrupted-job sweep failed", logging.Error(err))
	}

	d.uploads.StartReaper(runCtx)
	d.sweeper.StartPeriodic(runCtx)

	if err := d.queue.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start job queue: %w", err)
	}

	go func() {
		if err := d.server.Start(runCtx); err != nil {
			d.logger.Error("api server exited", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("vidsum daemon started",
		logging.String("api_bind", d.cfg.Paths.APIBind),
		logging.String("lock", d.lockPath))
	return nil
}

// sweepInterrupted transitions jobs left running from a previous process
// lifetime to failed:interrupted and discards their orphaned staging
// directories.
func (d *Daemon) sweepInterrupted(ctx context.Context) error {
	return d.coordinator.DiscardInterrupted(ctx)
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.server.Shutdown(); err != nil {
		d.logger.Warn("api server shutdown", logging.Error(err))
	}
	d.queue.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vidsum daemon stopped")
}

// Close stops the daemon (if running) and closes the metadata store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.CacheStats(ctx)
	if err != nil {
		d.logger.Warn("cache stats", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		Cache:        stats,
		APIBind:      d.cfg.Paths.APIBind,
		WorkDir:      d.cfg.Paths.WorkDir,
		LockFilePath: d.lockPath,
	}
}
