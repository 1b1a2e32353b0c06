// Package gc enforces the cache retention policy configured under
// [cache]: entries idle past ttl_days, failed entries past
// failed_ttl_hours, and, once the promoted bundle set exceeds max_bytes,
// the least-recently-accessed completed entries until it no longer does.
package gc

import (
	"context"
	"log/slog"
	"time"

	"vidsum/internal/bundle"
	"vidsum/internal/cache"
	"vidsum/internal/config"
	"vidsum/internal/logging"
	"vidsum/internal/metadata"
)

// Sweeper walks the metadata store looking for cache entries a sweep
// should evict, deleting each one through the same coordinator path the
// HTTP boundary's delete endpoint uses.
type Sweeper struct {
	store       *metadata.Store
	bundles     *bundle.Store
	coordinator *cache.Coordinator
	cfg         *config.Config
	logger      *slog.Logger
}

// New builds a Sweeper from its dependencies plus cfg.Cache.
func New(store *metadata.Store, bundles *bundle.Store, coordinator *cache.Coordinator, cfg *config.Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		store:       store,
		bundles:     bundles,
		coordinator: coordinator,
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "gc"),
	}
}

// Result summarizes one Run's outcome.
type Result struct {
	ExpiredRemoved  int
	FailedRemoved   int
	OversizeRemoved int
	BytesFreed      int64
}

// Run executes one sweep pass: TTL eviction, failed-entry eviction, then
// size-budget eviction, in that order, so a sweep never trims for size
// before it has already dropped everything that is simply expired.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	var result Result

	if s.cfg.Cache.TTLDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.Cache.TTLDays)
		stale, err := s.store.StaleCacheEntries(ctx, cutoff)
		if err != nil {
			return result, err
		}
		for _, entry := range stale {
			if err := s.evict(ctx, entry, "cache_ttl_days expired"); err != nil {
				return result, err
			}
			result.ExpiredRemoved++
		}
	}

	if s.cfg.Cache.FailedTTLHours > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(s.cfg.Cache.FailedTTLHours) * time.Hour)
		failed, err := s.store.StaleFailedEntries(ctx, cutoff)
		if err != nil {
			return result, err
		}
		for _, entry := range failed {
			if err := s.evict(ctx, entry, "failed_ttl_hours expired"); err != nil {
				return result, err
			}
			result.FailedRemoved++
		}
	}

	if s.cfg.Cache.MaxBytes > 0 {
		removed, freed, err := s.enforceSizeBudget(ctx)
		if err != nil {
			return result, err
		}
		result.OversizeRemoved = removed
		result.BytesFreed = freed
	}

	return result, nil
}

func (s *Sweeper) evict(ctx context.Context, entry metadata.CacheEntry, reason string) error {
	if err := s.coordinator.Delete(ctx, entry.CacheKey); err != nil {
		return err
	}
	s.logger.Info("evicted cache entry",
		logging.String("cache_key", entry.CacheKey),
		logging.String("source_ref", entry.SourceRef),
		logging.String("reason", reason))
	return nil
}

func (s *Sweeper) enforceSizeBudget(ctx context.Context) (int, int64, error) {
	entries, err := s.store.CompletedCacheEntriesByAge(ctx)
	if err != nil {
		return 0, 0, err
	}

	sizes := make([]int64, len(entries))
	var total int64
	for i, entry := range entries {
		size, err := s.bundles.Size(string(entry.SourceType), entry.CacheKey)
		if err != nil {
			return 0, 0, err
		}
		sizes[i] = size
		total += size
	}

	var removed int
	var freed int64
	for i := 0; total > s.cfg.Cache.MaxBytes && i < len(entries); i++ {
		if err := s.evict(ctx, entries[i], "cache_max_bytes exceeded"); err != nil {
			return removed, freed, err
		}
		total -= sizes[i]
		freed += sizes[i]
		removed++
	}
	return removed, freed, nil
}

// StartPeriodic launches a background goroutine that runs Run on
// cfg.Cache.SweepIntervalSeconds until ctx is cancelled.
func (s *Sweeper) StartPeriodic(ctx context.Context) {
	interval := time.Duration(s.cfg.Cache.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Run(ctx); err != nil {
					s.logger.Warn("gc sweep failed", logging.Error(err))
				}
			}
		}
	}()
}
