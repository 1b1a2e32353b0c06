package metadata

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vidsum/internal/apperr"
	"vidsum/internal/idgen"
)

// ErrCacheEntryNotFound is returned when a cache_key has no entry.
var ErrCacheEntryNotFound = errors.New("cache entry not found")

// GetOrCreateResult reports the outcome of a get_or_create call: Entry is
// always populated; Job is non-nil whenever a job is associated with the
// entry, whether newly created or already in flight. Created is true only
// for the former case — the caller must dispatch a job to a worker when
// Created is true, and must not when it is false, so that an entry with an
// already-pending or already-running job is never dispatched twice.
type GetOrCreateResult struct {
	Entry   CacheEntry
	Job     *Job
	Created bool
	Hit     bool
}

// BundleValidator checks whether the bundle at entry.BundlePath is still a
// valid, complete artifact set for entry.ProfileVersion. Passed in by the
// caller (internal/bundle) to avoid a store -> bundle import cycle.
type BundleValidator func(entry CacheEntry) bool

// GetOrCreate implements the cache coordinator's core transition, executed inside a single sql.Tx so two concurrent requests for the
// same cache_key never both take the "create" branch.
func (s *Store) GetOrCreate(ctx context.Context, cacheKey string, sourceType SourceType, sourceRef, sourceName string, profileVersion int, refresh bool, validate BundleValidator) (GetOrCreateResult, error) {
	var result GetOrCreateResult

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		entry, found, err := loadCacheEntry(ctx, tx, cacheKey)
		if err != nil {
			return err
		}

		switch {
		case found && refresh && (entry.Status == StatusPending || entry.Status == StatusRunning):
			// A job is already in flight for this key: refresh must not stack
			// a second one on top of it. Report the active job as-is, same as
			// the non-refresh pending/running branch below.
			job, err := activeJobForKey(ctx, tx, cacheKey)
			if err != nil {
				return err
			}
			result = GetOrCreateResult{Entry: entry, Job: job}

		case found && refresh:
			entry.Status = StatusPending
			entry.SummaryText = ""
			entry.BundlePath = ""
			entry.Error = ""
			entry.UpdatedAt = now
			entry.LastAccessed = now
			job, err := createJob(ctx, tx, cacheKey, now)
			if err != nil {
				return err
			}
			entry.ActiveJobID = job.JobID
			if err := updateCacheEntry(ctx, tx, entry); err != nil {
				return err
			}
			result = GetOrCreateResult{Entry: entry, Job: &job, Created: true}

		case found && entry.Status == StatusCompleted && validate != nil && validate(entry):
			entry.LastAccessed = now
			if err := touchCacheEntry(ctx, tx, cacheKey, now); err != nil {
				return err
			}
			result = GetOrCreateResult{Entry: entry, Hit: true}

		case found && entry.Status == StatusCompleted:
			// Recorded as completed but the bundle failed validation: treat
			// as a miss and re-run, same as a fresh failure.
			entry.Status = StatusPending
			entry.SummaryText = ""
			entry.BundlePath = ""
			entry.Error = ""
			entry.UpdatedAt = now
			entry.LastAccessed = now
			job, err := createJob(ctx, tx, cacheKey, now)
			if err != nil {
				return err
			}
			entry.ActiveJobID = job.JobID
			if err := updateCacheEntry(ctx, tx, entry); err != nil {
				return err
			}
			result = GetOrCreateResult{Entry: entry, Job: &job, Created: true}

		case found && (entry.Status == StatusPending || entry.Status == StatusRunning):
			job, err := activeJobForKey(ctx, tx, cacheKey)
			if err != nil {
				return err
			}
			result = GetOrCreateResult{Entry: entry, Job: job}

		case found && entry.Status == StatusFailed:
			result = GetOrCreateResult{Entry: entry}

		case !found:
			entry = CacheEntry{
				CacheKey:       cacheKey,
				SourceType:     sourceType,
				SourceRef:      sourceRef,
				SourceName:     sourceName,
				Status:         StatusPending,
				ProfileVersion: profileVersion,
				CreatedAt:      now,
				UpdatedAt:      now,
				LastAccessed:   now,
			}
			if err := insertCacheEntry(ctx, tx, entry); err != nil {
				return err
			}
			job, err := createJob(ctx, tx, cacheKey, now)
			if err != nil {
				return err
			}
			entry.ActiveJobID = job.JobID
			if err := setActiveJobID(ctx, tx, cacheKey, job.JobID); err != nil {
				return err
			}
			result = GetOrCreateResult{Entry: entry, Job: &job, Created: true}

		default:
			result = GetOrCreateResult{Entry: entry}
		}
		return nil
	})
	if err != nil {
		return GetOrCreateResult{}, err
	}
	return result, nil
}

// StartJob transitions cache_key and its active job to running, called by a
// worker after dequeueing. It no-ops the cache_entries update (while still
// recording the cache_jobs transition) when jobID is no longer the entry's
// active_job_id, since the entry has since moved on to a different job.
func (s *Store) StartJob(ctx context.Context, jobID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		var cacheKey string
		if err := tx.QueryRowContext(ctx, "SELECT cache_key FROM cache_jobs WHERE job_id = ?", jobID).Scan(&cacheKey); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.Wrap(apperr.KindNotFound, "metadata:start_job", "no such job_id", errJobNotFound)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE cache_jobs SET status = ?, updated_at = ? WHERE job_id = ?",
			string(StatusRunning), now, jobID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE cache_entries SET status = ?, updated_at = ? WHERE cache_key = ? AND active_job_id = ?",
			string(StatusRunning), now, cacheKey, jobID)
		return err
	})
}

// CompleteJob records a successful pipeline run: the entry gets its summary
// and bundle path, and the job terminates completed. The cache_entries
// write is scoped to active_job_id so a job cancelled and superseded by a
// refresh or a delete-then-recreate can never overwrite the newer run's
// state, even if it manages to finish after the fact.
func (s *Store) CompleteJob(ctx context.Context, jobID, summaryText, bundlePath string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		var cacheKey string
		if err := tx.QueryRowContext(ctx, "SELECT cache_key FROM cache_jobs WHERE job_id = ?", jobID).Scan(&cacheKey); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.Wrap(apperr.KindNotFound, "metadata:complete_job", "no such job_id", errJobNotFound)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE cache_jobs SET status = ?, updated_at = ? WHERE job_id = ?",
			string(StatusCompleted), now, jobID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE cache_entries SET status = ?, summary_text = ?, bundle_path = ?, error = '', updated_at = ?
			WHERE cache_key = ? AND active_job_id = ?`,
			string(StatusCompleted), summaryText, bundlePath, now, cacheKey, jobID)
		return err
	})
}

// FailJob records a failed pipeline run: the entry and job both terminate
// failed with the given message. Scoped by active_job_id for the same
// reason as CompleteJob.
func (s *Store) FailJob(ctx context.Context, jobID, errMessage string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		var cacheKey string
		if err := tx.QueryRowContext(ctx, "SELECT cache_key FROM cache_jobs WHERE job_id = ?", jobID).Scan(&cacheKey); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.Wrap(apperr.KindNotFound, "metadata:fail_job", "no such job_id", errJobNotFound)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE cache_jobs SET status = ?, error = ?, updated_at = ? WHERE job_id = ?",
			string(StatusFailed), errMessage, now, jobID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE cache_entries SET status = ?, error = ?, updated_at = ? WHERE cache_key = ? AND active_job_id = ?",
			string(StatusFailed), errMessage, now, cacheKey, jobID)
		return err
	})
}

// GetCacheEntry returns the entry for cacheKey.
func (s *Store) GetCacheEntry(ctx context.Context, cacheKey string) (CacheEntry, error) {
	var entry CacheEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := true, error(nil)
		entry, found, err = loadCacheEntry(ctx, tx, cacheKey)
		if err != nil {
			return err
		}
		if !found {
			return apperr.Wrap(apperr.KindNotFound, "metadata:get_cache_entry", "no such cache_key", ErrCacheEntryNotFound)
		}
		return nil
	})
	if err != nil {
		return CacheEntry{}, err
	}
	return entry, nil
}

// GetJob returns the job for jobID.
func (s *Store) GetJob(ctx context.Context, jobID string) (Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, cache_key, status, error, created_at, updated_at FROM cache_jobs WHERE job_id = ?`, jobID)
	var job Job
	var status string
	if err := row.Scan(&job.JobID, &job.CacheKey, &status, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, apperr.Wrap(apperr.KindNotFound, "metadata:get_job", "no such job_id", errJobNotFound)
		}
		return Job{}, err
	}
	job.Status = Status(status)
	return job, nil
}

// DeleteCacheEntry removes the entry and cascades to its jobs. The caller is responsible for removing entry.BundlePath.
func (s *Store) DeleteCacheEntry(ctx context.Context, cacheKey string) (CacheEntry, error) {
	var entry CacheEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var found bool
		var err error
		entry, found, err = loadCacheEntry(ctx, tx, cacheKey)
		if err != nil {
			return err
		}
		if !found {
			return apperr.Wrap(apperr.KindNotFound, "metadata:delete_cache_entry", "no such cache_key", ErrCacheEntryNotFound)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM cache_jobs WHERE cache_key = ?", cacheKey); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE cache_key = ?", cacheKey)
		return err
	})
	if err != nil {
		return CacheEntry{}, err
	}
	return entry, nil
}

// SweepInterruptedJobs transitions jobs left running from a previous process
// lifetime to failed:interrupted. It returns
// the job_ids whose staging directories the caller should discard.
func (s *Store) SweepInterruptedJobs(ctx context.Context) ([]string, error) {
	var jobIDs []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		rows, err := tx.QueryContext(ctx, "SELECT job_id, cache_key FROM cache_jobs WHERE status = ?", string(StatusRunning))
		if err != nil {
			return err
		}
		type pending struct{ jobID, cacheKey string }
		var stuck []pending
		for rows.Next() {
			var p pending
			if err := rows.Scan(&p.jobID, &p.cacheKey); err != nil {
				_ = rows.Close()
				return err
			}
			stuck = append(stuck, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		_ = rows.Close()

		const interrupted = "interrupted: process restarted while job was running"
		for _, p := range stuck {
			if _, err := tx.ExecContext(ctx, "UPDATE cache_jobs SET status = ?, error = ?, updated_at = ? WHERE job_id = ?",
				string(StatusFailed), interrupted, now, p.jobID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "UPDATE cache_entries SET status = ?, error = ?, updated_at = ? WHERE cache_key = ?",
				string(StatusFailed), interrupted, now, p.cacheKey); err != nil {
				return err
			}
			jobIDs = append(jobIDs, p.jobID)
		}
		return nil
	})
	return jobIDs, err
}

// CacheStats summarizes entry counts by status for health reporting.
func (s *Store) CacheStats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM cache_entries GROUP BY status")
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = rows.Close() }()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusRunning:
			stats.Running = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// StaleCacheEntries returns completed entries whose last_accessed is at or
// before cutoff, for the cache_ttl_days sweep.
func (s *Store) StaleCacheEntries(ctx context.Context, cutoff time.Time) ([]CacheEntry, error) {
	return s.queryCacheEntries(ctx,
		"status = ? AND last_accessed <= ? ORDER BY last_accessed ASC",
		string(StatusCompleted), cutoff.UTC())
}

// StaleFailedEntries returns failed entries whose updated_at is at or
// before cutoff, for the failed_ttl_hours sweep.
func (s *Store) StaleFailedEntries(ctx context.Context, cutoff time.Time) ([]CacheEntry, error) {
	return s.queryCacheEntries(ctx,
		"status = ? AND updated_at <= ? ORDER BY updated_at ASC",
		string(StatusFailed), cutoff.UTC())
}

// CompletedCacheEntriesByAge returns every completed entry, oldest
// last_accessed first, for the cache_max_bytes eviction sweep.
func (s *Store) CompletedCacheEntriesByAge(ctx context.Context) ([]CacheEntry, error) {
	return s.queryCacheEntries(ctx, "status = ? ORDER BY last_accessed ASC", string(StatusCompleted))
}

func (s *Store) queryCacheEntries(ctx context.Context, whereAndOrder string, args ...any) ([]CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, source_type, source_ref, status, summary_text, source_name, bundle_path, error,
		       profile_version, active_job_id, created_at, updated_at, last_accessed
		FROM cache_entries WHERE `+whereAndOrder, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []CacheEntry
	for rows.Next() {
		var entry CacheEntry
		var sourceType, status string
		if err := rows.Scan(&entry.CacheKey, &sourceType, &entry.SourceRef, &status, &entry.SummaryText,
			&entry.SourceName, &entry.BundlePath, &entry.Error, &entry.ProfileVersion, &entry.ActiveJobID,
			&entry.CreatedAt, &entry.UpdatedAt, &entry.LastAccessed); err != nil {
			return nil, err
		}
		entry.SourceType = SourceType(sourceType)
		entry.Status = Status(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

var errJobNotFound = errors.New("job not found")

func loadCacheEntry(ctx context.Context, tx *sql.Tx, cacheKey string) (CacheEntry, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT cache_key, source_type, source_ref, status, summary_text, source_name, bundle_path, error,
		       profile_version, active_job_id, created_at, updated_at, last_accessed
		FROM cache_entries WHERE cache_key = ?`, cacheKey)

	var entry CacheEntry
	var sourceType, status string
	err := row.Scan(&entry.CacheKey, &sourceType, &entry.SourceRef, &status, &entry.SummaryText, &entry.SourceName,
		&entry.BundlePath, &entry.Error, &entry.ProfileVersion, &entry.ActiveJobID, &entry.CreatedAt, &entry.UpdatedAt,
		&entry.LastAccessed)
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}
	entry.SourceType = SourceType(sourceType)
	entry.Status = Status(status)
	return entry, true, nil
}

func insertCacheEntry(ctx context.Context, tx *sql.Tx, entry CacheEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_key, source_type, source_ref, status, summary_text, source_name,
			bundle_path, error, profile_version, active_job_id, created_at, updated_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CacheKey, string(entry.SourceType), entry.SourceRef, string(entry.Status), entry.SummaryText,
		entry.SourceName, entry.BundlePath, entry.Error, entry.ProfileVersion, entry.ActiveJobID, entry.CreatedAt,
		entry.UpdatedAt, entry.LastAccessed)
	return err
}

func updateCacheEntry(ctx context.Context, tx *sql.Tx, entry CacheEntry) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cache_entries SET status = ?, summary_text = ?, bundle_path = ?, error = ?, active_job_id = ?,
			updated_at = ?, last_accessed = ?
		WHERE cache_key = ?`,
		string(entry.Status), entry.SummaryText, entry.BundlePath, entry.Error, entry.ActiveJobID, entry.UpdatedAt,
		entry.LastAccessed, entry.CacheKey)
	return err
}

func touchCacheEntry(ctx context.Context, tx *sql.Tx, cacheKey string, when time.Time) error {
	_, err := tx.ExecContext(ctx, "UPDATE cache_entries SET last_accessed = ? WHERE cache_key = ?", when, cacheKey)
	return err
}

func setActiveJobID(ctx context.Context, tx *sql.Tx, cacheKey, jobID string) error {
	_, err := tx.ExecContext(ctx, "UPDATE cache_entries SET active_job_id = ? WHERE cache_key = ?", jobID, cacheKey)
	return err
}

func createJob(ctx context.Context, tx *sql.Tx, cacheKey string, now time.Time) (Job, error) {
	job := Job{
		JobID:     idgen.JobID(),
		CacheKey:  cacheKey,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cache_jobs (job_id, cache_key, status, error, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, ?)`, job.JobID, job.CacheKey, string(job.Status), job.CreatedAt, job.UpdatedAt)
	return job, err
}

func activeJobForKey(ctx context.Context, tx *sql.Tx, cacheKey string) (*Job, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT job_id, cache_key, status, error, created_at, updated_at
		FROM cache_jobs WHERE cache_key = ? AND status IN (?, ?) ORDER BY created_at DESC LIMIT 1`,
		cacheKey, string(StatusPending), string(StatusRunning))

	var job Job
	var status string
	err := row.Scan(&job.JobID, &job.CacheKey, &status, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.Status = Status(status)
	return &job, nil
}
