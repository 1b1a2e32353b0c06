package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vidsum/internal/apperr"
	"vidsum/internal/logging"
	"vidsum/internal/metadata"
)

// Stage pairs a label with the handler that implements it. Stages run in
// sequence; the first one to fail marks the job failed and stops the chain.
type Stage struct {
	Name    string
	Handler Handler
}

// Notifier is the subset of internal/notifications.Service the pipeline
// needs. Kept minimal here to avoid a dependency from pipeline to the
// concrete ntfy transport.
type Notifier interface {
	NotifyJobFailed(ctx context.Context, jobID, cacheKey string, err error) error
	NotifyJobCompleted(ctx context.Context, jobID, cacheKey string) error
}

// Options controls execution of a stage chain for a single job.
type Options struct {
	Logger   *slog.Logger
	Store    *metadata.Store
	Notifier Notifier
	Stages   []Stage
	Item     *Item

	// StageTimeout bounds how long a single stage's Prepare+Execute may
	// run before it is treated as a failure.
	// Zero means no deadline.
	StageTimeout time.Duration
}

// Run executes every stage in order against Item, persisting job state
// transitions through Store, logging structured start/complete events per
// stage and one job_failure event when a stage fails.
func Run(ctx context.Context, opts Options) error {
	if opts.Store == nil {
		return fmt.Errorf("metadata store is required")
	}
	if opts.Item == nil {
		return fmt.Errorf("pipeline item is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobCtx := logging.WithJobID(logging.WithCacheKey(ctx, opts.Item.CacheKey), opts.Item.JobID)

	if err := opts.Store.StartJob(jobCtx, opts.Item.JobID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	for _, stage := range opts.Stages {
		if err := runStage(jobCtx, logger, stage, opts.Item, opts.StageTimeout); err != nil {
			return failJob(jobCtx, logger, opts.Store, opts.Notifier, opts.Item, err)
		}
	}

	if err := opts.Store.CompleteJob(jobCtx, opts.Item.JobID, opts.Item.SummaryText, opts.Item.StagingDir); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if opts.Notifier != nil {
		if err := opts.Notifier.NotifyJobCompleted(jobCtx, opts.Item.JobID, opts.Item.CacheKey); err != nil {
			logger.Debug("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

func runStage(ctx context.Context, logger *slog.Logger, stage Stage, item *Item, timeout time.Duration) error {
	if stage.Handler == nil {
		return apperr.New(apperr.KindInternal, "pipeline:"+stage.Name, "stage handler unavailable")
	}
	stageCtx := logging.WithStage(ctx, stage.Name)
	stageLogger := logging.WithContext(stageCtx, logger)
	if aware, ok := stage.Handler.(LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, timeout)
		defer cancel()
	}

	stageLogger.Info("stage started",
		logging.String(logging.FieldAlert, ""),
		logging.String("event", "stage_start"),
	)

	if err := stage.Handler.Prepare(stageCtx, item); err != nil {
		switch {
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			return apperr.Wrap(apperr.KindTimeout, "pipeline:"+stage.Name, "stage prepare timed out", err)
		case errors.Is(stageCtx.Err(), context.Canceled):
			return apperr.Wrap(apperr.KindCancelled, "pipeline:"+stage.Name, "cancelled", err)
		}
		return fmt.Errorf("stage %s prepare: %w", stage.Name, err)
	}
	if err := stage.Handler.Execute(stageCtx, item); err != nil {
		switch {
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			return apperr.Wrap(apperr.KindTimeout, "pipeline:"+stage.Name, "stage execute timed out", err)
		case errors.Is(stageCtx.Err(), context.Canceled):
			return apperr.Wrap(apperr.KindCancelled, "pipeline:"+stage.Name, "cancelled", err)
		}
		return fmt.Errorf("stage %s execute: %w", stage.Name, err)
	}

	stageLogger.Info("stage completed",
		logging.String("event", "stage_complete"),
		logging.String("progress_stage", item.ProgressStage),
		logging.String("progress_message", item.ProgressMessage),
	)
	return nil
}

func failJob(ctx context.Context, logger *slog.Logger, store *metadata.Store, notifier Notifier, item *Item, stageErr error) error {
	var appErr *apperr.Error
	message := stageErr.Error()
	if errors.As(stageErr, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}

	logger.Error("job failed",
		logging.String("event", "job_failure"),
		logging.String("kind", string(apperr.KindOf(stageErr))),
		logging.Error(stageErr),
	)

	if err := store.FailJob(ctx, item.JobID, message); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	if notifier != nil {
		if err := notifier.NotifyJobFailed(ctx, item.JobID, item.CacheKey, stageErr); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
	}
	return stageErr
}
