package jobqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/logging"
	"vidsum/internal/metadata"
	"vidsum/internal/pipeline"
)

// StageBuilder constructs the stage chain a job must run, chosen by the
// item's source type and (for local uploads) file type. Supplied by the
// caller that wires up concrete pipeline.Handler implementations, so this
// package stays free of adapter-specific imports.
type StageBuilder func(item *pipeline.Item) ([]pipeline.Stage, error)

// Queue is a bounded FIFO of pipeline.Items backed by a fixed worker pool.
// TranscodeSemaphore and TranscribeSemaphore are shared across all workers
// so a StageBuilder's handlers can rate-limit the two CPU/GPU-bound steps
// independently of worker_count.
type Queue struct {
	cfg      *config.Config
	store    *metadata.Store
	notifier pipeline.Notifier
	logger   *slog.Logger
	build    StageBuilder

	transcode  *semaphore.Weighted
	transcribe *semaphore.Weighted

	items chan *pipeline.Item

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	jobsMu sync.Mutex
	jobs   map[string]context.CancelFunc
}

// New builds a Queue sized from cfg.Pipeline. build is called once per
// dequeued item to determine which stages to run.
func New(cfg *config.Config, store *metadata.Store, notifier pipeline.Notifier, logger *slog.Logger, build StageBuilder) *Queue {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		cfg:        cfg,
		store:      store,
		notifier:   notifier,
		logger:     logger,
		build:      build,
		transcode:  semaphore.NewWeighted(int64(cfg.Pipeline.TranscodeConcurrency)),
		transcribe: semaphore.NewWeighted(int64(cfg.Pipeline.TranscribeConcurrency)),
		items:      make(chan *pipeline.Item, cfg.Pipeline.QueueCapacity),
		jobs:       make(map[string]context.CancelFunc),
	}
}

// TranscodeSemaphore is shared by every pipeline.Handler that invokes a
// transcode-class external process.
func (q *Queue) TranscodeSemaphore() *semaphore.Weighted { return q.transcode }

// TranscribeSemaphore is shared by every pipeline.Handler that invokes a
// transcribe-class external process.
func (q *Queue) TranscribeSemaphore() *semaphore.Weighted { return q.transcribe }

// SetBuilder installs the StageBuilder after construction. Callers that need
// the queue's own semaphores to build handlers (internal/stages) construct
// the Queue first, wire a StageBuilder against TranscodeSemaphore/
// TranscribeSemaphore, then install it here before Start.
func (q *Queue) SetBuilder(build StageBuilder) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.build = build
}

// CancelJob interrupts the worker currently running cache_key's job, if any.
// It reports whether a running job was found and cancelled; a cache_key
// with no active worker (already queued only, or already finished) is not
// an error. The cancelled worker observes ctx.Done() at its next stage
// checkpoint, fails the job as cancelled, and never reaches Promote.
func (q *Queue) CancelJob(cacheKey string) bool {
	q.jobsMu.Lock()
	cancel, ok := q.jobs[cacheKey]
	q.jobsMu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

func (q *Queue) registerJob(cacheKey string, cancel context.CancelFunc) {
	q.jobsMu.Lock()
	q.jobs[cacheKey] = cancel
	q.jobsMu.Unlock()
}

func (q *Queue) unregisterJob(cacheKey string) {
	q.jobsMu.Lock()
	delete(q.jobs, cacheKey)
	q.jobsMu.Unlock()
}

// Enqueue submits item for processing. It returns a too-many-requests
// apperr when the bounded FIFO is full rather than blocking the caller.
func (q *Queue) Enqueue(item *pipeline.Item) error {
	select {
	case q.items <- item:
		return nil
	default:
		return apperr.New(apperr.KindTooManyRequests, "jobqueue:enqueue", "job queue is at capacity")
	}
}

// Start launches worker_count workers, each pulling items off the FIFO and
// running them to completion through pipeline.Run. Stop cancels the
// worker context and waits for every worker to exit via wg.Wait.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return apperr.New(apperr.KindInvalidArgument, "jobqueue:start", "job queue already running")
	}
	workerCount := q.cfg.Pipeline.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true
	q.wg.Add(workerCount)
	q.mu.Unlock()

	for i := 0; i < workerCount; i++ {
		go q.worker(runCtx, i)
	}
	return nil
}

// Stop cancels every worker and waits for in-flight jobs to unwind.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	cancel := q.cancel
	q.running = false
	q.cancel = nil
	q.mu.Unlock()

	cancel()
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger := q.logger.With(logging.Int("worker_id", id))

	stageTimeout := time.Duration(q.cfg.Pipeline.StageWaitSeconds) * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-q.items:
			q.run(ctx, logger, item, stageTimeout)
		}
	}
}

func (q *Queue) run(ctx context.Context, logger *slog.Logger, item *pipeline.Item, stageTimeout time.Duration) {
	stages, err := q.build(item)
	if err != nil {
		logger.Error("failed to build stage chain", logging.Error(err), logging.String("job_id", item.JobID))
		if failErr := q.store.FailJob(ctx, item.JobID, err.Error()); failErr != nil {
			logger.Error("failed to persist stage-build failure", logging.Error(failErr))
		}
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	q.registerJob(item.CacheKey, cancel)
	defer func() {
		q.unregisterJob(item.CacheKey)
		cancel()
	}()

	err = pipeline.Run(jobCtx, pipeline.Options{
		Logger:       logger,
		Store:        q.store,
		Notifier:     q.notifier,
		Stages:       stages,
		Item:         item,
		StageTimeout: stageTimeout,
	})
	if err != nil {
		logger.Warn("job did not complete", logging.Error(err), logging.String("job_id", item.JobID))
	}
}
