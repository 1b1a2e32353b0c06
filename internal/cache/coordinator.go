package cache

import (
	"context"

	"vidsum/internal/apperr"
	"vidsum/internal/bundle"
	"vidsum/internal/cachekey"
	"vidsum/internal/config"
	"vidsum/internal/metadata"
	"vidsum/internal/pipeline"
)

// JobCanceller interrupts a cache_key's currently running job, if any.
// Implemented by jobqueue.Queue; kept as a narrow interface here so cache
// does not import jobqueue.
type JobCanceller interface {
	CancelJob(cacheKey string) bool
}

// Coordinator is the single entry point for turning a source (URL or local
// upload) into a cache_key, a job, and eventually a runnable pipeline.Item.
// It owns the metadata.Store <-> bundle.Store wiring that neither store can
// do on its own.
type Coordinator struct {
	store          *metadata.Store
	bundles        *bundle.Store
	prober         cachekey.Prober
	profileVersion int
	trackingParams []string
	canceller      JobCanceller
}

// New builds a Coordinator from its dependencies plus cfg.Cache.ProfileVersion
// and cfg.URLSource.TrackingQueryParams. canceller may be nil (as in tests
// that never dispatch real workers); Delete then simply skips cancellation.
func New(store *metadata.Store, bundles *bundle.Store, prober cachekey.Prober, cfg *config.Config, canceller JobCanceller) *Coordinator {
	return &Coordinator{
		store:          store,
		bundles:        bundles,
		prober:         prober,
		profileVersion: cfg.Cache.ProfileVersion,
		trackingParams: cfg.URLSource.TrackingQueryParams,
		canceller:      canceller,
	}
}

// Lookup is the result of a get-or-create call. Item is non-nil only when
// genuinely new (or reset-by-refresh) work must be dispatched to a worker.
// When the entry already has a job pending or running, JobID names it but
// Item stays nil, since dispatching it again would run the same job on two
// workers at once.
type Lookup struct {
	Entry metadata.CacheEntry
	Hit   bool
	JobID string
	Item  *pipeline.Item
}

// validator adapts bundle.Store.Validate to metadata.BundleValidator, the
// seam that keeps metadata from importing bundle.
func (c *Coordinator) validator() metadata.BundleValidator {
	return func(entry metadata.CacheEntry) bool {
		return c.bundles.Validate(string(entry.SourceType), entry.CacheKey)
	}
}

// LookupURL resolves the cache_key for rawURL (probing it first when a
// prober is configured) and runs get_or_create against it.
func (c *Coordinator) LookupURL(ctx context.Context, rawURL, sourceName string, refresh bool) (Lookup, error) {
	key := cachekey.ForURL(ctx, rawURL, c.profileVersion, c.prober, c.trackingParams)
	return c.getOrCreate(ctx, key, metadata.SourceURL, rawURL, sourceName, refresh, nil)
}

// LookupLocal resolves the cache_key for an uploaded file's content hash
// and runs get_or_create against it. upload carries the file_type and
// stored path the local pipeline branch dispatches on.
func (c *Coordinator) LookupLocal(ctx context.Context, upload metadata.Upload, sourceName string, refresh bool) (Lookup, error) {
	key := cachekey.ForLocal(upload.FileHash, c.profileVersion)
	return c.getOrCreate(ctx, key, metadata.SourceLocal, upload.FileID, sourceName, refresh, &upload)
}

func (c *Coordinator) getOrCreate(ctx context.Context, key string, sourceType metadata.SourceType, sourceRef, sourceName string, refresh bool, upload *metadata.Upload) (Lookup, error) {
	result, err := c.store.GetOrCreate(ctx, key, sourceType, sourceRef, sourceName, c.profileVersion, refresh, c.validator())
	if err != nil {
		return Lookup{}, err
	}

	lookup := Lookup{Entry: result.Entry, Hit: result.Hit}
	if result.Job == nil {
		return lookup, nil
	}
	lookup.JobID = result.Job.JobID
	if !result.Created {
		// A job for this cache_key is already pending or running: report it
		// without staging a second bundle directory or handing back an Item
		// the caller would enqueue a second time.
		return lookup, nil
	}

	stagingDir, err := c.bundles.Stage(result.Job.JobID, key, string(sourceType), sourceRef, sourceName, c.profileVersion)
	if err != nil {
		return Lookup{}, err
	}
	item := &pipeline.Item{
		JobID:      result.Job.JobID,
		CacheKey:   key,
		SourceType: sourceType,
		SourceRef:  sourceRef,
		SourceName: sourceName,
		StagingDir: stagingDir,
	}
	if upload != nil {
		item.FileType = upload.FileType
		switch upload.FileType {
		case metadata.FileTypeVideo:
			item.VideoPath = upload.StoredPath
		case metadata.FileTypeAudio:
			item.AudioPath = upload.StoredPath
		case metadata.FileTypeSubtitle:
			item.SubtitlePath = upload.StoredPath
		}
	}
	lookup.Item = item
	return lookup, nil
}

// ProbeURL resolves rawURL's cache_key and reports whether a cache entry
// already exists for it, without ever creating one.
func (c *Coordinator) ProbeURL(ctx context.Context, rawURL string) (Lookup, error) {
	key := cachekey.ForURL(ctx, rawURL, c.profileVersion, c.prober, c.trackingParams)
	return c.probe(ctx, key)
}

// ProbeLocal is ProbeURL's counterpart for an uploaded file's content hash.
func (c *Coordinator) ProbeLocal(ctx context.Context, fileHash string) (Lookup, error) {
	key := cachekey.ForLocal(fileHash, c.profileVersion)
	return c.probe(ctx, key)
}

func (c *Coordinator) probe(ctx context.Context, key string) (Lookup, error) {
	entry, err := c.store.GetCacheEntry(ctx, key)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return Lookup{Entry: metadata.CacheEntry{CacheKey: key}, Hit: false}, nil
		}
		return Lookup{}, err
	}
	return Lookup{Entry: entry, Hit: entry.Status == metadata.StatusCompleted && c.bundles.Validate(string(entry.SourceType), entry.CacheKey)}, nil
}

// Delete evicts a cache entry's metadata row and its promoted bundle. Any
// job still running against cacheKey is cancelled first, so its worker
// observes cancellation at its next stage checkpoint, records
// failed:cancelled, and never promotes into the directory this call is
// about to remove.
func (c *Coordinator) Delete(ctx context.Context, cacheKey string) error {
	if c.canceller != nil {
		c.canceller.CancelJob(cacheKey)
	}
	entry, err := c.store.DeleteCacheEntry(ctx, cacheKey)
	if err != nil {
		return err
	}
	return c.bundles.Remove(string(entry.SourceType), cacheKey)
}

// DiscardInterrupted is called once at startup: jobs left running by a
// previous process are failed, and their staging directories (which never
// promoted) are discarded.
func (c *Coordinator) DiscardInterrupted(ctx context.Context) error {
	jobIDs, err := c.store.SweepInterruptedJobs(ctx)
	if err != nil {
		return err
	}
	for _, jobID := range jobIDs {
		if err := c.bundles.Discard(jobID); err != nil {
			return err
		}
	}
	return nil
}
