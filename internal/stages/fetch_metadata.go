package stages

import (
	"context"
	"log/slog"
	"strings"

	"vidsum/internal/adapters/downloader"
	"vidsum/internal/logging"
	"vidsum/internal/pipeline"
)

// FetchMetadataHandler resolves a URL source's duration, display name, and
// whether it advertises subtitles, before the pipeline decides whether to
// attempt subtitles first.
type FetchMetadataHandler struct {
	downloader downloader.Downloader
	logger     *slog.Logger
}

// NewFetchMetadataHandler builds a FetchMetadataHandler over dl.
func NewFetchMetadataHandler(dl downloader.Downloader) *FetchMetadataHandler {
	return &FetchMetadataHandler{downloader: dl, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *FetchMetadataHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op; the stage has nothing to stage before Execute.
func (h *FetchMetadataHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

// Execute fetches metadata for item.SourceRef and populates duration,
// display name, and the subtitles-advertised flag.
func (h *FetchMetadataHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	meta, err := h.downloader.FetchMetadata(ctx, item.SourceRef)
	if err != nil {
		return err
	}

	if item.SourceName == "" && strings.TrimSpace(meta.Title) != "" {
		item.SourceName = meta.Title
	}
	item.SubtitlesAdvertised = meta.SubtitlesAdvertised
	item.DurationKnown = meta.HasDuration
	if meta.HasDuration {
		item.DurationMS = int64(meta.DurationSeconds * 1000)
	}

	item.ProgressStage = "fetch_metadata"
	item.ProgressMessage = "fetched source metadata"
	h.logger.Debug("fetched metadata",
		logging.Bool("has_duration", meta.HasDuration),
		logging.Bool("subtitles_advertised", meta.SubtitlesAdvertised),
	)
	return nil
}

// HealthCheck reports the stage ready whenever a downloader is configured;
// the downloader binary's own presence is probed once at daemon startup
// instead of on every health check.
func (h *FetchMetadataHandler) HealthCheck(ctx context.Context) pipeline.Health {
	if h.downloader == nil {
		return pipeline.Health{Healthy: false, Detail: "no downloader configured"}
	}
	return pipeline.Health{Healthy: true}
}
