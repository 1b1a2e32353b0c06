package stages

import (
	"context"
	"log/slog"
	"os"

	"vidsum/internal/adapters/downloader"
	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/logging"
	"vidsum/internal/pipeline"
)

// DownloadVideoHandler fetches the source video when subtitles did not pass
// validation. It is skipped entirely when
// item.SubtitlesValid is already true.
type DownloadVideoHandler struct {
	downloader downloader.Downloader
	cfg        config.URLSource
	logger     *slog.Logger
}

// NewDownloadVideoHandler builds a DownloadVideoHandler over dl.
func NewDownloadVideoHandler(dl downloader.Downloader, cfg config.URLSource) *DownloadVideoHandler {
	return &DownloadVideoHandler{downloader: dl, cfg: cfg, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *DownloadVideoHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op.
func (h *DownloadVideoHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

// Execute downloads the source video, enforcing video_max_size_bytes after
// the fact since yt-dlp has no reliable pre-download size oracle for every
// source site.
func (h *DownloadVideoHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	if item.SubtitlesValid {
		return nil
	}

	path, err := h.downloader.Download(ctx, item.SourceRef, item.StagingDir)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > h.cfg.VideoMaxSizeBytes {
		os.Remove(path)
		return apperr.New(apperr.KindTooLarge, "stages:download_video", "downloaded video exceeds the configured size limit")
	}

	item.VideoPath = path
	item.ProgressStage = "download_video"
	item.ProgressMessage = "downloaded source video"
	return nil
}

// HealthCheck reports the stage ready whenever a downloader is configured.
func (h *DownloadVideoHandler) HealthCheck(ctx context.Context) pipeline.Health {
	if h.downloader == nil {
		return pipeline.Health{Healthy: false, Detail: "no downloader configured"}
	}
	return pipeline.Health{Healthy: true}
}
