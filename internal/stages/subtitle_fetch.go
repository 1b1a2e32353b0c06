package stages

import (
	"context"
	"log/slog"

	"vidsum/internal/adapters/subtitlefetch"
	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/logging"
	"vidsum/internal/pipeline"
	"vidsum/internal/subtitle"
)

// SubtitleFetchHandler attempts to obtain a subtitle track for a URL source
// before falling back to downloading and transcribing.
type SubtitleFetchHandler struct {
	fetcher subtitlefetch.Fetcher
	cfg     config.URLSource
	logger  *slog.Logger
}

// NewSubtitleFetchHandler builds a SubtitleFetchHandler over fetcher, bound
// by the url_source config thresholds.
func NewSubtitleFetchHandler(fetcher subtitlefetch.Fetcher, cfg config.URLSource) *SubtitleFetchHandler {
	return &SubtitleFetchHandler{fetcher: fetcher, cfg: cfg, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *SubtitleFetchHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op.
func (h *SubtitleFetchHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

// Execute downloads and parses the source's subtitle track, if any, and
// validates its coverage against cfg.CoverageMin.
func (h *SubtitleFetchHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	content, ok, err := h.fetcher.FetchSubtitle(ctx, item.SourceRef, "en", item.StagingDir)
	if err != nil {
		return err
	}
	if !ok {
		h.logger.Debug("no subtitle track available, falling back to transcription")
		return nil
	}
	if int64(len(content)) > h.cfg.SubtitleMaxSizeBytes {
		return apperr.New(apperr.KindTooLarge, "stages:subtitle_fetch", "subtitle track exceeds the configured size limit")
	}

	segments, _, err := subtitle.Parse(content)
	if err != nil {
		h.logger.Warn("fetched subtitle failed to parse, falling back to transcription", logging.Error(err))
		return nil
	}

	coverage := subtitle.Coverage(segments, item.DurationMS)
	valid := coverage >= h.cfg.CoverageMin
	if !item.DurationKnown {
		valid = true // subtitle-first optimism when duration is unknown
	}

	item.Segments = segments
	item.SubtitlesValid = valid
	item.ProgressStage = "subtitle_fetch"
	if valid {
		path, err := writeText(item.StagingDir, "fetched_subtitle", content)
		if err != nil {
			return err
		}
		item.SubtitlePath = path
		item.ProgressMessage = "subtitles passed the coverage check"
	} else {
		item.ProgressMessage = "subtitles failed the coverage check, falling back to transcription"
		h.logger.Info("subtitle coverage below threshold",
			logging.Float64("coverage", coverage),
			logging.Float64("coverage_min", h.cfg.CoverageMin),
		)
	}
	return nil
}

// HealthCheck reports the stage ready whenever a fetcher is configured.
func (h *SubtitleFetchHandler) HealthCheck(ctx context.Context) pipeline.Health {
	if h.fetcher == nil {
		return pipeline.Health{Healthy: false, Detail: "no subtitle fetcher configured"}
	}
	return pipeline.Health{Healthy: true}
}
