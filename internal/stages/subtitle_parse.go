package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"vidsum/internal/config"
	"vidsum/internal/logging"
	"vidsum/internal/pipeline"
	"vidsum/internal/subtitle"
)

// SubtitleParseHandler parses an already-resolved subtitle file for the
// local upload branch.
// Unlike SubtitleFetchHandler there is no download step and, since there is
// no alternate video/audio source to fall back to, a coverage miss is
// logged but does not change the stage chain.
type SubtitleParseHandler struct {
	cfg    config.URLSource
	logger *slog.Logger
}

// NewSubtitleParseHandler builds a SubtitleParseHandler using the same
// coverage threshold the URL branch applies.
func NewSubtitleParseHandler(cfg config.URLSource) *SubtitleParseHandler {
	return &SubtitleParseHandler{cfg: cfg, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *SubtitleParseHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op.
func (h *SubtitleParseHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

// Execute parses item.SubtitlePath into segments.
func (h *SubtitleParseHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	if item.SubtitlePath == "" {
		return fmt.Errorf("stages:subtitle_parse: no subtitle path set on item")
	}
	data, err := os.ReadFile(item.SubtitlePath)
	if err != nil {
		return fmt.Errorf("stages:subtitle_parse: read %s: %w", item.SubtitlePath, err)
	}

	segments, _, err := subtitle.Parse(string(data))
	if err != nil {
		return fmt.Errorf("stages:subtitle_parse: %w", err)
	}

	coverage := subtitle.Coverage(segments, item.DurationMS)
	valid := coverage >= h.cfg.CoverageMin || !item.DurationKnown
	if !valid {
		h.logger.Warn("uploaded subtitle coverage below threshold, using it anyway",
			logging.Float64("coverage", coverage),
			logging.Float64("coverage_min", h.cfg.CoverageMin),
		)
	}

	item.Segments = segments
	item.SubtitlesValid = true
	item.ProgressStage = "subtitle_parse"
	item.ProgressMessage = "parsed uploaded subtitle"
	return nil
}

// HealthCheck always reports healthy; parsing has no external dependency.
func (h *SubtitleParseHandler) HealthCheck(ctx context.Context) pipeline.Health {
	return pipeline.Health{Healthy: true}
}
