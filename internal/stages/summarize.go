package stages

import (
	"context"
	"log/slog"
	"strings"

	"vidsum/internal/config"
	"vidsum/internal/logging"
	"vidsum/internal/pipeline"
	"vidsum/internal/summarize"
)

// silentSummaryMarker is recorded as the summary for sources where
// transcription produced no usable speech: summarization is not skipped,
// but the model is not asked to summarize silence.
const silentSummaryMarker = "No speech was detected in this source."

// SummarizeHandler produces item.SummaryText from whichever transcript
// source the earlier stages populated: subtitle segments, an ASR
// transcript, or the silent marker.
type SummarizeHandler struct {
	client summarize.Summarizer
	cfg    config.Summarizer
	logger *slog.Logger
}

// NewSummarizeHandler builds a SummarizeHandler over client.
func NewSummarizeHandler(client summarize.Summarizer, cfg config.Summarizer) *SummarizeHandler {
	return &SummarizeHandler{client: client, cfg: cfg, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *SummarizeHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op.
func (h *SummarizeHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

// Execute summarizes whichever transcript source is available on item.
func (h *SummarizeHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	if item.IsSilent {
		item.SummaryText = silentSummaryMarker
		item.ProgressStage = "summarize"
		item.ProgressMessage = "recorded silence marker"
		return nil
	}

	text := transcriptText(item)
	if text == "" {
		item.SummaryText = silentSummaryMarker
		item.ProgressStage = "summarize"
		item.ProgressMessage = "no transcript available to summarize"
		return nil
	}

	summary, err := summarize.ChunkAndMerge(ctx, h.client, text, h.cfg)
	if err != nil {
		return err
	}

	item.SummaryText = summary
	item.ProgressStage = "summarize"
	item.ProgressMessage = "summarized transcript"
	return nil
}

func transcriptText(item *pipeline.Item) string {
	if item.SubtitlesValid && len(item.Segments) > 0 {
		lines := make([]string, 0, len(item.Segments))
		for _, seg := range item.Segments {
			if seg.Text != "" {
				lines = append(lines, seg.Text)
			}
		}
		return strings.Join(lines, " ")
	}
	return item.Transcript
}

// HealthCheck reports the stage ready whenever a summarizer client is
// configured.
func (h *SummarizeHandler) HealthCheck(ctx context.Context) pipeline.Health {
	if h.client == nil {
		return pipeline.Health{Healthy: false, Detail: "no summarizer configured"}
	}
	return pipeline.Health{Healthy: true}
}
