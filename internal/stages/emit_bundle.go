package stages

import (
	"context"
	"encoding/json"
	"log/slog"

	"vidsum/internal/bundle"
	"vidsum/internal/logging"
	"vidsum/internal/pipeline"
)

// EmitBundleHandler writes the remaining artifacts into the staging
// directory and promotes it into its final cache location, the last step
// of every branch.
type EmitBundleHandler struct {
	bundles *bundle.Store
	logger  *slog.Logger
}

// NewEmitBundleHandler builds an EmitBundleHandler over bundles.
func NewEmitBundleHandler(bundles *bundle.Store) *EmitBundleHandler {
	return &EmitBundleHandler{bundles: bundles, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *EmitBundleHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op.
func (h *EmitBundleHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

type summaryDocument struct {
	SummaryText string `json:"summary_text"`
	IsSilent    bool   `json:"is_silent"`
}

// Execute writes summary.json (and asr.json/subtitle/video/audio when
// present), marks the bundle completed, and promotes it.
func (h *EmitBundleHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	summaryPath, err := writeJSON(item.StagingDir, bundle.ArtifactFilename(bundle.ArtifactSummary, ".json"), summaryDocument{
		SummaryText: item.SummaryText,
		IsSilent:    item.IsSilent,
	})
	if err != nil {
		return err
	}
	if _, err := h.bundles.AddArtifact(item.StagingDir, bundle.ArtifactSummary, summaryPath); err != nil {
		return err
	}

	if item.Transcript != "" {
		asrPath, err := writeJSON(item.StagingDir, bundle.ArtifactFilename(bundle.ArtifactASR, ".json"), map[string]string{"text": item.Transcript})
		if err != nil {
			return err
		}
		if _, err := h.bundles.AddArtifact(item.StagingDir, bundle.ArtifactASR, asrPath); err != nil {
			return err
		}
	}
	if item.SubtitlePath != "" {
		if _, err := h.bundles.AddArtifact(item.StagingDir, bundle.ArtifactSubtitle, item.SubtitlePath); err != nil {
			return err
		}
	}
	if item.VideoPath != "" {
		if _, err := h.bundles.AddArtifact(item.StagingDir, bundle.ArtifactVideo, item.VideoPath); err != nil {
			return err
		}
	}
	if item.AudioPath != "" {
		if _, err := h.bundles.AddArtifact(item.StagingDir, bundle.ArtifactAudio, item.AudioPath); err != nil {
			return err
		}
	}

	if err := h.bundles.SetMediaInfo(item.StagingDir, item.DurationMS, item.IsSilent); err != nil {
		return err
	}
	if err := h.bundles.MarkStatus(item.StagingDir, "completed", item.SummaryText, ""); err != nil {
		return err
	}

	final, err := h.bundles.Promote(item.JobID, string(item.SourceType), item.CacheKey)
	if err != nil {
		return err
	}
	item.StagingDir = final

	item.ProgressStage = "emit_bundle"
	item.ProgressMessage = "promoted bundle"
	return nil
}

func writeJSON(dir, name string, value any) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", err
	}
	return writeText(dir, name, string(data))
}

// HealthCheck verifies the bundle store's directories are accessible.
func (h *EmitBundleHandler) HealthCheck(ctx context.Context) pipeline.Health {
	if err := h.bundles.HealthCheck(); err != nil {
		return pipeline.Health{Healthy: false, Detail: err.Error()}
	}
	return pipeline.Health{Healthy: true}
}
