package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"vidsum/internal/apperr"
	"vidsum/internal/logging"
	"vidsum/internal/media"
	"vidsum/internal/pipeline"
)

// ExtractAudioHandler converts item.VideoPath into a wav file suitable for
// ASR, bounded by the shared transcode semaphore. It is skipped when subtitles already validated, or when
// the item already carries an audio path (local audio-upload branch).
type ExtractAudioHandler struct {
	ffmpegBinary string
	sem          *semaphore.Weighted
	logger       *slog.Logger
}

// NewExtractAudioHandler builds an ExtractAudioHandler, acquiring sem for
// the duration of each ffmpeg invocation.
func NewExtractAudioHandler(ffmpegBinary string, sem *semaphore.Weighted) *ExtractAudioHandler {
	return &ExtractAudioHandler{ffmpegBinary: ffmpegBinary, sem: sem, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *ExtractAudioHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op; the semaphore is acquired in Execute so a context
// deadline exceeded while waiting is attributed to this stage, not Prepare.
func (h *ExtractAudioHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

// Execute extracts audio from item.VideoPath into the staging directory.
func (h *ExtractAudioHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	if item.SubtitlesValid || item.AudioPath != "" {
		return nil
	}
	if item.VideoPath == "" {
		return fmt.Errorf("stages:extract_audio: no video path set on item")
	}

	if h.sem != nil {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return apperr.Wrap(apperr.KindTimeout, "stages:extract_audio", "timed out waiting for a transcode slot", err)
		}
		defer h.sem.Release(1)
	}

	dest := filepath.Join(item.StagingDir, "audio.wav")
	if err := media.ExtractAudio(ctx, h.ffmpegBinary, item.VideoPath, dest); err != nil {
		return err
	}

	item.AudioPath = dest
	item.ProgressStage = "extract_audio"
	item.ProgressMessage = "extracted audio from video"
	return nil
}

// HealthCheck always reports healthy; ffmpeg's presence is probed by the
// daemon's startup preflight rather than per health check.
func (h *ExtractAudioHandler) HealthCheck(ctx context.Context) pipeline.Health {
	return pipeline.Health{Healthy: true}
}
