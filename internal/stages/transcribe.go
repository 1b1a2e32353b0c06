package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"vidsum/internal/adapters/asr"
	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/logging"
	"vidsum/internal/media"
	"vidsum/internal/pipeline"
)

// TranscribeHandler runs ASR over item.AudioPath, bounded by the shared
// transcribe semaphore, and classifies the result as silent when either the
// measured RMS or the transcript's tokens-per-minute falls below the
// configured thresholds. It is skipped when subtitles
// already validated.
type TranscribeHandler struct {
	transcriber  asr.Transcriber
	ffmpegBinary string
	silence      config.Silence
	sem          *semaphore.Weighted
	logger       *slog.Logger
}

// NewTranscribeHandler builds a TranscribeHandler over transcriber.
func NewTranscribeHandler(transcriber asr.Transcriber, ffmpegBinary string, silence config.Silence, sem *semaphore.Weighted) *TranscribeHandler {
	return &TranscribeHandler{transcriber: transcriber, ffmpegBinary: ffmpegBinary, silence: silence, sem: sem, logger: logging.NewNop()}
}

// SetLogger installs a request-scoped logger.
func (h *TranscribeHandler) SetLogger(logger *slog.Logger) { h.logger = logger }

// Prepare is a no-op; the semaphore is acquired in Execute.
func (h *TranscribeHandler) Prepare(ctx context.Context, item *pipeline.Item) error {
	return nil
}

// Execute transcribes item.AudioPath and records the silence verdict.
func (h *TranscribeHandler) Execute(ctx context.Context, item *pipeline.Item) error {
	if item.SubtitlesValid {
		return nil
	}
	if item.AudioPath == "" {
		return fmt.Errorf("stages:transcribe: no audio path set on item")
	}

	if h.sem != nil {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return apperr.Wrap(apperr.KindTimeout, "stages:transcribe", "timed out waiting for a transcribe slot", err)
		}
		defer h.sem.Release(1)
	}

	rms, rmsErr := media.MeasureRMS(ctx, h.ffmpegBinary, item.AudioPath)
	if rmsErr != nil {
		h.logger.Warn("silence RMS measurement failed, falling back to token-rate check only", logging.Error(rmsErr))
	}

	transcript, err := h.transcriber.Transcribe(ctx, item.AudioPath)
	if err != nil {
		return err
	}
	transcript = strings.TrimSpace(transcript)

	silentByRMS := rmsErr == nil && rms < h.silence.RMSMax
	silentByTokens := false
	if item.DurationKnown && item.DurationMS > 0 {
		tokensPerMin := tokenRate(transcript, item.DurationMS)
		silentByTokens = tokensPerMin < h.silence.TokensPerMinMin
	}
	item.IsSilent = silentByRMS || silentByTokens

	if item.IsSilent {
		h.logger.Info("source classified as silent",
			logging.Bool("silent_by_rms", silentByRMS),
			logging.Bool("silent_by_tokens", silentByTokens),
		)
		item.Transcript = ""
	} else {
		item.Transcript = transcript
	}

	item.ProgressStage = "transcribe"
	item.ProgressMessage = "transcribed audio"
	return nil
}

func tokenRate(transcript string, durationMS int64) float64 {
	tokens := len(strings.Fields(transcript))
	minutes := float64(durationMS) / 60000
	if minutes <= 0 {
		return 0
	}
	return float64(tokens) / minutes
}

// HealthCheck reports the stage ready whenever a transcriber is configured.
func (h *TranscribeHandler) HealthCheck(ctx context.Context) pipeline.Health {
	if h.transcriber == nil {
		return pipeline.Health{Healthy: false, Detail: "no transcriber configured"}
	}
	return pipeline.Health{Healthy: true}
}
