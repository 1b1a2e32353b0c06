package stages

import (
	"context"
	"testing"

	"vidsum/internal/pipeline"
)

func TestExtractAudioHandlerSkippedWhenSubtitlesValid(t *testing.T) {
	h := NewExtractAudioHandler("ffmpeg", nil)
	item := &pipeline.Item{SubtitlesValid: true}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if item.AudioPath != "" {
		t.Fatal("expected no extraction when subtitles already validated")
	}
}

func TestExtractAudioHandlerSkippedWhenAudioPathAlreadySet(t *testing.T) {
	h := NewExtractAudioHandler("ffmpeg", nil)
	item := &pipeline.Item{AudioPath: "/uploads/clip.wav"}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if item.AudioPath != "/uploads/clip.wav" {
		t.Fatalf("AudioPath changed unexpectedly: %q", item.AudioPath)
	}
}

func TestExtractAudioHandlerErrorsWithoutVideoPath(t *testing.T) {
	h := NewExtractAudioHandler("ffmpeg", nil)
	item := &pipeline.Item{StagingDir: t.TempDir()}
	if err := h.Execute(context.Background(), item); err == nil {
		t.Fatal("expected an error when no video path is set")
	}
}

func TestExtractAudioHandlerHealthCheckAlwaysHealthy(t *testing.T) {
	h := NewExtractAudioHandler("ffmpeg", nil)
	if !h.HealthCheck(context.Background()).Healthy {
		t.Fatal("expected ExtractAudioHandler.HealthCheck to always report healthy")
	}
}
