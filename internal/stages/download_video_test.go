package stages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/pipeline"
)

func TestDownloadVideoHandlerSkippedWhenSubtitlesValid(t *testing.T) {
	dl := &fakeDownloader{}
	h := NewDownloadVideoHandler(dl, config.Default().URLSource)

	item := &pipeline.Item{SubtitlesValid: true}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if item.VideoPath != "" {
		t.Fatal("expected no download when subtitles already validated")
	}
}

func TestDownloadVideoHandlerSetsVideoPath(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(videoPath, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	dl := &fakeDownloader{downloadTo: videoPath}
	h := NewDownloadVideoHandler(dl, config.Default().URLSource)

	item := &pipeline.Item{StagingDir: dir}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if item.VideoPath != videoPath {
		t.Fatalf("VideoPath = %q, want %q", item.VideoPath, videoPath)
	}
}

func TestDownloadVideoHandlerRejectsOversizedDownload(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(videoPath, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	dl := &fakeDownloader{downloadTo: videoPath}
	cfg := config.Default().URLSource
	cfg.VideoMaxSizeBytes = 4
	h := NewDownloadVideoHandler(dl, cfg)

	item := &pipeline.Item{StagingDir: dir}
	err := h.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected an error for an oversized download")
	}
	if apperr.KindOf(err) != apperr.KindTooLarge {
		t.Fatalf("expected KindTooLarge, got %v", apperr.KindOf(err))
	}
	if _, statErr := os.Stat(videoPath); !os.IsNotExist(statErr) {
		t.Fatal("expected the oversized download to be removed")
	}
}
