package stages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vidsum/internal/config"
	"vidsum/internal/pipeline"
)

func TestSubtitleParseHandlerParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload.vtt")
	if err := os.WriteFile(path, []byte(sampleVTT), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewSubtitleParseHandler(config.Default().URLSource)
	item := &pipeline.Item{SubtitlePath: path, DurationKnown: true, DurationMS: 10000}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(item.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(item.Segments))
	}
	if !item.SubtitlesValid {
		t.Fatal("expected SubtitlesValid = true")
	}
}

func TestSubtitleParseHandlerStaysValidOnLowCoverage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload.vtt")
	if err := os.WriteFile(path, []byte(sampleVTT), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewSubtitleParseHandler(config.Default().URLSource)
	item := &pipeline.Item{SubtitlePath: path, DurationKnown: true, DurationMS: 600000}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !item.SubtitlesValid {
		t.Fatal("local branch has no fallback source, so low coverage should still be used")
	}
}

func TestSubtitleParseHandlerErrorsWithoutPath(t *testing.T) {
	h := NewSubtitleParseHandler(config.Default().URLSource)
	item := &pipeline.Item{}
	if err := h.Execute(context.Background(), item); err == nil {
		t.Fatal("expected an error when no subtitle path is set")
	}
}
