package stages

import (
	"context"
	"testing"

	"vidsum/internal/adapters/downloader"
	"vidsum/internal/pipeline"
)

type fakeDownloader struct {
	meta        downloader.Metadata
	metaErr     error
	downloadTo  string
	downloadErr error
}

func (f *fakeDownloader) FetchMetadata(ctx context.Context, rawURL string) (downloader.Metadata, error) {
	return f.meta, f.metaErr
}

func (f *fakeDownloader) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	return f.downloadTo, f.downloadErr
}

func TestFetchMetadataHandlerPopulatesItem(t *testing.T) {
	dl := &fakeDownloader{meta: downloader.Metadata{
		Title:               "a talk",
		DurationSeconds:     90,
		HasDuration:         true,
		SubtitlesAdvertised: true,
	}}
	h := NewFetchMetadataHandler(dl)

	item := &pipeline.Item{SourceRef: "https://example.com/watch"}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if item.SourceName != "a talk" {
		t.Fatalf("SourceName = %q", item.SourceName)
	}
	if !item.DurationKnown || item.DurationMS != 90000 {
		t.Fatalf("DurationKnown = %v, DurationMS = %d", item.DurationKnown, item.DurationMS)
	}
	if !item.SubtitlesAdvertised {
		t.Fatal("expected SubtitlesAdvertised = true")
	}
}

func TestFetchMetadataHandlerKeepsExplicitSourceName(t *testing.T) {
	dl := &fakeDownloader{meta: downloader.Metadata{Title: "ignored"}}
	h := NewFetchMetadataHandler(dl)

	item := &pipeline.Item{SourceRef: "https://example.com/watch", SourceName: "custom name"}
	if err := h.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if item.SourceName != "custom name" {
		t.Fatalf("SourceName = %q, want custom name preserved", item.SourceName)
	}
}

func TestFetchMetadataHandlerHealthCheck(t *testing.T) {
	h := NewFetchMetadataHandler(nil)
	if h.HealthCheck(context.Background()).Healthy {
		t.Fatal("expected unhealthy with no downloader configured")
	}
}
