package subtitlefetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"vidsum/internal/config"
)

func fakeCommand(t *testing.T, writeFile func(destDir string), exitFail bool) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if exitFail {
			return exec.CommandContext(ctx, "sh", "-c", "exit 1")
		}
		var destDir string
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				destDir = filepath.Dir(args[i+1])
			}
		}
		if writeFile != nil {
			writeFile(destDir)
		}
		return exec.CommandContext(ctx, "true")
	}
	t.Cleanup(func() { commandContext = original })
}

func TestFetchSubtitleReturnsContentWhenFileWritten(t *testing.T) {
	fakeCommand(t, func(destDir string) {
		if err := os.WriteFile(filepath.Join(destDir, "subtitle.en.vtt"), []byte("WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello\n"), 0o644); err != nil {
			t.Fatalf("write fake subtitle: %v", err)
		}
	}, false)

	cfg := config.Default()
	fetcher := New(&cfg)

	content, ok, err := fetcher.FetchSubtitle(context.Background(), "https://example.com/watch", "en", t.TempDir())
	if err != nil {
		t.Fatalf("FetchSubtitle() error = %v", err)
	}
	if !ok {
		t.Fatal("FetchSubtitle() ok = false, want true")
	}
	if content == "" {
		t.Fatal("FetchSubtitle() content is empty")
	}
}

func TestFetchSubtitleReturnsNotOkWhenNoFileProduced(t *testing.T) {
	fakeCommand(t, nil, false)

	cfg := config.Default()
	fetcher := New(&cfg)

	_, ok, err := fetcher.FetchSubtitle(context.Background(), "https://example.com/watch", "en", t.TempDir())
	if err != nil {
		t.Fatalf("FetchSubtitle() error = %v", err)
	}
	if ok {
		t.Fatal("FetchSubtitle() ok = true, want false when no file was produced")
	}
}

func TestFetchSubtitleReturnsNotOkOnExitError(t *testing.T) {
	fakeCommand(t, nil, true)

	cfg := config.Default()
	fetcher := New(&cfg)

	_, ok, err := fetcher.FetchSubtitle(context.Background(), "https://example.com/watch", "en", t.TempDir())
	if err != nil {
		t.Fatalf("FetchSubtitle() error = %v", err)
	}
	if ok {
		t.Fatal("FetchSubtitle() ok = true, want false on exit error")
	}
}
