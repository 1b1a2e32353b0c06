package subtitlefetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
)

var commandContext = exec.CommandContext

// Fetcher downloads a source's advertised subtitle track.
type Fetcher interface {
	// FetchSubtitle writes the best available subtitle track for rawURL into
	// destDir and returns its raw content, or ok=false if the source has no
	// subtitle track to offer (not an error: callers fall back to
	// downloading and transcribing instead).
	FetchSubtitle(ctx context.Context, rawURL, lang, destDir string) (content string, ok bool, err error)
}

// Option configures a CLI fetcher.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps yt-dlp's --write-subs/--write-auto-subs flags.
type CLI struct {
	binary  string
	timeout time.Duration
}

// New constructs a CLI fetcher, reusing cfg.Downloader for the binary and
// timeout since both adapters shell out to the same yt-dlp installation.
func New(cfg *config.Config, opts ...Option) *CLI {
	binary := strings.TrimSpace(cfg.Downloader.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := time.Duration(cfg.Downloader.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	c := &CLI{binary: binary, timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSubtitle asks yt-dlp for rawURL's subtitle track (preferring a
// manual track, falling back to auto-generated captions) in lang, writing
// it under destDir. A non-zero yt-dlp exit or no subtitle file written
// (including "no subtitles available") is reported as ok=false with a nil
// error, so the URL pipeline branch can fall back to downloading and
// transcribing. A timeout returns a KindTimeout error, and a written file
// that cannot be read returns an error.
func (c *CLI) FetchSubtitle(ctx context.Context, rawURL, lang, destDir string) (string, bool, error) {
	if lang == "" {
		lang = "en"
	}
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outputTemplate := filepath.Join(destDir, "subtitle.%(ext)s")
	args := []string{
		"--no-warnings",
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", lang,
		"-o", outputTemplate,
		rawURL,
	}
	cmd := commandContext(runCtx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return "", false, apperr.Wrap(apperr.KindTimeout, "subtitlefetch:fetch", "subtitle fetch timed out", runCtx.Err())
		}
		return "", false, nil
	}

	path, found := findSubtitleFile(destDir)
	if !found {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("subtitlefetch: read %s: %w", path, err)
	}
	return string(data), true, nil
}

func findSubtitleFile(destDir string) (string, bool) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), "subtitle.") {
			return filepath.Join(destDir, entry.Name()), true
		}
	}
	return "", false
}

var _ Fetcher = (*CLI)(nil)
