package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
)

var commandContext = exec.CommandContext

// Metadata is what the fetch-metadata stage needs from the source before
// deciding whether to attempt subtitles first.
type Metadata struct {
	Title               string
	DurationSeconds     float64
	HasDuration         bool
	SubtitlesAdvertised bool
}

// Downloader resolves source metadata and fetches the underlying media for
// a URL source.
type Downloader interface {
	FetchMetadata(ctx context.Context, rawURL string) (Metadata, error)
	Download(ctx context.Context, rawURL, destDir string) (videoPath string, err error)
}

// Option configures a CLI downloader.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps yt-dlp for metadata probing and media download.
type CLI struct {
	binary  string
	timeout time.Duration
}

// New constructs a CLI downloader from cfg.Downloader.
func New(cfg *config.Config, opts ...Option) *CLI {
	binary := strings.TrimSpace(cfg.Downloader.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := time.Duration(cfg.Downloader.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	c := &CLI{binary: binary, timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ytDLPMetadata struct {
	Title       string         `json:"title"`
	Duration    *float64       `json:"duration"`
	Subtitles   map[string]any `json:"subtitles"`
	AutoCaption map[string]any `json:"automatic_captions"`
}

// FetchMetadata runs "yt-dlp --dump-json --skip-download" and extracts
// title, duration, and whether subtitles (manual or auto-generated) are
// advertised for the source.
func (c *CLI) FetchMetadata(ctx context.Context, rawURL string) (Metadata, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"--dump-json", "--skip-download", "--no-warnings", rawURL}
	cmd := commandContext(runCtx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Metadata{}, classifyExecErr(runCtx, "downloader:fetch_metadata", err, stderr.String())
	}

	var parsed ytDLPMetadata
	if err := json.Unmarshal(firstLine(stdout.Bytes()), &parsed); err != nil {
		return Metadata{}, apperr.Wrap(apperr.KindUpstream, "downloader:fetch_metadata", "failed to parse downloader metadata", err)
	}

	meta := Metadata{
		Title:               strings.TrimSpace(parsed.Title),
		SubtitlesAdvertised: len(parsed.Subtitles) > 0 || len(parsed.AutoCaption) > 0,
	}
	if parsed.Duration != nil {
		meta.DurationSeconds = *parsed.Duration
		meta.HasDuration = true
	}
	return meta, nil
}

// Download runs "yt-dlp" to fetch the source's best available video into
// destDir, returning the path to the downloaded file.
func (c *CLI) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outputTemplate := filepath.Join(destDir, "source.%(ext)s")
	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--print", "after_move:filepath",
		"-o", outputTemplate,
		rawURL,
	}
	cmd := commandContext(runCtx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", classifyExecErr(runCtx, "downloader:download", err, stderr.String())
	}

	path := strings.TrimSpace(lastLine(stdout.Bytes()))
	if path == "" {
		return "", apperr.New(apperr.KindUpstream, "downloader:download", "downloader produced no output file")
	}
	return path, nil
}

func classifyExecErr(ctx context.Context, op string, err error, stderr string) error {
	if ctx.Err() != nil {
		return apperr.Wrap(apperr.KindTimeout, op, "download request timed out", ctx.Err())
	}
	return apperr.Wrap(apperr.KindUpstream, op, "downloader exited with an error", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr)))
}

func firstLine(data []byte) []byte {
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		return data[:idx]
	}
	return data
}

func lastLine(data []byte) string {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

var _ Downloader = (*CLI)(nil)
