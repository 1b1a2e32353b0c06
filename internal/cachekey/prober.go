package cachekey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Identity is the (extractor, id) pair a Prober resolves for a URL.
type Identity struct {
	Extractor string
	VideoID   string
}

// Prober resolves a stable extractor/video-id identity for a URL, when the
// underlying source supports it.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (Identity, bool)
}

// Option configures a CLI prober.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithCookiesFile points the prober at a cookies file for authenticated
// extraction.
func WithCookiesFile(path string) Option {
	return func(c *CLI) {
		c.cookiesFile = path
	}
}

// CLI resolves an Identity by shelling out to yt-dlp's flat-extraction
// metadata dump.
type CLI struct {
	binary      string
	cookiesFile string
}

// NewCLI constructs a CLI prober using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

type ytDLPInfo struct {
	Extractor    string `json:"extractor"`
	ExtractorKey string `json:"extractor_key"`
	ID           string `json:"id"`
}

// Probe runs "yt-dlp --dump-json --skip-download --flat-playlist" against
// rawURL and extracts the extractor/id pair. It returns ok=false on any
// failure (missing binary, unsupported site, network error) so callers fall
// back to a normalized-URL cache key without surfacing an error.
func (c *CLI) Probe(ctx context.Context, rawURL string) (Identity, bool) {
	args := []string{"--dump-json", "--skip-download", "--no-warnings", "--flat-playlist"}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	args = append(args, rawURL)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return Identity{}, false
	}

	line := firstLine(stdout.Bytes())
	var info ytDLPInfo
	if err := json.Unmarshal(line, &info); err != nil {
		return Identity{}, false
	}

	extractor := strings.ToLower(strings.TrimSpace(info.ExtractorKey))
	if extractor == "" {
		extractor = strings.ToLower(strings.TrimSpace(info.Extractor))
	}
	videoID := strings.TrimSpace(info.ID)
	if extractor == "" || videoID == "" {
		return Identity{}, false
	}
	return Identity{Extractor: extractor, VideoID: videoID}, true
}

func firstLine(data []byte) []byte {
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		return data[:idx]
	}
	return data
}

func (i Identity) String() string {
	return fmt.Sprintf("ytdlp:%s:%s", i.Extractor, i.VideoID)
}
