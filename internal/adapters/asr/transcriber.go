package asr

import (
	"context"
	"strings"

	"vidsum/internal/config"
)

// Transcriber turns an audio file into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// New picks an HTTP-backed transcriber when asr.base_url is configured,
// falling back to the local CLI binary otherwise.
func New(cfg *config.Config) Transcriber {
	if strings.TrimSpace(cfg.ASR.BaseURL) != "" {
		return newHTTPTranscriber(cfg)
	}
	return newCLITranscriber(cfg)
}
