package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
)

var cliCommandContext = exec.CommandContext

type cliTranscriber struct {
	binary  string
	timeout time.Duration
}

func newCLITranscriber(cfg *config.Config) *cliTranscriber {
	binary := strings.TrimSpace(cfg.ASR.Binary)
	if binary == "" {
		binary = "whisper"
	}
	timeout := time.Duration(cfg.ASR.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &cliTranscriber{binary: binary, timeout: timeout}
}

type cliSegment struct {
	Text string `json:"text"`
}

type cliPayload struct {
	Text     string       `json:"text"`
	Segments []cliSegment `json:"segments"`
}

// Transcribe shells out to the configured binary, asking it to write a JSON
// transcript next to audioPath, then returns its top-level text, or the
// concatenated segment text when that is empty: invoke, locate the sibling
// output file by basename, read it back.
func (t *cliTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	outputDir := filepath.Dir(audioPath)
	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{
		audioPath,
		"--output_dir", outputDir,
		"--output_format", "json",
	}
	cmd := cliCommandContext(runCtx, t.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		if runCtx.Err() != nil {
			return "", apperr.Wrap(apperr.KindTimeout, "asr:transcribe", "transcription timed out", runCtx.Err())
		}
		return "", apperr.Wrap(apperr.KindUpstream, "asr:transcribe", "transcriber exited with an error", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}

	text, err := loadTranscriptText(jsonPath)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "asr:transcribe", "failed to read transcription output", err)
	}
	return text, nil
}

func loadTranscriptText(jsonPath string) (string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("read transcript json: %w", err)
	}
	var payload cliPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("parse transcript json: %w", err)
	}
	if text := strings.TrimSpace(payload.Text); text != "" {
		return text, nil
	}
	var parts []string
	for _, seg := range payload.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
