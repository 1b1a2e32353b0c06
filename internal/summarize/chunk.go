package summarize

import (
	"context"
	"fmt"
	"strings"

	"vidsum/internal/config"
)

// Summarizer is the subset of llm.Client that ChunkAndMerge depends on,
// kept narrow so it can be faked in tests without pulling in the adapter.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, text string) (string, error)
}

const (
	defaultChunkPrompt = "Summarize the following transcript excerpt in a few sentences, focusing on the points made."
	defaultMergePrompt = "The following are summaries of consecutive chunks of the same transcript. Merge them into one coherent summary."
)

// ChunkAndMerge summarizes transcript, splitting it into overlapping chunks
// when it exceeds cfg.ChunkSizeChars and merge-summarizing the per-chunk
// results. When the result falls short of cfg.MinResultChars, it re-runs
// the summarizer once on the raw, unchunked transcript as a last resort.
func ChunkAndMerge(ctx context.Context, client Summarizer, transcript string, cfg config.Summarizer) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", nil
	}

	summary, err := summarize(ctx, client, transcript, cfg)
	if err != nil {
		return "", err
	}

	if len(summary) >= cfg.MinResultChars {
		return summary, nil
	}

	fallback, err := client.Summarize(ctx, defaultChunkPrompt, transcript)
	if err != nil {
		return "", fmt.Errorf("summarize: floor-retry on raw transcript: %w", err)
	}
	fallback = strings.TrimSpace(fallback)
	if len(fallback) > len(summary) {
		return fallback, nil
	}
	return summary, nil
}

func summarize(ctx context.Context, client Summarizer, transcript string, cfg config.Summarizer) (string, error) {
	if len(transcript) <= cfg.ChunkSizeChars {
		summary, err := client.Summarize(ctx, defaultChunkPrompt, transcript)
		if err != nil {
			return "", fmt.Errorf("summarize: %w", err)
		}
		return strings.TrimSpace(summary), nil
	}

	chunks := chunkText(transcript, cfg.ChunkSizeChars, cfg.ChunkOverlapChars)
	chunkSummaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := client.Summarize(ctx, defaultChunkPrompt, chunk)
		if err != nil {
			return "", fmt.Errorf("summarize: chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if summary = strings.TrimSpace(summary); summary != "" {
			chunkSummaries = append(chunkSummaries, summary)
		}
	}

	merged, err := client.Summarize(ctx, defaultMergePrompt, strings.Join(chunkSummaries, "\n\n"))
	if err != nil {
		return "", fmt.Errorf("summarize: merge %d chunk summaries: %w", len(chunkSummaries), err)
	}
	return strings.TrimSpace(merged), nil
}

// chunkText splits text into overlapping windows of at most size runes,
// each subsequent window starting overlap runes before the previous one
// ended, so no sentence is orphaned at a chunk boundary.
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}
