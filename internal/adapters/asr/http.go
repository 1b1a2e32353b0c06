package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidsum/internal/apperr"
	"vidsum/internal/config"
	"vidsum/internal/retry"
)

type httpTranscriber struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
}

// HTTPOption customizes a httpTranscriber built by newHTTPTranscriber.
type HTTPOption func(*httpTranscriber)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(httpClient *http.Client) HTTPOption {
	return func(t *httpTranscriber) {
		if httpClient != nil {
			t.httpClient = httpClient
		}
	}
}

// WithSleep overrides how retry backoff sleeps (used in tests).
func WithSleep(sleep func(context.Context, time.Duration) error) HTTPOption {
	return func(t *httpTranscriber) { t.sleep = sleep }
}

func newHTTPTranscriber(cfg *config.Config, opts ...HTTPOption) *httpTranscriber {
	timeout := time.Duration(cfg.ASR.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	t := &httpTranscriber{
		baseURL:    strings.TrimSpace(cfg.ASR.BaseURL),
		apiKey:     strings.TrimSpace(cfg.ASR.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe posts audioPath's content as multipart/form-data to an
// OpenAI-compatible /audio/transcriptions endpoint.
func (t *httpTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	var lastText string
	err := retry.Do(ctx, retry.Options{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     10 * time.Second,
		Retryable:      isTransientHTTPErr,
		Sleep:          t.sleep,
	}, func(attempt int) error {
		text, err := t.transcribeOnce(ctx, audioPath)
		if err != nil {
			return err
		}
		lastText = text
		return nil
	})
	if err != nil {
		return "", classifyHTTPErr(err)
	}
	return lastText, nil
}

func (t *httpTranscriber) transcribeOnce(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("asr: open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("asr: build multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("asr: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("asr: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("asr: new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("asr: http error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("asr: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusErr{status: resp.StatusCode, body: string(respBody)}
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("asr: decode response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}

type httpStatusErr struct {
	status int
	body   string
}

func (e *httpStatusErr) Error() string {
	return fmt.Sprintf("asr request: http %d: %s", e.status, strings.TrimSpace(e.body))
}

func isTransientHTTPErr(err error) bool {
	var statusErr *httpStatusErr
	if errors.As(err, &statusErr) {
		return statusErr.status == http.StatusRequestTimeout ||
			statusErr.status == http.StatusTooManyRequests ||
			statusErr.status >= http.StatusInternalServerError
	}
	return true
}

func classifyHTTPErr(err error) error {
	var statusErr *httpStatusErr
	if errors.As(err, &statusErr) {
		return apperr.Wrap(apperr.KindUpstream, "asr:transcribe", "asr service returned an error", err)
	}
	return apperr.Wrap(apperr.KindUpstream, "asr:transcribe", "asr request failed", err)
}
