package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vidsum/internal/httpapi"
)

// apiClient is a thin HTTP client for the daemon's boundary surface. The
// CLI never touches the metadata store or job queue directly, only the
// HTTP API any other client would speak.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is a client-side view of httpapi.ErrorResponse, returned when
// the daemon answers with a non-2xx status.
type apiError struct {
	httpapi.ErrorResponse
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (code=%s status=%d request_id=%s)", e.Message, e.Code, e.Status, e.RequestID)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var envelope httpapi.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil {
			return &apiError{envelope}
		}
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) Health(ctx context.Context) (httpapi.HealthResponse, error) {
	var out httpapi.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *apiClient) Lookup(ctx context.Context, req httpapi.LookupRequest) (httpapi.LookupResult, error) {
	var out httpapi.LookupResult
	err := c.do(ctx, http.MethodPost, "/api/cache/lookup", req, &out)
	return out, err
}

func (c *apiClient) Summarize(ctx context.Context, req httpapi.SummaryRequest) (httpapi.SummaryResult, error) {
	var out httpapi.SummaryResult
	err := c.do(ctx, http.MethodPost, "/api/summaries", req, &out)
	return out, err
}

func (c *apiClient) JobStatus(ctx context.Context, jobID string) (httpapi.JobStatusResponse, error) {
	var out httpapi.JobStatusResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+jobID, nil, &out)
	return out, err
}

func (c *apiClient) CacheEntry(ctx context.Context, cacheKey string) (httpapi.CacheEntryResponse, error) {
	var out httpapi.CacheEntryResponse
	err := c.do(ctx, http.MethodGet, "/api/cache/"+cacheKey, nil, &out)
	return out, err
}

func (c *apiClient) DeleteCacheEntry(ctx context.Context, cacheKey string) error {
	return c.do(ctx, http.MethodDelete, "/api/cache/"+cacheKey, nil, nil)
}

func (c *apiClient) GC(ctx context.Context) (httpapi.GCResultResponse, error) {
	var out httpapi.GCResultResponse
	err := c.do(ctx, http.MethodPost, "/api/cache/gc", nil, &out)
	return out, err
}
