package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidsum/internal/config"
)

const userAgent = "vidsum/0.1.0"

// Service defines the notification surface the pipeline calls on terminal
// job states, matching pipeline.Notifier plus a couple of operational
// events not tied to a single job.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobID, cacheKey string) error
	NotifyJobFailed(ctx context.Context, jobID, cacheKey string, err error) error
	NotifyCacheGCCompleted(ctx context.Context, evicted int, freedBytes int64) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured. When no topic is configured, a noop implementation is
// returned instead.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.Topic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID, cacheKey string) error {
	data := payload{
		title:   "vidsum - summary ready",
		message: fmt.Sprintf("Job %s completed\ncache_key: %s", jobID, cacheKey),
		tags:    []string{"vidsum", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, cacheKey string, err error) error {
	message := fmt.Sprintf("Job %s failed\ncache_key: %s", jobID, cacheKey)
	if err != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "vidsum - job failed",
		message:  message,
		tags:     []string{"vidsum", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCacheGCCompleted(ctx context.Context, evicted int, freedBytes int64) error {
	data := payload{
		title:   "vidsum - cache GC",
		message: fmt.Sprintf("Evicted %d entries, freed %d bytes", evicted, freedBytes),
		tags:    []string{"vidsum", "cache", "gc"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "vidsum - test",
		message:  "Notification system test",
		tags:     []string{"vidsum", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string) error        { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, error) error    { return nil }
func (noopService) NotifyCacheGCCompleted(context.Context, int, int64) error         { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
