package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientLimitersBoundedByCapacityRegardlessOfClientCount(t *testing.T) {
	limiters := newClientLimiters(60)

	for i := 0; i < clientLimiterCapacity*2; i++ {
		limiters.get(fmt.Sprintf("client-%d", i))
	}

	if got := limiters.limiters.Len(); got > clientLimiterCapacity {
		t.Fatalf("limiters.Len() = %d, want <= %d", got, clientLimiterCapacity)
	}
}

func TestClientLimitersReuseTheSameBucketForOneClient(t *testing.T) {
	limiters := newClientLimiters(60)

	first := limiters.get("same-client")
	second := limiters.get("same-client")
	if first != second {
		t.Fatal("expected repeated lookups of one client to return the same limiter")
	}
}

func TestRateLimitMiddlewareRejectsOnceBucketIsExhausted(t *testing.T) {
	limiters := newClientLimiters(1)
	handler := rateLimit(limiters)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/summaries", nil)
	req.Header.Set("X-Client-Id", "limited-client")

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header on a rate-limited response")
	}
}

func TestClientIdentifierPrefersHeaderOverRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/summaries", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Client-Id", "explicit-client")

	if got := clientIdentifier(req); got != "explicit-client" {
		t.Fatalf("clientIdentifier() = %q, want explicit-client", got)
	}

	req.Header.Del("X-Client-Id")
	if got := clientIdentifier(req); got != "10.0.0.1:1234" {
		t.Fatalf("clientIdentifier() = %q, want remote addr fallback", got)
	}
}
