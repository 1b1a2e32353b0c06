package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/go-chi/chi/v5/middleware"
)

// clientLimiterCapacity bounds how many distinct clients' token buckets a
// clientLimiters instance keeps at once. X-Client-Id is caller-supplied, so
// without a cap a client cycling through fresh identifiers could grow the
// limiter set without bound; the LRU evicts the least-recently-seen client
// once full rather than the request being trusted to self-limit its own
// identifier churn. clientLimiterIdleTTL additionally drops a client's
// bucket that long after it was created, whether or not the client is still
// sending requests (lookups do not renew it), so a bucket at the front of
// the LRU can still not linger forever.
const (
	clientLimiterCapacity = 4096
	clientLimiterIdleTTL  = 10 * time.Minute
)

// clientLimiters hands out one token bucket per client identifier, lazily
// created on first use and bounded by an LRU so a caller-controlled
// identifier can't grow the set without limit. Two independent instances
// back the upload and summary endpoints.
type clientLimiters struct {
	mu            sync.Mutex
	limiters      *lru.LRU[string, *rate.Limiter]
	ratePerMinute int
}

func newClientLimiters(ratePerMinute int) *clientLimiters {
	if ratePerMinute <= 0 {
		ratePerMinute = 1
	}
	return &clientLimiters{
		limiters:      lru.NewLRU[string, *rate.Limiter](clientLimiterCapacity, nil, clientLimiterIdleTTL),
		ratePerMinute: ratePerMinute,
	}
}

func (c *clientLimiters) get(id string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	lim, ok := c.limiters.Get(id)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(c.ratePerMinute)/60.0), c.ratePerMinute)
		c.limiters.Add(id, lim)
	}
	return lim
}

// clientIdentifier derives a stable per-caller key for rate limiting: an
// explicit client header when present, otherwise the connection's remote
// address.
func clientIdentifier(r *http.Request) string {
	if id := r.Header.Get("X-Client-Id"); id != "" {
		return id
	}
	return r.RemoteAddr
}

// rateLimit rejects requests once limiters' bucket for this caller is
// exhausted, returning too_many_requests with a retry_after hint.
func rateLimit(limiters *clientLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim := limiters.get(clientIdentifier(r))
			if !lim.Allow() {
				retryAfter := 60 / limiters.ratePerMinute
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, r, newTooManyRequests("httpapi:rate_limit", "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// echoRequestID writes the chi-assigned (or client-supplied) request id
// onto every response, including ones that bypass writeJSON.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-request-id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}
