package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldCacheKey is the standardized structured logging key for cache keys.
	FieldCacheKey = "cache_key"
	// FieldRequestID is the standardized structured logging key for HTTP request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type ctxKey int

const (
	ctxKeyStage ctxKey = iota
	ctxKeyJobID
	ctxKeyCacheKey
	ctxKeyRequestID
)

// WithStage returns a context tagged with the current pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ctxKeyStage, stage)
}

// StageFromContext returns the pipeline stage name stored in ctx, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyStage).(string)
	return v, ok
}

// WithJobID returns a context tagged with a job identifier.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, ctxKeyJobID, jobID)
}

// JobIDFromContext returns the job identifier stored in ctx, if any.
func JobIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyJobID).(string)
	return v, ok
}

// WithCacheKey returns a context tagged with a cache key.
func WithCacheKey(ctx context.Context, cacheKey string) context.Context {
	return context.WithValue(ctx, ctxKeyCacheKey, cacheKey)
}

// CacheKeyFromContext returns the cache key stored in ctx, if any.
func CacheKeyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyCacheKey).(string)
	return v, ok
}

// WithRequestID returns a context tagged with an HTTP request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID).(string)
	return v, ok
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if jobID, ok := JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, jobID))
	}
	if cacheKey, ok := CacheKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCacheKey, cacheKey))
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, requestID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
