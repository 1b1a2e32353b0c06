package pipeline

import (
	"context"
	"log/slog"
)

// Handler describes the contract each stage implements.
type Handler interface {
	Prepare(ctx context.Context, item *Item) error
	Execute(ctx context.Context, item *Item) error
	HealthCheck(ctx context.Context) Health
}

// LoggerAware lets a stage accept a request-scoped logger.
type LoggerAware interface {
	SetLogger(logger *slog.Logger)
}
