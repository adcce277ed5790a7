package stage

import (
	"context"
	"log/slog"

	"clipflow/internal/queue"
)

// Handler describes the contract the scheduler needs from each stage.
// Handlers mutate the item's payload (fetched file, segment list) but never
// its status; the scheduler owns all lifecycle transitions.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware lets the scheduler hand a context-enriched logger to handlers
// that want per-item fields on their log lines.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
