package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and persists them. A store
// failure is logged and the event dropped; the worker keeps running.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
