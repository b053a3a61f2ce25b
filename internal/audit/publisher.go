package audit

import (
	"context"
	"log/slog"

	"comply/pkg/requestcontext"
)

// Publisher buffers audit events onto a channel; the Worker drains them to
// the store. Emission is best-effort: audit must never fail or block the
// business operation it describes, so a full buffer drops the event with a
// warning instead of applying backpressure.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the event channel for the Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Emit queues an audit event, stamping the timestamp and actor when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Caller(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"org_id", event.OrgID,
		)
	}
}
