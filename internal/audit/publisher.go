package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certledger/pkg/requestcontext"
)

// Publisher is what the engine emits events through.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// ChannelPublisher hands events to a buffered inbox consumed by a Worker.
// Emit never blocks the mutation path: when the inbox is full the event is
// dropped and counted, which is the fail-open contract for operational
// audit.
type ChannelPublisher struct {
	inbox   chan Event
	logger  *slog.Logger
	metrics *Metrics
}

// NewChannelPublisher creates a publisher with the given inbox capacity.
func NewChannelPublisher(capacity int, logger *slog.Logger, metrics *Metrics) *ChannelPublisher {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ChannelPublisher{
		inbox:   make(chan Event, capacity),
		logger:  logger,
		metrics: metrics,
	}
}

// Inbox exposes the receive side for the Worker.
func (p *ChannelPublisher) Inbox() <-chan Event { return p.inbox }

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	select {
	case p.inbox <- event:
		if p.metrics != nil {
			p.metrics.EventsEmitted.Inc()
		}
	default:
		if p.metrics != nil {
			p.metrics.EventsDropped.Inc()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit inbox full, event dropped",
				"action", event.Action,
				"entity_kind", event.EntityKind,
				"entity_id", event.EntityID,
			)
		}
	}
}

// NopPublisher discards events; used when audit is not wired.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) {}

// drainTimeout bounds how long a shutting-down worker keeps flushing.
const drainTimeout = 5 * time.Second
