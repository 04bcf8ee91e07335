package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher's inbox, persists them,
// and optionally forwards them to Kafka. Persistence errors are logged and
// counted, never propagated back to the mutation path.
type Worker struct {
	store   Store
	kafka   *KafkaSink
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *Metrics
}

func NewWorker(store Store, kafka *KafkaSink, inbox <-chan Event, logger *slog.Logger, metrics *Metrics) *Worker {
	return &Worker{store: store, kafka: kafka, inbox: inbox, logger: logger, metrics: metrics}
}

// Run processes events until ctx is cancelled, then drains what is already
// buffered before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.handle(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		if w.metrics != nil {
			w.metrics.StoreFailures.Inc()
		}
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "audit store append failed",
				"error", err,
				"action", event.Action,
				"event_id", event.ID,
			)
		}
	}
	if w.kafka != nil {
		w.kafka.Publish(ctx, event)
	}
}
