package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is where registry audit events land unless configured
// otherwise.
const DefaultTopic = "certledger.audit"

// KafkaSink produces audit events to a Kafka topic. Produces are async;
// delivery failures are logged and counted, matching the fail-open audit
// contract.
type KafkaSink struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *Metrics
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, logger *slog.Logger, metrics *Metrics) (*KafkaSink, error) {
	if topic == "" {
		topic = DefaultTopic
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &KafkaSink{client: client, topic: topic, logger: logger, metrics: metrics}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	topics, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		return fmt.Errorf("create kafka topic %q: %w", topic, err)
	}
	return nil
}

// Publish produces one event, keyed by entity kind and id so per-entity
// ordering is preserved within a partition.
func (s *KafkaSink) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "audit event encode failed", "error", err, "event_id", event.ID)
		}
		return
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(fmt.Sprintf("%s:%d", event.EntityKind, event.EntityID)),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			if s.metrics != nil {
				s.metrics.KafkaFailures.Inc()
			}
			if s.logger != nil {
				s.logger.Error("audit kafka produce failed", "error", err, "event_id", event.ID)
			}
		}
	})
}

// Close flushes outstanding produces and releases the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	err := s.client.Flush(ctx)
	s.client.Close()
	return err
}
