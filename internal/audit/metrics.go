package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit pipeline health. Dropped events and store failures
// are the signals to alert on, since emission is fail-open.
type Metrics struct {
	EventsEmitted prometheus.Counter
	EventsDropped prometheus.Counter
	StoreFailures prometheus.Counter
	KafkaFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_audit_events_emitted_total",
			Help: "Audit events accepted into the inbox",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_audit_events_dropped_total",
			Help: "Audit events dropped because the inbox was full",
		}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_audit_store_failures_total",
			Help: "Audit store append failures",
		}),
		KafkaFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_audit_kafka_failures_total",
			Help: "Audit Kafka produce failures",
		}),
	}
}
