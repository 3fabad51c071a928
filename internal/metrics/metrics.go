// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rent_manager"

// Domain collectors.
var (
	ReadingsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_submitted_total",
			Help:      "Total number of meter readings accepted",
		},
		[]string{"meter_type", "source"}, // source: "http" / "amqp" / "seed"
	)

	ReadingFlagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reading_flags_total",
			Help:      "Readings accepted with a plausibility flag",
		},
		[]string{"meter_type", "flag"},
	)

	PaymentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Total number of pending charges created",
		},
		[]string{"method"},
	)

	PaymentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Payment status transitions by outcome",
		},
		[]string{"status"},
	)

	ChargeProviderErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_provider_errors_total",
			Help:      "Charge intents the payment provider failed to create",
		},
	)

	IngestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_total",
			Help:      "Reading ingest queue messages by result",
		},
		[]string{"result"}, // "ack" / "dlq"
	)

	EventPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published",
		},
		[]string{"event_type"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ReadingsSubmittedTotal,
			ReadingFlagsTotal,
			PaymentsCreatedTotal,
			PaymentTransitionsTotal,
			ChargeProviderErrorsTotal,
			IngestMessagesTotal,
			EventPublishFailuresTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
