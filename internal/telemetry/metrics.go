// Package telemetry holds the Prometheus business metrics. HTTP request
// metrics live in the middleware; these counters track what the business
// cares about: orders, payments, fulfillment outcomes.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds business-level Prometheus metrics.
type Metrics struct {
	// Orders
	OrdersCreated  *prometheus.CounterVec
	OrdersSecured  *prometheus.CounterVec
	OrderValue     prometheus.Histogram
	QuotesComputed *prometheus.CounterVec

	// Payments
	PaymentsSucceeded prometheus.Counter
	PaymentsFailed    prometheus.Counter

	// Webhooks
	WebhooksReceived  *prometheus.CounterVec
	WebhooksDuplicate *prometheus.CounterVec
	WebhookLatency    prometheus.Histogram

	// Fulfillment
	TasksCompleted *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec

	// Notifications
	NotificationsFailed *prometheus.CounterVec
}

// NewMetrics creates and registers all business metrics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "printera"
	}
	subsystem := "business"

	return &Metrics{
		OrdersCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Orders assembled, by intake channel",
			},
			[]string{"channel"},
		),
		OrdersSecured: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_secured_total",
				Help:      "Orders confirmed for production (paid or cash accepted)",
			},
			[]string{"channel", "method"},
		),
		OrderValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_ron",
				Help:      "Order totals in RON",
				Buckets:   []float64{50, 100, 200, 500, 1000, 2500, 5000, 10000},
			},
		),
		QuotesComputed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "quotes_computed_total",
				Help:      "Price quotes served, by product family",
			},
			[]string{"family"},
		),
		PaymentsSucceeded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_succeeded_total",
				Help:      "Card payments confirmed",
			},
		),
		PaymentsFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_failed_total",
				Help:      "Card payment sessions ended without payment",
			},
		),
		WebhooksReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Webhook deliveries received, by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		WebhooksDuplicate: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_duplicate_total",
				Help:      "Replayed webhook deliveries ignored by event dedup",
			},
			[]string{"provider"},
		),
		WebhookLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_processing_seconds",
				Help:      "Webhook handler processing time",
				Buckets:   prometheus.DefBuckets,
			},
		),
		TasksCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fulfillment_tasks_completed_total",
				Help:      "Fulfillment tasks finished successfully, by kind",
			},
			[]string{"kind"},
		),
		TasksFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fulfillment_tasks_failed_total",
				Help:      "Fulfillment tasks that exhausted retries, by kind",
			},
			[]string{"kind"},
		),
		NotificationsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_failed_total",
				Help:      "Best-effort notifications that could not be delivered",
			},
			[]string{"audience"},
		),
	}
}

// Convenience recorders. Nil-safe so tests can pass a zero-value service
// without wiring the registry.

func (m *Metrics) OrderCreated(channel string, total float64) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(channel).Inc()
	m.OrderValue.Observe(total)
}

func (m *Metrics) OrderSecured(channel, method string) {
	if m == nil {
		return
	}
	m.OrdersSecured.WithLabelValues(channel, method).Inc()
}

func (m *Metrics) QuoteComputed(family string) {
	if m == nil {
		return
	}
	m.QuotesComputed.WithLabelValues(family).Inc()
}

func (m *Metrics) PaymentSucceeded() {
	if m == nil {
		return
	}
	m.PaymentsSucceeded.Inc()
}

func (m *Metrics) PaymentFailed() {
	if m == nil {
		return
	}
	m.PaymentsFailed.Inc()
}

func (m *Metrics) WebhookReceived(provider, outcome string) {
	if m == nil {
		return
	}
	m.WebhooksReceived.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) WebhookProcessed(seconds float64) {
	if m == nil {
		return
	}
	m.WebhookLatency.Observe(seconds)
}

func (m *Metrics) WebhookDuplicate(provider string) {
	if m == nil {
		return
	}
	m.WebhooksDuplicate.WithLabelValues(provider).Inc()
}

func (m *Metrics) TaskCompleted(kind string) {
	if m == nil {
		return
	}
	m.TasksCompleted.WithLabelValues(kind).Inc()
}

func (m *Metrics) TaskFailed(kind string) {
	if m == nil {
		return
	}
	m.TasksFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotificationFailed(audience string) {
	if m == nil {
		return
	}
	m.NotificationsFailed.WithLabelValues(audience).Inc()
}
