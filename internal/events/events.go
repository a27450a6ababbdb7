// Package events carries order lifecycle events between the API process
// and the fulfillment worker over NATS. Events are emitted after the
// database commit; side effects never run inside the intake transaction.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/printera/printera/internal/domain"
)

// Subjects. order.payable fires when an order becomes eligible for
// fulfillment (card payment confirmed or cash order accepted);
// order.payment_failed fires when a card session ends without payment.
const (
	SubjectOrderPayable       = "order.payable"
	SubjectOrderPaymentFailed = "order.payment_failed"
)

// OrderEvent is the payload for all order lifecycle subjects.
type OrderEvent struct {
	OrderID    uuid.UUID            `json:"order_id"`
	Number     string               `json:"number"`
	Status     domain.OrderStatus   `json:"status"`
	Channel    domain.Channel       `json:"channel"`
	Method     domain.PaymentMethod `json:"payment_method"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Connect establishes a NATS connection with reconnect handling.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("printera"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// Publisher emits order events.
type Publisher struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

// NewPublisher creates a publisher on an existing connection.
func NewPublisher(nc *nats.Conn, logger zerolog.Logger) *Publisher {
	return &Publisher{
		nc:     nc,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Publish emits an event on a subject. A publish failure is logged and
// returned, but callers treat it as best-effort: the order state is
// already committed and the worker can be pointed at the order manually.
func (p *Publisher) Publish(ctx context.Context, subject string, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Str("order", event.Number).Msg("event publish failed")
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.logger.Debug().Str("subject", subject).Str("order", event.Number).Msg("event published")
	return nil
}

// Subscribe registers a queue subscription so only one worker instance
// handles each event.
func Subscribe(nc *nats.Conn, subject, queue string, handler func(event OrderEvent)) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var event OrderEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}
