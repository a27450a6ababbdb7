package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/events"
	"github.com/printera/printera/internal/payment"
	"github.com/printera/printera/internal/telemetry"
)

// CheckoutStore is the storage surface for payment routing.
type CheckoutStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	MutateOrder(ctx context.Context, id uuid.UUID, fn func(o *domain.Order) error) (*domain.Order, error)
	MarkOrderPaid(ctx context.Context, id uuid.UUID) error
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPaymentBySession(ctx context.Context, sessionID string) (*domain.Payment, error)
	SettlePayment(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) error
	RecordWebhookEvent(ctx context.Context, provider, eventID string) error
	DeleteWebhookEvent(ctx context.Context, provider, eventID string) error
}

// EventPublisher emits post-commit order events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event events.OrderEvent) error
}

// CheckoutConfig carries redirect targets for hosted payment pages.
type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
}

// CheckoutResult is the outcome of finalizing an order: either a hosted
// payment redirect (card) or an immediately secured order (cash/transfer).
type CheckoutResult struct {
	Order      *domain.Order `json:"order"`
	PaymentURL string        `json:"payment_url,omitempty"`
}

// CheckoutService routes an assembled order into its payment flow.
// Card orders go through an asynchronous hosted session confirmed by
// webhook; cash-on-delivery and bank transfer finalize synchronously.
type CheckoutService struct {
	store     CheckoutStore
	provider  payment.Provider
	publisher EventPublisher
	assembler *Assembler
	metrics   *telemetry.Metrics
	cfg       CheckoutConfig
	logger    zerolog.Logger
}

// NewCheckoutService creates the checkout service.
func NewCheckoutService(store CheckoutStore, provider payment.Provider, publisher EventPublisher, assembler *Assembler, metrics *telemetry.Metrics, cfg CheckoutConfig, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		store:     store,
		provider:  provider,
		publisher: publisher,
		assembler: assembler,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.With().Str("component", "checkout").Logger(),
	}
}

// Finalize routes a freshly assembled order by its payment method.
func (s *CheckoutService) Finalize(ctx context.Context, orderID uuid.UUID) (*CheckoutResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Method {
	case domain.PaymentMethodCard:
		return s.startCardPayment(ctx, order)
	case domain.PaymentMethodCashDelivery, domain.PaymentMethodBankTransfer:
		return s.acceptCashOrder(ctx, order)
	default:
		return nil, domain.Invalid("checkout.finalize", "unknown payment method")
	}
}

// startCardPayment creates the hosted session and moves the order to
// awaiting_payment. When the provider is unavailable the order stays in
// created and the client may retry.
func (s *CheckoutService) startCardPayment(ctx context.Context, order *domain.Order) (*CheckoutResult, error) {
	if order.Status != domain.OrderStatusCreated {
		return nil, ErrAlreadyFinalized
	}

	snapshot, err := SnapshotOrder(order)
	if err != nil {
		return nil, domain.Internal(err, "checkout.card", "failed to snapshot cart")
	}

	sess, err := s.provider.CreateSession(ctx, payment.CreateSessionParams{
		Amount:        order.Total,
		Currency:      order.Currency,
		Description:   "Comanda " + order.Number,
		CustomerEmail: order.Shipping.Email,
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.Number,
			"cart":         snapshot,
		},
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
		IdempotencyKey: order.ID.String(),
	})
	if err != nil {
		// Order stays in created; nothing to roll back.
		return nil, err
	}

	err = s.store.CreatePayment(ctx, &domain.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		SessionID: sess.ID,
		Status:    domain.PaymentStatusPending,
		Amount:    order.Total,
		Currency:  order.Currency,
	})
	if err != nil {
		return nil, err
	}

	order, err = s.store.MutateOrder(ctx, order.ID, func(o *domain.Order) error {
		if !o.CanTransition(domain.OrderStatusAwaitingPayment) {
			return ErrAlreadyFinalized
		}
		o.Status = domain.OrderStatusAwaitingPayment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("number", order.Number).Str("session_id", sess.ID).Msg("card payment session created")
	return &CheckoutResult{Order: order, PaymentURL: sess.URL}, nil
}

// acceptCashOrder finalizes synchronously: the order is secured for
// production and fulfillment starts right away.
func (s *CheckoutService) acceptCashOrder(ctx context.Context, order *domain.Order) (*CheckoutResult, error) {
	order, err := s.store.MutateOrder(ctx, order.ID, func(o *domain.Order) error {
		if !o.CanTransition(domain.OrderStatusCashPending) {
			return ErrAlreadyFinalized
		}
		o.Status = domain.OrderStatusCashPending
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderSecured(string(order.Channel), string(order.Method))
	s.publishPayable(ctx, order)
	s.logger.Info().Str("number", order.Number).Str("method", string(order.Method)).Msg("cash order accepted")
	return &CheckoutResult{Order: order}, nil
}

// PaymentEvent is the provider-agnostic webhook payload the handler
// extracts after signature verification.
type PaymentEvent struct {
	Provider  string
	EventID   string
	SessionID string
	Succeeded bool
	Metadata  map[string]string
}

// HandlePaymentEvent applies an asynchronous payment confirmation.
// Replayed events are no-ops (event-id dedup); the paid transition is
// guarded so two concurrent deliveries settle the order exactly once.
// When the order row is missing, the order is reconstructed from the
// session metadata snapshot before settling.
//
// The event id is reserved up front so concurrent deliveries of the
// same event race on one insert, and released again when processing
// fails: a recorded-but-unprocessed event would turn the provider's
// redelivery into a dedup no-op and lose the confirmation.
func (s *CheckoutService) HandlePaymentEvent(ctx context.Context, event PaymentEvent) error {
	if err := s.store.RecordWebhookEvent(ctx, event.Provider, event.EventID); err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			s.metrics.WebhookDuplicate(event.Provider)
			s.logger.Info().Str("event_id", event.EventID).Msg("duplicate webhook event ignored")
			return nil
		}
		return err
	}

	if err := s.applyPaymentEvent(ctx, event); err != nil {
		if delErr := s.store.DeleteWebhookEvent(ctx, event.Provider, event.EventID); delErr != nil {
			s.logger.Error().Err(delErr).Str("event_id", event.EventID).Msg("failed to release webhook event record")
		}
		return err
	}
	return nil
}

// applyPaymentEvent resolves the order and settles it one way or the
// other. Errors here leave the order untouched; the caller releases the
// event record so redelivery can retry.
func (s *CheckoutService) applyPaymentEvent(ctx context.Context, event PaymentEvent) error {
	order, err := s.resolveEventOrder(ctx, event)
	if err != nil {
		return err
	}

	if !event.Succeeded {
		return s.failCardPayment(ctx, order)
	}

	if err := s.store.MarkOrderPaid(ctx, order.ID); err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			s.logger.Info().Str("number", order.Number).Msg("order already settled")
			return nil
		}
		return err
	}
	if err := s.store.SettlePayment(ctx, order.ID, domain.PaymentStatusSucceeded); err != nil && !domain.IsCode(err, domain.ECONFLICT) {
		s.logger.Error().Err(err).Str("number", order.Number).Msg("failed to settle payment record")
	}

	order.Status = domain.OrderStatusPaid
	s.metrics.PaymentSucceeded()
	s.metrics.OrderSecured(string(order.Channel), string(order.Method))
	s.publishPayable(ctx, order)
	s.logger.Info().Str("number", order.Number).Str("event_id", event.EventID).Msg("payment confirmed")
	return nil
}

// resolveEventOrder finds the order a payment event belongs to: payment
// record first, then metadata order id, then full reconstruction from
// the cart snapshot.
func (s *CheckoutService) resolveEventOrder(ctx context.Context, event PaymentEvent) (*domain.Order, error) {
	if p, err := s.store.GetPaymentBySession(ctx, event.SessionID); err == nil {
		return s.store.GetOrder(ctx, p.OrderID)
	}

	if raw, ok := event.Metadata["order_id"]; ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, domain.WrapError(err, domain.EINVALID, "checkout.paymentEvent", "malformed order id in session metadata")
		}
		order, err := s.store.GetOrder(ctx, id)
		if err == nil {
			return order, nil
		}
		if !domain.IsCode(err, domain.ENOTFOUND) {
			return nil, err
		}
	}

	return s.assembler.ReconstructFromSession(ctx, event.Metadata)
}

// failCardPayment moves an unpaid card order to payment_failed.
func (s *CheckoutService) failCardPayment(ctx context.Context, order *domain.Order) error {
	_, err := s.store.MutateOrder(ctx, order.ID, func(o *domain.Order) error {
		if !o.CanTransition(domain.OrderStatusPaymentFailed) {
			return nil // already settled one way or the other
		}
		o.Status = domain.OrderStatusPaymentFailed
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.store.SettlePayment(ctx, order.ID, domain.PaymentStatusFailed); err != nil && !domain.IsCode(err, domain.ECONFLICT) {
		s.logger.Error().Err(err).Str("number", order.Number).Msg("failed to settle payment record")
	}

	s.metrics.PaymentFailed()
	s.publish(ctx, events.SubjectOrderPaymentFailed, order)
	s.logger.Warn().Str("number", order.Number).Msg("card payment failed")
	return nil
}

func (s *CheckoutService) publishPayable(ctx context.Context, order *domain.Order) {
	s.publish(ctx, events.SubjectOrderPayable, order)
}

func (s *CheckoutService) publish(ctx context.Context, subject string, order *domain.Order) {
	event := events.OrderEvent{
		OrderID:    order.ID,
		Number:     order.Number,
		Status:     order.Status,
		Channel:    order.Channel,
		Method:     order.Method,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		// Best-effort: state is committed; the worker can be pointed at
		// the order via the admin surface.
		s.logger.Error().Err(err).Str("subject", subject).Str("number", order.Number).Msg(fmt.Sprintf("failed to publish %s", subject))
	}
}
