package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/service"
)

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

// stripeEvent is the slice of the event envelope the handler needs.
// Metadata is only trusted after the signature check passes.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string            `json:"id"`
			PaymentStatus string            `json:"payment_status"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// StripeWebhook receives signed payment confirmations. Replayed
// deliveries and event types the engine does not care about answer 200
// so the provider stops retrying; only a genuine processing failure
// answers 5xx to request redelivery.
// POST /webhooks/stripe
func (h *Handler) StripeWebhook(c echo.Context) error {
	started := time.Now()

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.metrics.WebhookReceived("stripe", "unreadable")
		return h.respondError(c, domain.Invalid("handler.stripeWebhook", "unreadable payload"))
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if err := h.payments.VerifyWebhookSignature(payload, signature, h.cfg.StripeWebhookSecret); err != nil {
		h.metrics.WebhookReceived("stripe", "bad_signature")
		h.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return h.respondError(c, domain.Invalid("handler.stripeWebhook", "invalid signature"))
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.metrics.WebhookReceived("stripe", "malformed")
		return h.respondError(c, domain.Invalid("handler.stripeWebhook", "malformed event payload"))
	}

	var succeeded bool
	switch event.Type {
	case "checkout.session.completed":
		// Async payment methods complete the session before the money
		// moves; only a paid session confirms the order here.
		succeeded = event.Data.Object.PaymentStatus == "paid"
		if !succeeded {
			h.metrics.WebhookReceived("stripe", "ignored")
			return c.JSON(http.StatusOK, map[string]bool{"received": true})
		}
	case "checkout.session.async_payment_succeeded":
		succeeded = true
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		succeeded = false
	default:
		h.metrics.WebhookReceived("stripe", "ignored")
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	err = h.checkout.HandlePaymentEvent(c.Request().Context(), service.PaymentEvent{
		Provider:  "stripe",
		EventID:   event.ID,
		SessionID: event.Data.Object.ID,
		Succeeded: succeeded,
		Metadata:  event.Data.Object.Metadata,
	})
	h.metrics.WebhookProcessed(time.Since(started).Seconds())
	if err != nil {
		h.metrics.WebhookReceived("stripe", "error")
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("webhook processing failed")
		return h.respondError(c, err)
	}

	h.metrics.WebhookReceived("stripe", "processed")
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
