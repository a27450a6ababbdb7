package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/session"
)

// CreateOrder assembles a web-cart checkout and routes it into its
// payment flow. Card orders come back with a hosted payment URL; cash
// and bank-transfer orders come back already secured.
// POST /api/orders
func (h *Handler) CreateOrder(c echo.Context) error {
	var payload domain.WebCheckout
	if err := h.bind(c, "handler.createOrder", &payload); err != nil {
		return h.respondError(c, err)
	}

	order, err := h.assembler.AssembleWeb(c.Request().Context(), payload)
	if err != nil {
		return h.respondError(c, err)
	}
	h.metrics.OrderCreated(string(order.Channel), order.Total.InexactFloat64())

	result, err := h.checkout.Finalize(c.Request().Context(), order.ID)
	if err != nil {
		// The order row exists; a provider outage leaves it in created
		// and the client can retry finalization via the same number.
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// FinalizeOrder retries payment routing for an order whose hosted
// session could not be started. Only orders still in created are
// eligible; an already-finalized order answers 409. The session is
// created under the order's idempotency key, so a retry racing a slow
// first attempt cannot double-charge.
// POST /api/orders/:number/finalize
func (h *Handler) FinalizeOrder(c echo.Context) error {
	order, err := h.orders.GetByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return h.respondError(c, err)
	}

	result, err := h.checkout.Finalize(c.Request().Context(), order.ID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetOrder looks an order up by its human-facing number, for the
// confirmation page and the assistant's status answers.
// GET /api/orders/:number
func (h *Handler) GetOrder(c echo.Context) error {
	order, err := h.orders.GetByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// CreateAssistantOrder accepts a chat or messaging-bot tool call. The
// conversation session, when named and present, is dropped after the
// order is submitted.
// POST /api/assistant/orders
func (h *Handler) CreateAssistantOrder(c echo.Context) error {
	var payload domain.AssistantOrder
	if err := h.bind(c, "handler.assistantOrder", &payload); err != nil {
		return h.respondError(c, err)
	}

	order, err := h.assembler.AssembleAssistant(c.Request().Context(), payload)
	if err != nil {
		return h.respondError(c, err)
	}
	h.metrics.OrderCreated(string(order.Channel), order.Total.InexactFloat64())

	result, err := h.checkout.Finalize(c.Request().Context(), order.ID)
	if err != nil {
		return h.respondError(c, err)
	}

	if payload.SessionKey != "" {
		if err := h.sessions.Delete(c.Request().Context(), payload.SessionKey); err != nil {
			h.logger.Warn().Err(err).Str("session_key", payload.SessionKey).Msg("failed to drop conversation session")
		}
	}
	return c.JSON(http.StatusCreated, result)
}

// GetAssistantSession returns the accumulated conversation state.
// GET /api/assistant/sessions/:key
func (h *Handler) GetAssistantSession(c echo.Context) error {
	state, err := h.sessions.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		if err == session.ErrSessionNotFound {
			return h.respondError(c, domain.NotFound("handler.session", "session", c.Param("key")))
		}
		return h.respondError(c, domain.Internal(err, "handler.session", "failed to load session"))
	}
	return c.JSON(http.StatusOK, state)
}

// PutAssistantSession stores conversation state under the key in the
// URL, refreshing its TTL.
// PUT /api/assistant/sessions/:key
func (h *Handler) PutAssistantSession(c echo.Context) error {
	var state session.State
	if err := h.bind(c, "handler.session", &state); err != nil {
		return h.respondError(c, err)
	}
	state.SessionKey = c.Param("key")

	if err := h.sessions.Put(c.Request().Context(), &state); err != nil {
		return h.respondError(c, domain.Internal(err, "handler.session", "failed to store session"))
	}
	return c.JSON(http.StatusOK, state)
}

// DeleteAssistantSession drops a conversation session.
// DELETE /api/assistant/sessions/:key
func (h *Handler) DeleteAssistantSession(c echo.Context) error {
	if err := h.sessions.Delete(c.Request().Context(), c.Param("key")); err != nil {
		return h.respondError(c, domain.Internal(err, "handler.session", "failed to delete session"))
	}
	return c.NoContent(http.StatusNoContent)
}
