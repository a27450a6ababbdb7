// Package handler exposes the HTTP surface: public pricing and intake
// endpoints, the signed payment webhook, and the API-key-protected admin
// operations. Handlers bind and translate; all decisions live in the
// service layer.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/payment"
	"github.com/printera/printera/internal/service"
	"github.com/printera/printera/internal/session"
	"github.com/printera/printera/internal/telemetry"
	"github.com/printera/printera/internal/worker"
)

// Config carries handler-level settings.
type Config struct {
	// AdminAPIKey guards the /admin routes. Empty disables admin access
	// entirely rather than leaving it open.
	AdminAPIKey string

	// StripeWebhookSecret verifies webhook signatures.
	StripeWebhookSecret string
}

// Handler holds the services the HTTP surface dispatches into.
type Handler struct {
	orders      *service.OrderService
	assembler   *service.Assembler
	checkout    *service.CheckoutService
	discounts   *service.DiscountService
	fulfillment *service.FulfillmentService
	worker      *worker.Worker
	sessions    *session.Store
	payments    payment.Provider
	metrics     *telemetry.Metrics
	cfg         Config
	logger      zerolog.Logger
}

// New creates the handler set.
func New(
	orders *service.OrderService,
	assembler *service.Assembler,
	checkout *service.CheckoutService,
	discounts *service.DiscountService,
	fulfillment *service.FulfillmentService,
	w *worker.Worker,
	sessions *session.Store,
	payments payment.Provider,
	metrics *telemetry.Metrics,
	cfg Config,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		orders:      orders,
		assembler:   assembler,
		checkout:    checkout,
		discounts:   discounts,
		fulfillment: fulfillment,
		worker:      w,
		sessions:    sessions,
		payments:    payments,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger.With().Str("component", "http").Logger(),
	}
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFromCode maps domain error codes to HTTP statuses.
func statusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error for a service-layer failure.
// Validation errors carry their field map; internal errors are logged
// with the cause and answered with a generic message.
func (h *Handler) respondError(c echo.Context, err error) error {
	if fields := domain.GetValidationFields(err); fields != nil {
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:  "validation failed",
			Fields: fields,
		})
	}

	code := domain.ErrorCode(err)
	if code == domain.EINTERNAL {
		h.logger.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("internal error")
	}
	return c.JSON(statusFromCode(code), errorBody{Error: domain.ErrorMessage(err)})
}

// bind decodes the JSON body, turning echo's bind failures into a
// domain validation error so the envelope stays uniform.
func (h *Handler) bind(c echo.Context, op string, v any) error {
	if err := c.Bind(v); err != nil {
		return domain.WrapError(err, domain.EINVALID, op, "malformed request body")
	}
	return nil
}

// Health answers the liveness probe.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
