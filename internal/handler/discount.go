package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/printera/printera/internal/domain"
)

// previewRequest is the side-effect-free discount check payload.
// Subtotal is a decimal string in major currency units.
type previewRequest struct {
	Code     string `json:"code"`
	Subtotal string `json:"subtotal"`
	Channel  string `json:"channel"`
}

// PreviewDiscount validates a code against an order context without
// reserving usage. An unknown or ineligible code answers 200 with
// valid=false; only malformed input is rejected.
// POST /api/discounts/preview
func (h *Handler) PreviewDiscount(c echo.Context) error {
	var req previewRequest
	if err := h.bind(c, "handler.previewDiscount", &req); err != nil {
		return h.respondError(c, err)
	}

	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil || subtotal.IsNegative() {
		return h.respondError(c, domain.NewValidationError("handler.previewDiscount", "subtotal", "must be a non-negative decimal string"))
	}

	result, err := h.discounts.Validate(c.Request().Context(), req.Code, subtotal, domain.Channel(req.Channel))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// createDiscountRequest is the admin code-creation payload.
type createDiscountRequest struct {
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	Value       string     `json:"value"`
	MinSubtotal string     `json:"min_subtotal"`
	Channels    []string   `json:"channels"`
	ExpiresAt   *time.Time `json:"expires_at"`
	MaxUses     int32      `json:"max_uses"`
}

// CreateDiscount registers a new code.
// POST /admin/discounts
func (h *Handler) CreateDiscount(c echo.Context) error {
	const op = "handler.createDiscount"

	var req createDiscountRequest
	if err := h.bind(c, op, &req); err != nil {
		return h.respondError(c, err)
	}

	value := decimal.Zero
	if req.Value != "" {
		v, err := decimal.NewFromString(req.Value)
		if err != nil {
			return h.respondError(c, domain.NewValidationError(op, "value", "must be a decimal string"))
		}
		value = v
	}
	minSubtotal := decimal.Zero
	if req.MinSubtotal != "" {
		v, err := decimal.NewFromString(req.MinSubtotal)
		if err != nil || v.IsNegative() {
			return h.respondError(c, domain.NewValidationError(op, "min_subtotal", "must be a non-negative decimal string"))
		}
		minSubtotal = v
	}

	code := &domain.DiscountCode{
		Code:        req.Code,
		Type:        domain.DiscountType(req.Type),
		Value:       value,
		MinSubtotal: minSubtotal,
		ExpiresAt:   req.ExpiresAt,
		MaxUses:     req.MaxUses,
	}
	for _, ch := range req.Channels {
		code.Channels = append(code.Channels, domain.Channel(ch))
	}

	if err := h.discounts.Create(c.Request().Context(), code); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, code)
}

// ListDiscounts returns all codes with their usage counters.
// GET /admin/discounts
func (h *Handler) ListDiscounts(c echo.Context) error {
	codes, err := h.discounts.List(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, codes)
}
