package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/printera/printera/internal/pricing"
)

// quoteRequest is the dimension-driven pricing payload. Dimensions are
// centimeters; the family comes from the URL.
type quoteRequest struct {
	WidthCm      float64 `json:"widthCm"`
	HeightCm     float64 `json:"heightCm"`
	Quantity     int32   `json:"quantity"`
	Lamination   bool    `json:"lamination"`
	ContourCut   bool    `json:"contourCut"`
	Reinforced   bool    `json:"reinforced"`
	DesignOption string  `json:"designOption"`
}

// Quote prices a dimension-driven configuration.
// POST /api/price/:family
func (h *Handler) Quote(c echo.Context) error {
	var req quoteRequest
	if err := h.bind(c, "handler.quote", &req); err != nil {
		return h.respondError(c, err)
	}

	quote, err := pricing.ComputeQuote(pricing.QuoteParams{
		Family:       pricing.Family(c.Param("family")),
		WidthCm:      req.WidthCm,
		HeightCm:     req.HeightCm,
		Quantity:     req.Quantity,
		Lamination:   req.Lamination,
		ContourCut:   req.ContourCut,
		Reinforced:   req.Reinforced,
		DesignOption: req.DesignOption,
	})
	if err != nil {
		return h.respondError(c, err)
	}

	h.metrics.QuoteComputed(c.Param("family"))
	return c.JSON(http.StatusOK, quote)
}

// presetQuoteRequest is the fixed-size preset payload.
type presetQuoteRequest struct {
	SizeKey  string `json:"sizeKey"`
	Quantity int32  `json:"quantity"`
}

// QuotePreset prices a canvas preset by size key.
// POST /api/price/canvas/preset
func (h *Handler) QuotePreset(c echo.Context) error {
	var req presetQuoteRequest
	if err := h.bind(c, "handler.quotePreset", &req); err != nil {
		return h.respondError(c, err)
	}

	quote, err := pricing.ComputePresetQuote(pricing.PresetParams{
		SizeKey:  req.SizeKey,
		Quantity: req.Quantity,
	})
	if err != nil {
		return h.respondError(c, err)
	}

	h.metrics.QuoteComputed("canvas")
	return c.JSON(http.StatusOK, quote)
}
