package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DownloadLabel streams the courier label PDF for an AWB.
// GET /api/shipments/:awb/label
func (h *Handler) DownloadLabel(c echo.Context) error {
	label, err := h.fulfillment.DownloadLabel(c.Request().Context(), c.Param("awb"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Blob(http.StatusOK, "application/pdf", label)
}

// TrackShipment polls the carrier and returns the refreshed status.
// GET /api/shipments/:awb/tracking
func (h *Handler) TrackShipment(c echo.Context) error {
	shipment, err := h.fulfillment.TrackShipment(c.Request().Context(), c.Param("awb"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, shipment)
}
