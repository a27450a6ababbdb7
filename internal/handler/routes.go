package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printera/printera/internal/middleware"
)

// Register wires every route onto the echo instance. Public pricing and
// intake endpoints are open; /admin requires the configured API key.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/price/canvas/preset", h.QuotePreset)
	api.POST("/price/:family", h.Quote)
	api.POST("/discounts/preview", h.PreviewDiscount)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders/:number", h.GetOrder)
	api.POST("/orders/:number/finalize", h.FinalizeOrder)
	api.POST("/assistant/orders", h.CreateAssistantOrder)
	api.GET("/assistant/sessions/:key", h.GetAssistantSession)
	api.PUT("/assistant/sessions/:key", h.PutAssistantSession)
	api.DELETE("/assistant/sessions/:key", h.DeleteAssistantSession)
	api.GET("/shipments/:awb/label", h.DownloadLabel)
	api.GET("/shipments/:awb/tracking", h.TrackShipment)

	e.POST("/webhooks/stripe", h.StripeWebhook)

	admin := e.Group("/admin", middleware.APIKey(h.cfg.AdminAPIKey))
	admin.GET("/orders", h.ListOrders)
	admin.POST("/orders/:id/items", h.AddOrderItem)
	admin.DELETE("/orders/:id/items/:itemID", h.RemoveOrderItem)
	admin.PATCH("/orders/:id/status", h.ChangeOrderStatus)
	admin.PATCH("/orders/:id/address", h.UpdateOrderAddress)
	admin.POST("/orders/:id/artwork", h.AttachArtwork)
	admin.POST("/orders/:id/discount", h.ApplyOrderDiscount)
	admin.DELETE("/orders/:id/discount", h.RemoveOrderDiscount)
	admin.POST("/orders/:id/invoice", h.IssueInvoice)
	admin.POST("/orders/:id/shipment", h.IssueShipment)
	admin.POST("/orders/:id/shipment/reissue", h.ReissueShipment)
	admin.POST("/orders/:id/fulfill", h.RunFulfillment)
	admin.POST("/discounts", h.CreateDiscount)
	admin.GET("/discounts", h.ListDiscounts)
}
