package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/postgres"
)

// orderID parses the :id path parameter.
func orderID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.admin", "malformed order id")
	}
	return id, nil
}

// ListOrders returns orders newest first, filterable by status and
// channel.
// GET /admin/orders
func (h *Handler) ListOrders(c echo.Context) error {
	filter := postgres.OrderFilter{
		Status:  domain.OrderStatus(c.QueryParam("status")),
		Channel: domain.Channel(c.QueryParam("channel")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
			filter.Limit = int32(n)
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
			filter.Offset = int32(n)
		}
	}

	orders, err := h.orders.List(c.Request().Context(), filter)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// AddOrderItem prices and appends a manually entered item.
// POST /admin/orders/:id/items
func (h *Handler) AddOrderItem(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var entry domain.AdminItemEntry
	if err := h.bind(c, "handler.addItem", &entry); err != nil {
		return h.respondError(c, err)
	}

	order, err := h.orders.AddItem(c.Request().Context(), id, entry)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// RemoveOrderItem deletes one line from a mutable order.
// DELETE /admin/orders/:id/items/:itemID
func (h *Handler) RemoveOrderItem(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return h.respondError(c, domain.Invalid("handler.removeItem", "malformed item id"))
	}

	order, err := h.orders.RemoveItem(c.Request().Context(), id, itemID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// ChangeOrderStatus performs an admin lifecycle transition.
// PATCH /admin/orders/:id/status
func (h *Handler) ChangeOrderStatus(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := h.bind(c, "handler.changeStatus", &req); err != nil {
		return h.respondError(c, err)
	}

	order, err := h.orders.ChangeStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateOrderAddress replaces the shipping snapshot.
// PATCH /admin/orders/:id/address
func (h *Handler) UpdateOrderAddress(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var addr domain.Address
	if err := h.bind(c, "handler.updateAddress", &addr); err != nil {
		return h.respondError(c, err)
	}

	order, err := h.orders.UpdateShippingAddress(c.Request().Context(), id, addr)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// AttachArtwork sets the artwork reference on one item.
// POST /admin/orders/:id/artwork
func (h *Handler) AttachArtwork(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req struct {
		ItemID     uuid.UUID `json:"item_id"`
		ArtworkRef string    `json:"artwork_ref"`
	}
	if err := h.bind(c, "handler.attachArtwork", &req); err != nil {
		return h.respondError(c, err)
	}

	order, err := h.orders.AttachArtwork(c.Request().Context(), id, req.ItemID, req.ArtworkRef)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// ApplyOrderDiscount attaches a code to an order, re-validated under
// the code's row lock.
// POST /admin/orders/:id/discount
func (h *Handler) ApplyOrderDiscount(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := h.bind(c, "handler.applyDiscount", &req); err != nil {
		return h.respondError(c, err)
	}

	order, err := h.discounts.Apply(c.Request().Context(), id, req.Code)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// RemoveOrderDiscount detaches the applied code and releases its usage.
// DELETE /admin/orders/:id/discount
func (h *Handler) RemoveOrderDiscount(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	order, err := h.discounts.Remove(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// IssueInvoice issues the fiscal invoice manually. Idempotent: an
// already-invoiced order answers with the stored document.
// POST /admin/orders/:id/invoice
func (h *Handler) IssueInvoice(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	inv, err := h.fulfillment.IssueInvoice(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

// IssueShipment registers the courier AWB manually.
// POST /admin/orders/:id/shipment
func (h *Handler) IssueShipment(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	result, err := h.fulfillment.IssueShipment(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result.Shipment)
}

// ReissueShipment supersedes the active AWB and registers a new one.
// Explicitly administrative: a duplicate AWB is a duplicate parcel.
// POST /admin/orders/:id/shipment/reissue
func (h *Handler) ReissueShipment(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	result, err := h.fulfillment.ReissueShipment(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result.Shipment)
}

// RunFulfillment re-runs the fulfillment fan-out for one order,
// synchronously. Escape hatch for orders whose event was lost.
// POST /admin/orders/:id/fulfill
func (h *Handler) RunFulfillment(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	order, err := h.orders.Get(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	if !order.Payable() {
		return h.respondError(c, domain.Invalid("handler.runFulfillment", "order is not secured for fulfillment"))
	}

	h.worker.RunOrder(c.Request().Context(), order.ID, order.Number)
	return c.JSON(http.StatusAccepted, map[string]string{"status": "dispatched", "number": order.Number})
}
