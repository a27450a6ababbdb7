package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/printera/printera/internal/courier"
	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/invoicing"
	"github.com/printera/printera/internal/notify"
	"github.com/printera/printera/internal/telemetry"
)

// FulfillmentStore is the storage surface for post-payment side effects.
type FulfillmentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	SaveInvoice(ctx context.Context, inv *domain.Invoice) error
	GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error)
	SaveShipment(ctx context.Context, sh *domain.Shipment) error
	GetShipmentByAWB(ctx context.Context, awb string) (*domain.Shipment, error)
	GetActiveShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error)
	SupersedeShipment(ctx context.Context, orderID uuid.UUID) error
	UpdateShipmentTracking(ctx context.Context, awb, status, lastEvent string) error
	ListUndeliveredShipments(ctx context.Context, limit int32) ([]domain.Shipment, error)
}

// FulfillmentService executes invoice issuance, shipment registration
// and notifications for secured orders. Every operation here is a side
// effect of an already-committed order state; a failure never rolls the
// order back.
type FulfillmentService struct {
	store      FulfillmentStore
	invoicer   invoicing.Provider
	carrier    courier.Provider
	dispatcher *notify.Dispatcher
	metrics    *telemetry.Metrics
	baseURL    string
	logger     zerolog.Logger
}

// NewFulfillmentService creates the fulfillment service.
func NewFulfillmentService(store FulfillmentStore, invoicer invoicing.Provider, carrier courier.Provider, dispatcher *notify.Dispatcher, metrics *telemetry.Metrics, baseURL string, logger zerolog.Logger) *FulfillmentService {
	return &FulfillmentService{
		store:      store,
		invoicer:   invoicer,
		carrier:    carrier,
		dispatcher: dispatcher,
		metrics:    metrics,
		baseURL:    baseURL,
		logger:     logger.With().Str("component", "fulfillment").Logger(),
	}
}

// IssueInvoice issues the fiscal invoice for a secured order. Idempotent:
// when the order already has an invoice it is returned as-is and the
// provider is not called again.
func (s *FulfillmentService) IssueInvoice(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Payable() {
		return nil, ErrOrderNotPayable
	}

	if existing, err := s.store.GetInvoiceByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}

	issued, err := s.invoicer.IssueInvoice(ctx, buildInvoiceParams(order))
	if err != nil {
		return nil, err
	}

	inv := &domain.Invoice{
		ID:           uuid.New(),
		OrderID:      order.ID,
		Series:       issued.Series,
		Number:       issued.Number,
		DocumentLink: issued.DocumentLink,
		IssuedAt:     issued.IssuedAt,
	}
	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			// Lost a race with a concurrent issue; the stored one wins.
			return s.store.GetInvoiceByOrder(ctx, orderID)
		}
		return nil, err
	}

	s.logger.Info().Str("number", order.Number).Str("invoice", inv.Series+"-"+inv.Number).Msg("invoice issued")
	return inv, nil
}

// buildInvoiceParams maps an order to invoice lines: one per item, plus
// the effective shipping charge and a negative adjustment line for a
// monetary discount, so the document total equals the order total.
func buildInvoiceParams(order *domain.Order) invoicing.IssueInvoiceParams {
	params := invoicing.IssueInvoiceParams{
		OrderNumber:  order.Number,
		CustomerName: order.Billing.Name,
		Email:        order.Billing.Email,
		CompanyName:  order.Billing.CompanyName,
		TaxID:        order.Billing.VATCode,
		Address:      order.Billing.Address,
		City:         order.Billing.City,
		County:       order.Billing.County,
		Total:        order.Total,
		Currency:     order.Currency,
	}
	for _, item := range order.Items {
		params.Lines = append(params.Lines, invoicing.InvoiceLine{
			Description: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	shipping := order.ShippingFee
	if order.Discount != nil && order.Discount.Type == domain.DiscountFreeShipping {
		shipping = decimal.Zero
	}
	if shipping.IsPositive() {
		params.Lines = append(params.Lines, invoicing.InvoiceLine{
			Description: "Transport",
			Quantity:    1,
			UnitPrice:   shipping,
		})
	}
	if amount := order.DiscountAmount(); amount.IsPositive() {
		params.Lines = append(params.Lines, invoicing.InvoiceLine{
			Description: "Reducere " + order.Discount.Code,
			Quantity:    1,
			UnitPrice:   amount.Neg(),
		})
	}
	return params
}

// ShipmentResult pairs the stored shipment with the label bytes when the
// label download succeeded.
type ShipmentResult struct {
	Shipment *domain.Shipment
	Label    []byte
}

// IssueShipment registers the courier AWB for a secured order. The COD
// collection amount equals the order total only for cash-on-delivery.
// The AWB is persisted even when the label download fails; the label
// stays retryable through DownloadLabel.
func (s *FulfillmentService) IssueShipment(ctx context.Context, orderID uuid.UUID) (*ShipmentResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Payable() {
		return nil, ErrOrderNotPayable
	}

	if _, err := s.store.GetActiveShipmentByOrder(ctx, orderID); err == nil {
		return nil, domain.ErrOrderHasShipment
	} else if !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}

	awb, err := s.carrier.CreateAWB(ctx, courier.CreateAWBParams{
		OrderNumber: order.Number,
		Recipient: courier.RecipientAddress{
			Name:       order.Shipping.Name,
			Phone:      order.Shipping.Phone,
			Email:      order.Shipping.Email,
			County:     order.Shipping.County,
			City:       order.Shipping.City,
			Street:     order.Shipping.Line1,
			PostalCode: order.Shipping.PostalCode,
		},
		Parcels:   1,
		WeightKg:  estimateWeight(order),
		CODAmount: order.CODAmount(),
		Currency:  order.Currency,
		Contents:  contentsSummary(order),
	})
	if err != nil {
		return nil, err
	}

	shipment := &domain.Shipment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Carrier:  awb.Carrier,
		AWB:      awb.Number,
		LabelRef: awb.LabelRef,
		Status:   "registered",
	}
	if err := s.store.SaveShipment(ctx, shipment); err != nil {
		return nil, err
	}

	result := &ShipmentResult{Shipment: shipment}
	label, err := s.carrier.DownloadLabel(ctx, awb.LabelRef)
	if err != nil {
		// AWB stays valid; the label can be fetched again later.
		s.logger.Warn().Err(err).Str("awb", awb.Number).Msg("label download failed, AWB persisted")
	} else {
		result.Label = label
	}

	s.logger.Info().Str("number", order.Number).Str("awb", awb.Number).
		Str("cod", order.CODAmount().StringFixed(2)).Msg("shipment issued")
	return result, nil
}

// ReissueShipment supersedes the active AWB and registers a new one.
// This is an explicit administrative action, never an automatic retry:
// a duplicate AWB means a duplicate physical parcel.
func (s *FulfillmentService) ReissueShipment(ctx context.Context, orderID uuid.UUID) (*ShipmentResult, error) {
	if err := s.store.SupersedeShipment(ctx, orderID); err != nil && !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}
	result, err := s.IssueShipment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("awb", result.Shipment.AWB).Msg("shipment reissued")
	return result, nil
}

// DownloadLabel fetches the label for an existing shipment by AWB.
func (s *FulfillmentService) DownloadLabel(ctx context.Context, awb string) ([]byte, error) {
	shipment, err := s.store.GetShipmentByAWB(ctx, awb)
	if err != nil {
		return nil, err
	}
	return s.carrier.DownloadLabel(ctx, shipment.LabelRef)
}

// TrackShipment polls the carrier and stores the mapped status.
func (s *FulfillmentService) TrackShipment(ctx context.Context, awb string) (*domain.Shipment, error) {
	shipment, err := s.store.GetShipmentByAWB(ctx, awb)
	if err != nil {
		return nil, err
	}

	info, err := s.carrier.TrackAWB(ctx, awb)
	if err != nil {
		return nil, err
	}

	status := mapCarrierStatus(info.Status)
	if err := s.store.UpdateShipmentTracking(ctx, awb, status, info.LastEvent); err != nil {
		return nil, err
	}
	shipment.Status = status
	shipment.LastEvent = info.LastEvent
	return shipment, nil
}

// RefreshUndelivered polls tracking for every active, undelivered
// shipment. Used by the background tracking job.
func (s *FulfillmentService) RefreshUndelivered(ctx context.Context, limit int32) (int, error) {
	shipments, err := s.store.ListUndeliveredShipments(ctx, limit)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, sh := range shipments {
		if _, err := s.TrackShipment(ctx, sh.AWB); err != nil {
			s.logger.Warn().Err(err).Str("awb", sh.AWB).Msg("tracking refresh failed")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// NotifyCustomer sends the customer the notice matching the order's
// current state. Best-effort; the error is recorded on the task only.
func (s *FulfillmentService) NotifyCustomer(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Shipping.Email == "" {
		s.logger.Info().Str("number", order.Number).Msg("customer has no email, skipping notice")
		return nil
	}

	notice := notify.OrderConfirmedNotice{
		OrderNumber:    order.Number,
		CustomerName:   order.Shipping.Name,
		CustomerEmail:  order.Shipping.Email,
		PlacedAt:       order.CreatedAt,
		Subtotal:       order.Subtotal,
		Discount:       order.DiscountAmount(),
		ShippingFee:    order.ShippingFee,
		Total:          order.Total,
		CashOnDelivery: order.Method == domain.PaymentMethodCashDelivery,
		CODAmount:      order.CODAmount(),
	}
	for _, item := range order.Items {
		notice.Lines = append(notice.Lines, notify.NoticeLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			LineTotal: item.Total,
		})
	}

	if err := s.dispatcher.NotifyCustomer(ctx, order.Shipping.Email, notice); err != nil {
		s.metrics.NotificationFailed("customer")
		return err
	}
	return nil
}

// NotifyShipped tells the customer their parcel is on the way.
func (s *FulfillmentService) NotifyShipped(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	shipment, err := s.store.GetActiveShipmentByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Shipping.Email == "" {
		return nil
	}

	err = s.dispatcher.NotifyCustomer(ctx, order.Shipping.Email, notify.OrderShippedNotice{
		OrderNumber:   order.Number,
		CustomerName:  order.Shipping.Name,
		CustomerEmail: order.Shipping.Email,
		Carrier:       shipment.Carrier,
		AWB:           shipment.AWB,
		TrackingURL:   fmt.Sprintf("%s/api/shipments/%s/tracking", s.baseURL, shipment.AWB),
	})
	if err != nil {
		s.metrics.NotificationFailed("customer")
	}
	return err
}

// NotifyOps alerts the operations inbox about a secured order.
func (s *FulfillmentService) NotifyOps(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	err = s.dispatcher.NotifyOps(ctx, notify.OpsNewOrderNotice{
		OrderNumber:    order.Number,
		Channel:        string(order.Channel),
		Total:          order.Total,
		ItemCount:      len(order.Items),
		CashOnDelivery: order.Method == domain.PaymentMethodCashDelivery,
	})
	if err != nil {
		s.metrics.NotificationFailed("ops")
	}
	return err
}

// NotifyPaymentFailed tells the customer their card session ended
// without payment and how to retry.
func (s *FulfillmentService) NotifyPaymentFailed(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Shipping.Email == "" {
		return nil
	}

	err = s.dispatcher.NotifyCustomer(ctx, order.Shipping.Email, notify.PaymentFailedNotice{
		OrderNumber:   order.Number,
		CustomerName:  order.Shipping.Name,
		CustomerEmail: order.Shipping.Email,
		RetryURL:      fmt.Sprintf("%s/api/orders/%s", s.baseURL, order.Number),
	})
	if err != nil {
		s.metrics.NotificationFailed("customer")
	}
	return err
}

// NotifyTaskFailed alerts the operations inbox that a fulfillment task
// exhausted its retries.
func (s *FulfillmentService) NotifyTaskFailed(ctx context.Context, orderNumber, task, lastError string) {
	err := s.dispatcher.NotifyOps(ctx, notify.OpsTaskFailedNotice{
		OrderNumber: orderNumber,
		Task:        task,
		LastError:   lastError,
	})
	if err != nil {
		s.metrics.NotificationFailed("ops")
		s.logger.Warn().Err(err).Str("number", orderNumber).Msg("failed to alert ops about failed task")
	}
}

// estimateWeight derives a declared weight from the ordered area.
// 0.5 kg per m² with a 1 kg floor covers the catalog's materials.
func estimateWeight(order *domain.Order) decimal.Decimal {
	area := decimal.Zero
	for _, item := range order.Items {
		if item.Config.WidthCm > 0 && item.Config.HeightCm > 0 {
			unit := decimal.NewFromFloat(item.Config.WidthCm).
				Mul(decimal.NewFromFloat(item.Config.HeightCm)).
				Div(decimal.NewFromInt(10000))
			area = area.Add(unit.Mul(decimal.NewFromInt32(item.Quantity)))
		}
	}
	weight := area.Mul(decimal.NewFromFloat(0.5))
	if weight.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return domain.Round2(weight)
}

// contentsSummary builds the label contents line.
func contentsSummary(order *domain.Order) string {
	if len(order.Items) == 1 {
		return order.Items[0].ProductName
	}
	return fmt.Sprintf("Materiale printate (%d articole)", len(order.Items))
}

// mapCarrierStatus normalizes carrier wording to internal statuses.
func mapCarrierStatus(carrierStatus string) string {
	switch carrierStatus {
	case "delivered":
		return "delivered"
	case "returned", "refused":
		return "returned"
	case "out_for_delivery":
		return "out_for_delivery"
	case "in_transit", "picked_up":
		return "in_transit"
	default:
		return "registered"
	}
}
