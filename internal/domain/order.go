package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the order lifecycle.
//
// created → awaiting_payment → paid      (card)
// created → cash_pending                 (cash on delivery / bank transfer)
// awaiting_payment → payment_failed
// paid | cash_pending → fulfilled
// any pre-fulfillment state → cancelled
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "created"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusPaymentFailed   OrderStatus = "payment_failed"
	OrderStatusCashPending     OrderStatus = "cash_pending"
	OrderStatusFulfilled       OrderStatus = "fulfilled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Channel identifies the intake surface an order originated from.
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelChat  Channel = "chat"
	ChannelBot   Channel = "bot"
	ChannelAdmin Channel = "admin"
)

// PaymentMethod enumerates supported payment methods.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCashDelivery PaymentMethod = "cod"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Order-related domain errors.
var (
	ErrOrderNotFound       = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrOrderNotMutable     = &Error{Code: ECONFLICT, Message: "Order items can no longer be changed"}
	ErrEventAlreadyHandled = &Error{Code: ECONFLICT, Message: "Payment event already processed"}
	ErrOrderAlreadyPaid    = &Error{Code: ECONFLICT, Message: "Order already paid"}
	ErrOrderNotPayable     = &Error{Code: EINVALID, Message: "Order is not in a payable state"}
	ErrInvalidStatusChange = &Error{Code: EINVALID, Message: "Invalid order status transition"}
	ErrOrderHasShipment    = &Error{Code: ECONFLICT, Message: "Order already has an active shipment"}
	ErrShipmentNotFound    = &Error{Code: ENOTFOUND, Message: "Shipment not found"}
	ErrMissingSessionOrder = &Error{Code: EINVALID, Message: "Order reference missing from payment session metadata"}
	ErrPaymentNotSucceeded = &Error{Code: EPAYMENT, Message: "Payment has not succeeded"}
)

// Address is the shipping address snapshot stored on the order.
// It is copied at assembly time; later customer edits never rewrite an
// already-issued invoice or shipment.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// BillingProfile is the billing snapshot stored on the order.
// Company fields are empty for consumer orders.
type BillingProfile struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name,omitempty"`
	VATCode     string `json:"vat_code,omitempty"`
	RegNumber   string `json:"reg_number,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	County      string `json:"county"`
	Country     string `json:"country"`
	Email       string `json:"email"`
}

// ItemConfig describes the product configuration of one line. It is kept
// for redisplay and production, not re-priced after assembly.
type ItemConfig struct {
	WidthCm      float64 `json:"width_cm,omitempty"`
	HeightCm     float64 `json:"height_cm,omitempty"`
	SizeKey      string  `json:"size_key,omitempty"`
	Material     string  `json:"material,omitempty"`
	Lamination   bool    `json:"lamination,omitempty"`
	ContourCut   bool    `json:"contour_cut,omitempty"`
	Reinforced   bool    `json:"reinforced,omitempty"`
	DesignOption string  `json:"design_option,omitempty"`
}

// OrderItem is one configured product line, owned exclusively by its Order.
type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	Config      ItemConfig      `json:"config"`
	ArtworkRef  string          `json:"artwork_ref,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AppliedDiscount is the discount descriptor attached to an order after a
// successful apply. At most one per order; re-applying replaces it.
type AppliedDiscount struct {
	CodeID uuid.UUID       `json:"code_id"`
	Code   string          `json:"code"`
	Type   DiscountType    `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Amount decimal.Decimal `json:"amount"`
}

// Order is the aggregate root and the single source of truth for the
// fulfillment flow. Monetary totals are derived, never hand-edited:
// RecomputeTotals is the only writer.
type Order struct {
	ID          uuid.UUID        `json:"id"`
	Number      string           `json:"number"`
	Status      OrderStatus      `json:"status"`
	Channel     Channel          `json:"channel"`
	Currency    string           `json:"currency"`
	CustomerID  uuid.UUID        `json:"customer_id"`
	Items       []OrderItem      `json:"items"`
	Shipping    Address          `json:"shipping"`
	Billing     BillingProfile   `json:"billing"`
	Method      PaymentMethod    `json:"payment_method"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	ShippingFee decimal.Decimal  `json:"shipping_fee"`
	Discount    *AppliedDiscount `json:"discount,omitempty"`
	Total       decimal.Decimal  `json:"total"`
	Notes       string           `json:"notes,omitempty"`
	InvoiceID   *uuid.UUID       `json:"invoice_id,omitempty"`
	ShipmentID  *uuid.UUID       `json:"shipment_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Round2 rounds a monetary amount to 2 decimal places, half up.
// Intermediate pricing math keeps full precision; rounding happens once,
// at the final step.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RecomputeTotals recalculates subtotal, discount amount and total from the
// current items, shipping fee and applied discount. It is invoked after
// every item, discount or shipping mutation and is idempotent: calling it
// twice without further mutation yields identical values.
//
// Discount semantics:
//   - percentage applies to the pre-shipping subtotal
//   - fixed amount is capped at the subtotal (total never goes negative)
//   - free shipping zeroes the shipping contribution; ShippingFee keeps the
//     original value for display and audit
//
// The stored Discount.Amount and the amount subtracted from the total are
// the same rounded value, so subtotal + shipping - discount always
// reconciles with the persisted total.
func (o *Order) RecomputeTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].Total = Round2(o.Items[i].UnitPrice.Mul(decimal.NewFromInt32(o.Items[i].Quantity)))
		subtotal = subtotal.Add(o.Items[i].Total)
	}
	o.Subtotal = Round2(subtotal)

	shipping := o.ShippingFee
	discountAmount := decimal.Zero
	if o.Discount != nil {
		switch o.Discount.Type {
		case DiscountPercentage:
			discountAmount = Round2(o.Subtotal.Mul(o.Discount.Value).Div(decimal.NewFromInt(100)))
		case DiscountFixedAmount:
			discountAmount = Round2(o.Discount.Value)
			if discountAmount.GreaterThan(o.Subtotal) {
				discountAmount = o.Subtotal
			}
		case DiscountFreeShipping:
			shipping = decimal.Zero
		}
		o.Discount.Amount = discountAmount
	}

	o.Total = Round2(o.Subtotal.Add(shipping).Sub(discountAmount))
}

// DiscountAmount returns the monetary discount currently applied, zero when
// no code is attached.
func (o *Order) DiscountAmount() decimal.Decimal {
	if o.Discount == nil {
		return decimal.Zero
	}
	return o.Discount.Amount
}

// ItemsMutable reports whether line items may still be added or removed.
// Orders become immutable once payment is settled or fulfillment started.
func (o *Order) ItemsMutable() bool {
	switch o.Status {
	case OrderStatusCreated, OrderStatusAwaitingPayment, OrderStatusCashPending:
		return true
	}
	return false
}

// Payable reports whether downstream fulfillment (invoice, shipment) may
// run for this order.
func (o *Order) Payable() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusCashPending
}

// CanTransition validates a status change request.
func (o *Order) CanTransition(next OrderStatus) bool {
	switch next {
	case OrderStatusAwaitingPayment:
		return o.Status == OrderStatusCreated
	case OrderStatusPaid:
		return o.Status == OrderStatusAwaitingPayment
	case OrderStatusPaymentFailed:
		return o.Status == OrderStatusAwaitingPayment
	case OrderStatusCashPending:
		return o.Status == OrderStatusCreated
	case OrderStatusFulfilled:
		return o.Status == OrderStatusPaid || o.Status == OrderStatusCashPending
	case OrderStatusCancelled:
		return o.Status != OrderStatusFulfilled && o.Status != OrderStatusCancelled
	}
	return false
}

// CODAmount returns the amount the courier should collect on delivery:
// the order total for cash-on-delivery orders, zero otherwise.
func (o *Order) CODAmount() decimal.Decimal {
	if o.Method == PaymentMethodCashDelivery {
		return o.Total
	}
	return decimal.Zero
}

// PaymentStatus enumerates card payment session states.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment records the card payment session for an order. One per order;
// updated exactly once to a terminal state by the provider's asynchronous
// confirmation.
type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	SessionID string
	Status    PaymentStatus
	Amount    decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
