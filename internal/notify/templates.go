package notify

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notice defines the interface for notification payloads.
type Notice interface {
	Subject() string
	TemplateName() string
}

// NoticeLine is one order line as shown in a notification.
type NoticeLine struct {
	Name      string
	Quantity  int32
	LineTotal decimal.Decimal
}

// OrderConfirmedNotice is sent to the customer when an order is secured,
// either paid by card or accepted for cash on delivery.
type OrderConfirmedNotice struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	PlacedAt      time.Time
	Lines         []NoticeLine
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	ShippingFee   decimal.Decimal
	Total         decimal.Decimal
	CashOnDelivery bool
	CODAmount     decimal.Decimal
}

func (n OrderConfirmedNotice) Subject() string {
	return "Confirmare comanda " + n.OrderNumber
}

func (n OrderConfirmedNotice) TemplateName() string {
	return "order_confirmed"
}

// OrderShippedNotice is sent to the customer when the parcel is handed to
// the carrier.
type OrderShippedNotice struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	Carrier       string
	AWB           string
	TrackingURL   string
}

func (n OrderShippedNotice) Subject() string {
	return "Comanda " + n.OrderNumber + " a fost expediata"
}

func (n OrderShippedNotice) TemplateName() string {
	return "order_shipped"
}

// PaymentFailedNotice is sent to the customer when a card session ends
// without payment.
type PaymentFailedNotice struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	RetryURL      string
}

func (n PaymentFailedNotice) Subject() string {
	return "Plata pentru comanda " + n.OrderNumber + " nu a fost finalizata"
}

func (n PaymentFailedNotice) TemplateName() string {
	return "payment_failed"
}

// OpsNewOrderNotice alerts the operations team about a secured order
// entering production.
type OpsNewOrderNotice struct {
	OrderNumber string
	Channel     string
	Total       decimal.Decimal
	ItemCount   int
	CashOnDelivery bool
}

func (n OpsNewOrderNotice) Subject() string {
	return "[printera] Comanda noua " + n.OrderNumber
}

func (n OpsNewOrderNotice) TemplateName() string {
	return "ops_new_order"
}

// OpsTaskFailedNotice alerts the operations team that a fulfillment step
// exhausted its retries and needs a human.
type OpsTaskFailedNotice struct {
	OrderNumber string
	Task        string
	LastError   string
}

func (n OpsTaskFailedNotice) Subject() string {
	return "[printera] Interventie necesara: " + n.Task + " pentru " + n.OrderNumber
}

func (n OpsTaskFailedNotice) TemplateName() string {
	return "ops_task_failed"
}
