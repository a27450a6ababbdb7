package domain

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is the fiscal document reference assigned by the invoicing
// collaborator. At most one per order; issuance is idempotent.
type Invoice struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	Series       string    `json:"series"`
	Number       string    `json:"number"`
	DocumentLink string    `json:"document_link,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Shipment is the courier parcel reference for an order. At most one
// active (non-superseded) shipment per order; replacing the AWB is an
// explicit administrative action.
type Shipment struct {
	ID           uuid.UUID  `json:"id"`
	OrderID      uuid.UUID  `json:"order_id"`
	Carrier      string     `json:"carrier"`
	AWB          string     `json:"awb"`
	LabelRef     string     `json:"-"`
	Status       string     `json:"status"`
	LastEvent    string     `json:"last_event,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// FulfillmentTaskKind enumerates the independent post-commit side effects
// dispatched after an order becomes payable or paid.
type FulfillmentTaskKind string

const (
	TaskIssueInvoice   FulfillmentTaskKind = "issue_invoice"
	TaskIssueShipment  FulfillmentTaskKind = "issue_shipment"
	TaskNotifyCustomer FulfillmentTaskKind = "notify_customer"
	TaskNotifyOps      FulfillmentTaskKind = "notify_ops"
)

// FulfillmentTaskStatus enumerates task outcomes.
type FulfillmentTaskStatus string

const (
	TaskPending FulfillmentTaskStatus = "pending"
	TaskDone    FulfillmentTaskStatus = "done"
	TaskFailed  FulfillmentTaskStatus = "failed"
)

// FulfillmentTask tracks one side effect of an order transition with its
// own success/failure status. A failed task never rolls back or blocks the
// order's paid/accepted state; it is retried by the worker or an operator.
type FulfillmentTask struct {
	ID        uuid.UUID             `json:"id"`
	OrderID   uuid.UUID             `json:"order_id"`
	Kind      FulfillmentTaskKind   `json:"kind"`
	Status    FulfillmentTaskStatus `json:"status"`
	Attempts  int32                 `json:"attempts"`
	LastError string                `json:"last_error,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
