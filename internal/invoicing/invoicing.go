// Package invoicing defines the interface to the fiscal invoicing
// collaborator. Invoices are issued once per order after payment is
// secured; idempotency is enforced upstream by the fulfillment service,
// which never calls IssueInvoice for an order that already has one.
package invoicing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for fiscal invoice issuance.
type Provider interface {
	// IssueInvoice registers a fiscal invoice for an order and returns
	// its series/number identity and a document link.
	IssueInvoice(ctx context.Context, params IssueInvoiceParams) (*Invoice, error)
}

// IssueInvoiceParams contains everything the fiscal provider needs to
// register an invoice.
type IssueInvoiceParams struct {
	// OrderNumber is the human-facing order identifier, stored on the
	// invoice for reconciliation.
	OrderNumber string

	// Billing identity. Company fields are empty for consumer invoices.
	CustomerName string
	Email        string
	CompanyName  string
	TaxID        string // CUI for company invoices
	Address      string
	City         string
	County       string

	// Lines are the invoice lines, one per order item plus one for
	// shipping when charged.
	Lines []InvoiceLine

	// Total is the invoice total in major currency units. The provider
	// recomputes from lines; a mismatch is a terminal error.
	Total    decimal.Decimal
	Currency string
}

// InvoiceLine is a single invoice line.
type InvoiceLine struct {
	Description string
	Quantity    int32
	UnitPrice   decimal.Decimal
}

// Invoice is the issued fiscal document identity.
type Invoice struct {
	Series       string
	Number       string
	DocumentLink string
	IssuedAt     time.Time
}
