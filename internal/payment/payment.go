// Package payment defines the interface to the card payment collaborator.
// The core routes between asynchronous card capture (session + webhook
// confirmation) and synchronous cash/bank-transfer finalization; only the
// card leg goes through this provider.
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for card payment processing.
type Provider interface {
	// CreateSession creates a hosted payment session for an order and
	// returns the client-facing redirect handle. The order stays in
	// awaiting_payment until the asynchronous confirmation arrives.
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)

	// GetSession retrieves an existing payment session.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// VerifyWebhookSignature verifies that a webhook request is authentic.
	// Metadata from an event must not be trusted before this passes.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error
}

// CreateSessionParams contains parameters for creating a payment session.
type CreateSessionParams struct {
	// Amount is the order total in major currency units.
	Amount decimal.Decimal

	// Currency code (ISO 4217) - e.g., "ron", "eur"
	Currency string

	// Description appears on the hosted payment page.
	Description string

	// CustomerEmail prefills the payment page.
	CustomerEmail string

	// Metadata is stored on the session and returned with the
	// confirmation event. Always includes order_id and a serialized
	// cart snapshot so the order can be reconstructed from the event
	// alone.
	Metadata map[string]string

	// SuccessURL and CancelURL are the redirect targets.
	SuccessURL string
	CancelURL  string

	// IdempotencyKey prevents duplicate sessions on caller retries.
	// Typically the order ID.
	IdempotencyKey string
}

// Session represents a hosted payment session.
type Session struct {
	// ID is the provider session identifier (cs_...).
	ID string

	// URL is the hosted payment page the client is redirected to.
	URL string

	// Status: open, complete, expired.
	Status string

	// PaymentStatus: unpaid, paid.
	PaymentStatus string

	// Amount in major currency units.
	Amount decimal.Decimal

	// Currency code.
	Currency string

	// Metadata passed during creation.
	Metadata map[string]string

	CreatedAt time.Time
}

// Paid reports whether the session reached the paid state.
func (s *Session) Paid() bool {
	return s.PaymentStatus == "paid"
}
