package invoicing

import "errors"

var (
	// ErrMissingAPIKey is returned when the provider API key is missing.
	ErrMissingAPIKey = errors.New("invoicing: API key is required")

	// ErrMissingSeries is returned when no invoice series is configured.
	ErrMissingSeries = errors.New("invoicing: invoice series is required")

	// ErrEmptyInvoice is returned when an invoice has no lines.
	ErrEmptyInvoice = errors.New("invoicing: invoice has no lines")
)
