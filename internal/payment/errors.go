package payment

import "errors"

var (
	// ErrMissingAPIKey is returned when the provider API key is missing.
	ErrMissingAPIKey = errors.New("payment: API key is required")

	// ErrSessionNotFound is returned when a payment session does not exist.
	ErrSessionNotFound = errors.New("payment: session not found")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("payment: invalid webhook signature")

	// ErrAmountTooSmall is returned when the amount is below the provider's minimum charge.
	ErrAmountTooSmall = errors.New("payment: amount below provider minimum")
)
