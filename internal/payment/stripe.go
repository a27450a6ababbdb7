package payment

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/printera/printera/internal/domain"
)

// StripeProvider implements Provider using Stripe Checkout Sessions.
type StripeProvider struct {
	sc     *client.API
	logger zerolog.Logger
}

// StripeConfig contains configuration for the Stripe provider.
type StripeConfig struct {
	// APIKey is the Stripe secret key (sk_test_... or sk_live_...)
	APIKey string

	// WebhookSecret is the webhook signing secret (whsec_...)
	WebhookSecret string
}

// Validate checks that required configuration is present.
func (c *StripeConfig) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *StripeConfig) IsTestMode() bool {
	return len(c.APIKey) > 7 && c.APIKey[:8] == "sk_test_"
}

// NewStripeProvider creates a new Stripe payment provider.
func NewStripeProvider(cfg StripeConfig, logger zerolog.Logger) (*StripeProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sc := &client.API{}
	sc.Init(cfg.APIKey, nil)

	return &StripeProvider{
		sc:     sc,
		logger: logger.With().Str("component", "stripe").Logger(),
	}, nil
}

// CreateSession creates a Stripe Checkout Session for the order total.
// The whole order is charged as a single line; the itemized breakdown
// lives on our side and travels in the session metadata.
func (p *StripeProvider) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	cents := params.Amount.Shift(2).Round(0).IntPart()
	if cents < 200 {
		// Stripe rejects charges below ~0.50 EUR; 2.00 RON keeps a margin.
		return nil, ErrAmountTooSmall
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(params.SuccessURL),
		CancelURL:     stripe.String(params.CancelURL),
		CustomerEmail: stripe.String(params.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(params.Currency),
					UnitAmount: stripe.Int64(cents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Description),
					},
				},
			},
		},
	}
	sessionParams.Context = ctx
	if params.IdempotencyKey != "" {
		sessionParams.SetIdempotencyKey(params.IdempotencyKey)
	}
	for k, v := range params.Metadata {
		sessionParams.AddMetadata(k, v)
	}

	sess, err := p.sc.CheckoutSessions.New(sessionParams)
	if err != nil {
		p.logger.Error().Err(err).Str("idempotency_key", params.IdempotencyKey).Msg("failed to create checkout session")
		return nil, classifyStripeError(err, "payment.createSession")
	}

	p.logger.Info().Str("session_id", sess.ID).Int64("amount_cents", cents).Msg("checkout session created")
	return fromStripeSession(sess), nil
}

// GetSession retrieves an existing Checkout Session.
func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx

	sess, err := p.sc.CheckoutSessions.Get(sessionID, getParams)
	if err != nil {
		return nil, classifyStripeError(err, "payment.getSession")
	}
	return fromStripeSession(sess), nil
}

// VerifyWebhookSignature verifies a Stripe webhook signature.
func (p *StripeProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	if _, err := webhook.ConstructEvent(payload, signature, secret); err != nil {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// fromStripeSession converts a Stripe session to our Session type.
func fromStripeSession(sess *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		Amount:        decimal.New(sess.AmountTotal, -2),
		Currency:      string(sess.Currency),
		Metadata:      sess.Metadata,
		CreatedAt:     time.Unix(sess.Created, 0),
	}
}

// classifyStripeError splits provider failures into retryable
// (timeout, rate limit, 5xx) and terminal (4xx rejection) per the
// collaborator error taxonomy.
func classifyStripeError(err error, op string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.Code == stripe.ErrorCodeRateLimit {
			return domain.Unavailable(err, op, "payment provider temporarily unavailable")
		}
		return domain.WrapError(err, domain.EINVALID, op, "payment provider rejected the request")
	}
	// Transport-level failure (timeout, connection refused): retryable.
	return domain.Unavailable(err, op, "payment provider unreachable")
}
