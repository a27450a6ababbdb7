package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/printera/printera/internal/domain"
)

// DiscountStore is the storage surface for discount operations.
type DiscountStore interface {
	GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error)
	ApplyDiscountUsage(ctx context.Context, code string, check func(c *domain.DiscountCode) error) (*domain.DiscountCode, error)
	ReleaseDiscountUsage(ctx context.Context, code string) error
	CreateDiscountCode(ctx context.Context, c *domain.DiscountCode) error
	ListDiscountCodes(ctx context.Context) ([]domain.DiscountCode, error)
	MutateOrder(ctx context.Context, id uuid.UUID, fn func(o *domain.Order) error) (*domain.Order, error)
}

// ValidationResult is the outcome of a side-effect-free code preview.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Reason   string              `json:"reason,omitempty"`
	Code     string              `json:"code,omitempty"`
	Type     domain.DiscountType `json:"type,omitempty"`
	Discount decimal.Decimal     `json:"discount"`
}

// DiscountService validates and applies discount codes.
type DiscountService struct {
	store  DiscountStore
	logger zerolog.Logger
}

// NewDiscountService creates the discount service.
func NewDiscountService(store DiscountStore, logger zerolog.Logger) *DiscountService {
	return &DiscountService{
		store:  store,
		logger: logger.With().Str("component", "discount").Logger(),
	}
}

// Validate previews a code against an order context. Read-only and
// repeatable: no usage is reserved, and the same inputs always return
// the same result.
func (s *DiscountService) Validate(ctx context.Context, code string, subtotal decimal.Decimal, channel domain.Channel) (*ValidationResult, error) {
	c, err := s.store.GetDiscountCode(ctx, code)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return &ValidationResult{Valid: false, Reason: "code not found"}, nil
		}
		return nil, err
	}

	if err := c.EligibleFor(subtotal, channel, time.Now()); err != nil {
		return &ValidationResult{Valid: false, Reason: domain.ErrorMessage(err)}, nil
	}

	return &ValidationResult{
		Valid:    true,
		Code:     c.Code,
		Type:     c.Type,
		Discount: previewAmount(c, subtotal),
	}, nil
}

// Apply attaches a code to an order. It re-validates against the current
// order state under a row lock on the code (a code can become exhausted
// between preview and apply) and only then increments the usage counter.
// A previously applied code is replaced, never stacked, and its usage is
// released.
func (s *DiscountService) Apply(ctx context.Context, orderID uuid.UUID, code string) (*domain.Order, error) {
	var (
		replaced string
		reserved string
	)

	order, err := s.store.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		if !o.ItemsMutable() {
			return domain.ErrOrderNotMutable
		}

		applied, err := s.store.ApplyDiscountUsage(ctx, code, func(c *domain.DiscountCode) error {
			return c.EligibleFor(o.Subtotal, o.Channel, time.Now())
		})
		if err != nil {
			return err
		}
		reserved = applied.Code

		if o.Discount != nil && o.Discount.Code != applied.Code {
			replaced = o.Discount.Code
		}
		o.Discount = applied.Descriptor()
		o.RecomputeTotals()
		return nil
	})
	if err != nil {
		// The usage counter lives in its own transaction; give the
		// reservation back when the order write did not stick.
		if reserved != "" {
			if relErr := s.store.ReleaseDiscountUsage(ctx, reserved); relErr != nil {
				s.logger.Error().Err(relErr).Str("code", reserved).Msg("failed to release discount usage after apply failure")
			}
		}
		return nil, err
	}

	if replaced != "" {
		if err := s.store.ReleaseDiscountUsage(ctx, replaced); err != nil {
			s.logger.Error().Err(err).Str("code", replaced).Msg("failed to release replaced discount usage")
		}
	}

	s.logger.Info().Str("number", order.Number).Str("code", domain.NormalizeCode(code)).Msg("discount applied")
	return order, nil
}

// Remove detaches the applied code from an order and releases its usage.
func (s *DiscountService) Remove(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var released string

	order, err := s.store.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		if !o.ItemsMutable() {
			return domain.ErrOrderNotMutable
		}
		if o.Discount == nil {
			return nil
		}
		released = o.Discount.Code
		o.Discount = nil
		o.RecomputeTotals()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if released != "" {
		if err := s.store.ReleaseDiscountUsage(ctx, released); err != nil {
			s.logger.Error().Err(err).Str("code", released).Msg("failed to release removed discount usage")
		}
	}
	return order, nil
}

// Create registers a new discount code.
func (s *DiscountService) Create(ctx context.Context, c *domain.DiscountCode) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = domain.NormalizeCode(c.Code)
	if c.Code == "" {
		return domain.Invalid("discount.create", "code is required")
	}
	switch c.Type {
	case domain.DiscountPercentage:
		if c.Value.LessThanOrEqual(decimal.Zero) || c.Value.GreaterThan(decimal.NewFromInt(100)) {
			return domain.Invalid("discount.create", "percentage must be between 0 and 100")
		}
	case domain.DiscountFixedAmount:
		if c.Value.LessThanOrEqual(decimal.Zero) {
			return domain.Invalid("discount.create", "fixed amount must be positive")
		}
	case domain.DiscountFreeShipping:
	default:
		return domain.Invalid("discount.create", "unknown discount type")
	}
	return s.store.CreateDiscountCode(ctx, c)
}

// List returns all codes.
func (s *DiscountService) List(ctx context.Context) ([]domain.DiscountCode, error) {
	return s.store.ListDiscountCodes(ctx)
}

// previewAmount computes the monetary effect for preview display.
func previewAmount(c *domain.DiscountCode, subtotal decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case domain.DiscountPercentage:
		return domain.Round2(subtotal.Mul(c.Value).Div(decimal.NewFromInt(100)))
	case domain.DiscountFixedAmount:
		if c.Value.GreaterThan(subtotal) {
			return subtotal
		}
		return c.Value
	}
	return decimal.Zero
}
