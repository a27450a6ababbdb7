package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates supported discount code types.
type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixedAmount  DiscountType = "fixed_amount"
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Discount-related domain errors.
var (
	ErrDiscountNotFound  = &Error{Code: ENOTFOUND, Message: "Discount code not found"}
	ErrDiscountExpired   = &Error{Code: EINVALID, Message: "Discount code has expired"}
	ErrDiscountExhausted = &Error{Code: ECONFLICT, Message: "Discount code usage limit reached"}
)

// DiscountCode is a promotional code with eligibility constraints.
// Codes are case-insensitive and stored upper-cased. Validation is
// read-only; only a confirmed apply increments UsageCount.
type DiscountCode struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MinSubtotal decimal.Decimal `json:"min_subtotal"`
	Channels    []Channel       `json:"channels,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	MaxUses     int32           `json:"max_uses"`
	UsageCount  int32           `json:"usage_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NormalizeCode canonicalizes a user-entered discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EligibleFor checks the code's constraints against an order context at a
// point in time. It performs no mutation and is safe to call repeatedly for
// preview requests.
func (c *DiscountCode) EligibleFor(subtotal decimal.Decimal, channel Channel, now time.Time) error {
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrDiscountExpired
	}
	if c.MaxUses > 0 && c.UsageCount >= c.MaxUses {
		return ErrDiscountExhausted
	}
	if c.MinSubtotal.IsPositive() && subtotal.LessThan(c.MinSubtotal) {
		return Errorf(EINVALID, "discount.validate", "order subtotal below minimum of %s", c.MinSubtotal.StringFixed(2))
	}
	if len(c.Channels) > 0 {
		ok := false
		for _, ch := range c.Channels {
			if ch == channel {
				ok = true
				break
			}
		}
		if !ok {
			return Errorf(EINVALID, "discount.validate", "code not valid for %s orders", channel)
		}
	}
	return nil
}

// Descriptor builds the AppliedDiscount attached to an order. The Amount is
// filled in by Order.RecomputeTotals.
func (c *DiscountCode) Descriptor() *AppliedDiscount {
	return &AppliedDiscount{
		CodeID: c.ID,
		Code:   c.Code,
		Type:   c.Type,
		Value:  c.Value,
	}
}
