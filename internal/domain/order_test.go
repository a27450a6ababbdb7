package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testOrder() *Order {
	return &Order{
		Status:      OrderStatusCreated,
		Currency:    "RON",
		ShippingFee: dec("19.99"),
		Items: []OrderItem{
			{ProductName: "Banner 200x100", Quantity: 1, UnitPrice: dec("158.00")},
			{ProductName: "Stickers 10x10", Quantity: 3, UnitPrice: dec("12.50")},
		},
	}
}

func TestRecomputeTotals(t *testing.T) {
	o := testOrder()
	o.RecomputeTotals()

	assert.True(t, o.Subtotal.Equal(dec("195.50")), "subtotal = %s", o.Subtotal)
	assert.True(t, o.Total.Equal(dec("215.49")), "total = %s", o.Total)

	// Idempotent: recomputing without mutation yields the same values.
	o.RecomputeTotals()
	assert.True(t, o.Total.Equal(dec("215.49")))

	// Removing an item changes the total through recompute only.
	o.Items = o.Items[:1]
	o.RecomputeTotals()
	assert.True(t, o.Subtotal.Equal(dec("158.00")))
	assert.True(t, o.Total.Equal(dec("177.99")))
}

func TestRecomputeTotalsPercentageDiscount(t *testing.T) {
	o := testOrder()
	o.Discount = &AppliedDiscount{Code: "WELCOME10", Type: DiscountPercentage, Value: dec("10")}
	o.RecomputeTotals()

	// 10% of 195.50 = 19.55, applied to the pre-shipping subtotal.
	require.NotNil(t, o.Discount)
	assert.True(t, o.Discount.Amount.Equal(dec("19.55")), "discount = %s", o.Discount.Amount)
	assert.True(t, o.Total.Equal(dec("195.94")), "total = %s", o.Total)
}

func TestRecomputeTotalsDiscountReconcilesWithTotal(t *testing.T) {
	// 10% of 99.95 is 9.995; the half-cent must round the same way in
	// the stored discount amount and in the total, or the persisted
	// numbers stop adding up.
	o := &Order{
		Items:    []OrderItem{{Quantity: 1, UnitPrice: dec("99.95")}},
		Discount: &AppliedDiscount{Code: "WELCOME10", Type: DiscountPercentage, Value: dec("10")},
	}
	o.RecomputeTotals()

	assert.True(t, o.Discount.Amount.Equal(dec("10.00")), "discount = %s", o.Discount.Amount)
	assert.True(t, o.Total.Equal(dec("89.95")), "total = %s", o.Total)

	reconciled := Round2(o.Subtotal.Add(o.ShippingFee).Sub(o.Discount.Amount))
	assert.True(t, o.Total.Equal(reconciled), "total %s != subtotal+shipping-discount %s", o.Total, reconciled)
}

func TestRecomputeTotalsFixedDiscountCappedAtSubtotal(t *testing.T) {
	o := &Order{
		ShippingFee: dec("19.99"),
		Items:       []OrderItem{{Quantity: 1, UnitPrice: dec("30.00")}},
		Discount:    &AppliedDiscount{Code: "BIG", Type: DiscountFixedAmount, Value: dec("100.00")},
	}
	o.RecomputeTotals()

	assert.True(t, o.Discount.Amount.Equal(dec("30.00")), "capped at subtotal")
	// Total never drops below the shipping fee, and never below zero.
	assert.True(t, o.Total.Equal(dec("19.99")), "total = %s", o.Total)
	assert.False(t, o.Total.IsNegative())
}

func TestRecomputeTotalsFreeShipping(t *testing.T) {
	o := testOrder()
	o.Discount = &AppliedDiscount{Code: "SHIPFREE", Type: DiscountFreeShipping}
	o.RecomputeTotals()

	assert.True(t, o.Total.Equal(o.Subtotal), "shipping contributes zero")
	// Original fee retained for display and audit.
	assert.True(t, o.ShippingFee.Equal(dec("19.99")))
}

func TestItemsMutable(t *testing.T) {
	o := testOrder()

	for status, want := range map[OrderStatus]bool{
		OrderStatusCreated:         true,
		OrderStatusAwaitingPayment: true,
		OrderStatusCashPending:     true,
		OrderStatusPaid:            false,
		OrderStatusFulfilled:       false,
		OrderStatusCancelled:       false,
	} {
		o.Status = status
		assert.Equal(t, want, o.ItemsMutable(), "status %s", status)
	}
}

func TestCanTransition(t *testing.T) {
	o := testOrder()

	o.Status = OrderStatusAwaitingPayment
	assert.True(t, o.CanTransition(OrderStatusPaid))
	assert.True(t, o.CanTransition(OrderStatusPaymentFailed))
	assert.False(t, o.CanTransition(OrderStatusCashPending))

	o.Status = OrderStatusPaid
	assert.False(t, o.CanTransition(OrderStatusPaid), "paid is terminal for payment")
	assert.True(t, o.CanTransition(OrderStatusFulfilled))

	o.Status = OrderStatusFulfilled
	assert.False(t, o.CanTransition(OrderStatusCancelled))
}

func TestCODAmount(t *testing.T) {
	o := testOrder()
	o.RecomputeTotals()

	o.Method = PaymentMethodCard
	assert.True(t, o.CODAmount().IsZero())

	o.Method = PaymentMethodCashDelivery
	assert.True(t, o.CODAmount().Equal(o.Total))
}

func TestDiscountEligibility(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Hour)
	code := &DiscountCode{
		Code:        "WELCOME10",
		Type:        DiscountPercentage,
		Value:       dec("10"),
		MinSubtotal: dec("100.00"),
		MaxUses:     5,
		UsageCount:  5,
	}

	err := code.EligibleFor(dec("150.00"), ChannelWeb, now)
	assert.ErrorIs(t, err, ErrDiscountExhausted)

	code.UsageCount = 2
	assert.NoError(t, code.EligibleFor(dec("150.00"), ChannelWeb, now))

	err = code.EligibleFor(dec("50.00"), ChannelWeb, now)
	assert.Equal(t, EINVALID, ErrorCode(err), "below minimum subtotal")

	code.ExpiresAt = &expired
	assert.ErrorIs(t, code.EligibleFor(dec("150.00"), ChannelWeb, now), ErrDiscountExpired)

	code.ExpiresAt = nil
	code.Channels = []Channel{ChannelChat, ChannelBot}
	err = code.EligibleFor(dec("150.00"), ChannelWeb, now)
	assert.Equal(t, EINVALID, ErrorCode(err), "wrong channel")
	assert.NoError(t, code.EligibleFor(dec("150.00"), ChannelBot, now))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WELCOME10", NormalizeCode("  welcome10 "))
}
