package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printera/printera/internal/domain"
)

func TestValidateUnknownCode(t *testing.T) {
	svc := NewDiscountService(newMockStore(), zerolog.Nop())

	result, err := svc.Validate(context.Background(), "NOPE", decimal.NewFromInt(100), domain.ChannelWeb)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "code not found", result.Reason)
}

func TestValidateIsRepeatable(t *testing.T) {
	store := newMockStore()
	store.Discounts["VARA10"] = &domain.DiscountCode{
		Code:  "VARA10",
		Type:  domain.DiscountPercentage,
		Value: decimal.NewFromInt(10),
	}
	svc := NewDiscountService(store, zerolog.Nop())

	for i := 0; i < 3; i++ {
		result, err := svc.Validate(context.Background(), "vara10", decimal.NewFromInt(200), domain.ChannelWeb)
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, "20.00", result.Discount.StringFixed(2))
	}
	// Preview never reserves usage.
	assert.Equal(t, int32(0), store.Discounts["VARA10"].UsageCount)
}

func TestValidateChannelRestriction(t *testing.T) {
	store := newMockStore()
	store.Discounts["WEBONLY"] = &domain.DiscountCode{
		Code:     "WEBONLY",
		Type:     domain.DiscountFreeShipping,
		Channels: []domain.Channel{domain.ChannelWeb},
	}
	svc := NewDiscountService(store, zerolog.Nop())

	result, err := svc.Validate(context.Background(), "WEBONLY", decimal.NewFromInt(100), domain.ChannelBot)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "not valid for bot")
}

func TestApplyReplacesExistingCode(t *testing.T) {
	store := newMockStore()
	store.Discounts["FIRST"] = &domain.DiscountCode{
		Code: "FIRST", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(5), UsageCount: 1,
	}
	store.Discounts["SECOND"] = &domain.DiscountCode{
		Code: "SECOND", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10),
	}
	order := seedOrder(store, domain.PaymentMethodCard)
	order.Discount = store.Discounts["FIRST"].Descriptor()
	order.RecomputeTotals()

	svc := NewDiscountService(store, zerolog.Nop())
	updated, err := svc.Apply(context.Background(), order.ID, "second")
	require.NoError(t, err)

	require.NotNil(t, updated.Discount)
	assert.Equal(t, "SECOND", updated.Discount.Code)
	assert.Equal(t, int32(1), store.Discounts["SECOND"].UsageCount)
	// The replaced code's reservation is given back.
	assert.Contains(t, store.Released, "FIRST")
	assert.Equal(t, int32(0), store.Discounts["FIRST"].UsageCount)
}

func TestApplyExhaustedCodeConflicts(t *testing.T) {
	store := newMockStore()
	store.Discounts["GONE"] = &domain.DiscountCode{
		Code: "GONE", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10),
		MaxUses: 1, UsageCount: 1,
	}
	order := seedOrder(store, domain.PaymentMethodCard)

	svc := NewDiscountService(store, zerolog.Nop())
	_, err := svc.Apply(context.Background(), order.ID, "GONE")
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Nil(t, store.Orders[order.ID].Discount)
}

func TestApplyLockedOrderRejected(t *testing.T) {
	store := newMockStore()
	store.Discounts["VARA10"] = &domain.DiscountCode{
		Code: "VARA10", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10),
	}
	order := seedOrder(store, domain.PaymentMethodCard)
	order.Status = domain.OrderStatusPaid

	svc := NewDiscountService(store, zerolog.Nop())
	_, err := svc.Apply(context.Background(), order.ID, "VARA10")
	assert.ErrorIs(t, err, domain.ErrOrderNotMutable)
	assert.Equal(t, int32(0), store.Discounts["VARA10"].UsageCount)
}

func TestRemoveReleasesUsage(t *testing.T) {
	store := newMockStore()
	store.Discounts["VARA10"] = &domain.DiscountCode{
		Code: "VARA10", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10), UsageCount: 1,
	}
	order := seedOrder(store, domain.PaymentMethodCard)
	order.Discount = store.Discounts["VARA10"].Descriptor()
	order.RecomputeTotals()

	svc := NewDiscountService(store, zerolog.Nop())
	updated, err := svc.Remove(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Nil(t, updated.Discount)
	assert.Equal(t, "177.99", updated.Total.StringFixed(2))
	assert.Equal(t, int32(0), store.Discounts["VARA10"].UsageCount)
}

func TestCreateValidatesValueRange(t *testing.T) {
	svc := NewDiscountService(newMockStore(), zerolog.Nop())

	err := svc.Create(context.Background(), &domain.DiscountCode{
		Code: "TOOBIG", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(150),
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	err = svc.Create(context.Background(), &domain.DiscountCode{
		Code: "NEG", Type: domain.DiscountFixedAmount, Value: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestCreateNormalizesCode(t *testing.T) {
	store := newMockStore()
	svc := NewDiscountService(store, zerolog.Nop())

	expiry := time.Now().Add(30 * 24 * time.Hour)
	err := svc.Create(context.Background(), &domain.DiscountCode{
		Code: "  vara10 ", Type: domain.DiscountFreeShipping, ExpiresAt: &expiry,
	})
	require.NoError(t, err)
	assert.Contains(t, store.Discounts, "VARA10")
}
