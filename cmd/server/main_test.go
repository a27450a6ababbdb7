package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printera/printera/internal"
	"github.com/printera/printera/internal/courier"
	"github.com/printera/printera/internal/invoicing"
	"github.com/printera/printera/internal/payment"
)

func TestBuildProvidersDevFallsBackToMocks(t *testing.T) {
	cfg := &internal.Config{Env: "dev"}

	pay, inv, car, err := buildProviders(cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.IsType(t, &payment.MockProvider{}, pay)
	assert.IsType(t, &invoicing.MockProvider{}, inv)
	assert.IsType(t, &courier.MockProvider{}, car)
}

func TestBuildProvidersProdRequiresCredentials(t *testing.T) {
	cfg := &internal.Config{Env: "prod"}

	_, _, _, err := buildProviders(cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestBuildProvidersUsesRealProvidersWhenConfigured(t *testing.T) {
	cfg := &internal.Config{
		Env:       "dev",
		Stripe:    payment.StripeConfig{APIKey: "sk_test_1", WebhookSecret: "whsec_1"},
		Invoicing: invoicing.SmartBillConfig{Username: "office@printera.ro", Token: "tok", CompanyTaxID: "RO123456", Series: "PRN"},
		Courier:   courier.FanCourierConfig{ClientID: "7000000", Username: "printera", Password: "secret"},
	}

	pay, inv, car, err := buildProviders(cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.IsType(t, &payment.StripeProvider{}, pay)
	assert.IsType(t, &invoicing.SmartBillProvider{}, inv)
	assert.IsType(t, &courier.FanCourierProvider{}, car)
}
