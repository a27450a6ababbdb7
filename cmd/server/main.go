// Command server runs the Printera API: pricing, order intake, payment
// webhooks, fulfillment worker and the shipment tracking poller, all in
// one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/printera/printera/internal"
	"github.com/printera/printera/internal/courier"
	"github.com/printera/printera/internal/events"
	"github.com/printera/printera/internal/handler"
	"github.com/printera/printera/internal/invoicing"
	"github.com/printera/printera/internal/jobs"
	"github.com/printera/printera/internal/middleware"
	"github.com/printera/printera/internal/notify"
	"github.com/printera/printera/internal/payment"
	"github.com/printera/printera/internal/postgres"
	"github.com/printera/printera/internal/service"
	"github.com/printera/printera/internal/session"
	"github.com/printera/printera/internal/telemetry"
	"github.com/printera/printera/internal/worker"
)

// buildProviders constructs the payment, invoicing and courier
// collaborators. Outside prod, a collaborator with no credentials falls
// back to its in-memory mock so the stack runs locally without real
// accounts; prod config validation still rejects missing Stripe keys.
func buildProviders(cfg *internal.Config, logger zerolog.Logger) (payment.Provider, invoicing.Provider, courier.Provider, error) {
	var (
		pay payment.Provider
		inv invoicing.Provider
		car courier.Provider
		err error
	)
	if cfg.Env != "prod" && cfg.Stripe.APIKey == "" {
		logger.Warn().Msg("stripe credentials missing, using mock payment provider")
		pay = payment.NewMockProvider()
	} else if pay, err = payment.NewStripeProvider(cfg.Stripe, logger); err != nil {
		return nil, nil, nil, err
	}
	if cfg.Env != "prod" && (cfg.Invoicing.Username == "" || cfg.Invoicing.Token == "") {
		logger.Warn().Msg("smartbill credentials missing, using mock invoicing provider")
		inv = invoicing.NewMockProvider()
	} else if inv, err = invoicing.NewSmartBillProvider(cfg.Invoicing, logger); err != nil {
		return nil, nil, nil, err
	}
	if cfg.Env != "prod" && cfg.Courier.ClientID == "" {
		logger.Warn().Msg("fan courier credentials missing, using mock courier provider")
		car = courier.NewMockProvider()
	} else if car, err = courier.NewFanCourierProvider(cfg.Courier, logger); err != nil {
		return nil, nil, nil, err
	}
	return pay, inv, car, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return err
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Msg("starting printera")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := internal.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}

	store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	sessions := session.NewStore(redisClient, session.DefaultTTL)

	nc, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		return err
	}
	defer nc.Drain()
	publisher := events.NewPublisher(nc, logger)

	stripeProvider, invoicer, carrier, err := buildProviders(cfg, logger)
	if err != nil {
		return err
	}
	sender, err := notify.NewSMTPSender(cfg.SMTP, logger)
	if err != nil {
		return err
	}
	dispatcher, err := notify.NewDispatcher(sender, cfg.SMTP.From, cfg.SMTP.FromName, cfg.OpsEmail, logger)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics("printera")
	httpMetrics := middleware.NewHTTPMetrics("printera")

	assembler := service.NewAssembler(store, service.AssemblerConfig{
		Currency:    cfg.Pricing.Currency,
		ShippingFee: cfg.Pricing.ShippingFee,
	}, logger)
	orders := service.NewOrderService(store, assembler, logger)
	discounts := service.NewDiscountService(store, logger)
	checkout := service.NewCheckoutService(store, stripeProvider, publisher, assembler, metrics, service.CheckoutConfig{
		SuccessURL: cfg.Checkout.SuccessURL,
		CancelURL:  cfg.Checkout.CancelURL,
	}, logger)
	fulfillment := service.NewFulfillmentService(store, invoicer, carrier, dispatcher, metrics, cfg.BaseURL, logger)

	w := worker.New(store, fulfillment, metrics, worker.Config{
		Queue:       cfg.Worker.Queue,
		MaxAttempts: cfg.Worker.MaxAttempts,
		BaseBackoff: cfg.Worker.BaseBackoff,
	}, logger)
	if err := w.Start(ctx, nc); err != nil {
		return err
	}
	defer w.Stop()

	poller := jobs.NewTrackingPoller(fulfillment, cfg.Tracking.Interval, cfg.Tracking.BatchSize, logger)
	go poller.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(httpMetrics.Middleware())

	h := handler.New(orders, assembler, checkout, discounts, fulfillment, w, sessions, stripeProvider, metrics, handler.Config{
		AdminAPIKey:         cfg.AdminAPIKey,
		StripeWebhookSecret: cfg.Stripe.WebhookSecret,
	}, logger)
	h.Register(e)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()
	logger.Info().Int("port", cfg.Port).Msg("listening")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	return nil
}
