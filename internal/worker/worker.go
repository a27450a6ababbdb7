// Package worker consumes post-commit order events and executes the
// fulfillment side effects. Each side effect is an independent task with
// its own recorded outcome: an invoice failure never blocks the
// shipment, and no task failure ever changes the order's status.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/events"
	"github.com/printera/printera/internal/service"
	"github.com/printera/printera/internal/telemetry"
)

// TaskStore records fulfillment task outcomes.
type TaskStore interface {
	CreateFulfillmentTask(ctx context.Context, task *domain.FulfillmentTask) error
	UpdateFulfillmentTask(ctx context.Context, orderID uuid.UUID, kind domain.FulfillmentTaskKind, status domain.FulfillmentTaskStatus, attempts int32, lastError string) error
}

// Config holds worker tuning.
type Config struct {
	// Queue is the NATS queue group; one worker in the group handles
	// each event.
	Queue string

	// MaxAttempts bounds retries per task, retryable errors only.
	MaxAttempts uint64

	// BaseBackoff is the initial retry delay, doubled per attempt.
	BaseBackoff time.Duration

	// TaskTimeout bounds one task execution.
	TaskTimeout time.Duration
}

// Worker runs fulfillment tasks for secured orders.
type Worker struct {
	config      Config
	store       TaskStore
	fulfillment *service.FulfillmentService
	metrics     *telemetry.Metrics
	logger      zerolog.Logger

	subs []*nats.Subscription
}

// New creates a fulfillment worker.
func New(store TaskStore, fulfillment *service.FulfillmentService, metrics *telemetry.Metrics, config Config, logger zerolog.Logger) *Worker {
	if config.Queue == "" {
		config.Queue = "fulfillment"
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 5
	}
	if config.BaseBackoff == 0 {
		config.BaseBackoff = 2 * time.Second
	}
	if config.TaskTimeout == 0 {
		config.TaskTimeout = 2 * time.Minute
	}
	return &Worker{
		config:      config,
		store:       store,
		fulfillment: fulfillment,
		metrics:     metrics,
		logger:      logger.With().Str("component", "worker").Logger(),
	}
}

// Start subscribes to the order subjects. Handlers run on the NATS
// delivery goroutines; Stop drains the subscriptions.
func (w *Worker) Start(ctx context.Context, nc *nats.Conn) error {
	payable, err := events.Subscribe(nc, events.SubjectOrderPayable, w.config.Queue, func(event events.OrderEvent) {
		w.handlePayable(ctx, event)
	})
	if err != nil {
		return err
	}
	w.subs = append(w.subs, payable)

	failed, err := events.Subscribe(nc, events.SubjectOrderPaymentFailed, w.config.Queue, func(event events.OrderEvent) {
		w.handlePaymentFailed(ctx, event)
	})
	if err != nil {
		return err
	}
	w.subs = append(w.subs, failed)

	w.logger.Info().Str("queue", w.config.Queue).Msg("worker subscribed")
	return nil
}

// Stop drains the subscriptions so in-flight handlers finish.
func (w *Worker) Stop() {
	for _, sub := range w.subs {
		_ = sub.Drain()
	}
}

// handlePayable runs the full fulfillment fan-out for a secured order.
func (w *Worker) handlePayable(ctx context.Context, event events.OrderEvent) {
	w.logger.Info().Str("number", event.Number).Msg("processing payable order")

	w.runTask(ctx, event, domain.TaskIssueInvoice, func(ctx context.Context) error {
		_, err := w.fulfillment.IssueInvoice(ctx, event.OrderID)
		return err
	})
	w.runTask(ctx, event, domain.TaskIssueShipment, func(ctx context.Context) error {
		_, err := w.fulfillment.IssueShipment(ctx, event.OrderID)
		if domain.IsCode(err, domain.ECONFLICT) {
			// An active AWB already exists; replacing it is an explicit
			// admin action, not a retry path.
			return nil
		}
		return err
	})
	w.runTask(ctx, event, domain.TaskNotifyCustomer, func(ctx context.Context) error {
		return w.fulfillment.NotifyCustomer(ctx, event.OrderID)
	})
	w.runTask(ctx, event, domain.TaskNotifyOps, func(ctx context.Context) error {
		return w.fulfillment.NotifyOps(ctx, event.OrderID)
	})
}

// handlePaymentFailed tells the customer the card session died.
func (w *Worker) handlePaymentFailed(ctx context.Context, event events.OrderEvent) {
	w.runTask(ctx, event, domain.TaskNotifyCustomer, func(ctx context.Context) error {
		return w.fulfillment.NotifyPaymentFailed(ctx, event.OrderID)
	})
}

// runTask executes one side effect with bounded backoff. Only retryable
// (EUNAVAILABLE) errors are retried; terminal errors fail the task on
// the first attempt. The task row records the outcome either way.
func (w *Worker) runTask(ctx context.Context, event events.OrderEvent, kind domain.FulfillmentTaskKind, fn func(ctx context.Context) error) {
	task := &domain.FulfillmentTask{
		ID:      uuid.New(),
		OrderID: event.OrderID,
		Kind:    kind,
		Status:  domain.TaskPending,
	}
	if err := w.store.CreateFulfillmentTask(ctx, task); err != nil {
		w.logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to record task")
	}

	var attempts int32
	backoff := retry.WithMaxRetries(w.config.MaxAttempts-1, retry.NewExponential(w.config.BaseBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		taskCtx, cancel := context.WithTimeout(ctx, w.config.TaskTimeout)
		defer cancel()

		if err := fn(taskCtx); err != nil {
			if domain.Retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})

	if err != nil {
		w.metrics.TaskFailed(string(kind))
		w.logger.Error().Err(err).Str("number", event.Number).Str("kind", string(kind)).
			Int32("attempts", attempts).Msg("fulfillment task failed")
		if uerr := w.store.UpdateFulfillmentTask(ctx, event.OrderID, kind, domain.TaskFailed, attempts, err.Error()); uerr != nil {
			w.logger.Error().Err(uerr).Msg("failed to record task failure")
		}
		w.fulfillment.NotifyTaskFailed(ctx, event.Number, string(kind), err.Error())
		return
	}

	w.metrics.TaskCompleted(string(kind))
	if uerr := w.store.UpdateFulfillmentTask(ctx, event.OrderID, kind, domain.TaskDone, attempts, ""); uerr != nil {
		w.logger.Error().Err(uerr).Msg("failed to record task completion")
	}
}

// RunOrder executes the payable fan-out synchronously for one order.
// Admin escape hatch for orders whose event was lost.
func (w *Worker) RunOrder(ctx context.Context, orderID uuid.UUID, number string) {
	w.handlePayable(ctx, events.OrderEvent{
		OrderID:    orderID,
		Number:     number,
		OccurredAt: time.Now(),
	})
}
