package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/printera/printera/internal/domain"
)

// =============================================================================
// Webhook event dedup
// =============================================================================

// RecordWebhookEvent inserts a provider event ID into the handled set.
// Returns ErrEventAlreadyHandled when the event was seen before, which is
// how replayed webhook deliveries become no-ops.
func (s *Store) RecordWebhookEvent(ctx context.Context, provider, eventID string) error {
	const op = "postgres.recordWebhookEvent"

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events (provider, event_id, received_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider, event_id) DO NOTHING`,
		provider, eventID)
	if err != nil {
		return domain.Internal(err, op, "failed to record webhook event")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventAlreadyHandled
	}
	return nil
}

// DeleteWebhookEvent removes a recorded event ID. Called when processing
// failed after the record was inserted, so the provider's redelivery is
// handled as a fresh event instead of a duplicate.
func (s *Store) DeleteWebhookEvent(ctx context.Context, provider, eventID string) error {
	const op = "postgres.deleteWebhookEvent"

	_, err := s.pool.Exec(ctx, `
		DELETE FROM webhook_events
		WHERE provider = $1 AND event_id = $2`,
		provider, eventID)
	if err != nil {
		return domain.Internal(err, op, "failed to delete webhook event")
	}
	return nil
}

// =============================================================================
// Invoices
// =============================================================================

// SaveInvoice stores the fiscal document reference for an order. The
// unique order_id constraint enforces at-most-one invoice per order.
func (s *Store) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	const op = "postgres.saveInvoice"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO invoices (id, order_id, series, number, document_link, issued_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		inv.ID, inv.OrderID, inv.Series, inv.Number, inv.DocumentLink, inv.IssuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "order already has an invoice")
		}
		return domain.Internal(err, op, "failed to save invoice")
	}
	return nil
}

// GetInvoiceByOrder loads the invoice for an order, if issued.
func (s *Store) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error) {
	const op = "postgres.getInvoiceByOrder"

	var inv domain.Invoice
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, series, number, document_link, issued_at
		FROM invoices WHERE order_id = $1`, orderID).
		Scan(&inv.ID, &inv.OrderID, &inv.Series, &inv.Number, &inv.DocumentLink, &inv.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound(op, "invoice", orderID.String())
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load invoice")
	}
	return &inv, nil
}

// =============================================================================
// Shipments
// =============================================================================

// SaveShipment stores a new shipment. The partial unique index on
// (order_id) WHERE superseded_at IS NULL enforces at most one active
// shipment per order.
func (s *Store) SaveShipment(ctx context.Context, sh *domain.Shipment) error {
	const op = "postgres.saveShipment"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO shipments (id, order_id, carrier, awb, label_ref, status, last_event, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())`,
		sh.ID, sh.OrderID, sh.Carrier, sh.AWB, sh.LabelRef, sh.Status, sh.LastEvent)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderHasShipment
		}
		return domain.Internal(err, op, "failed to save shipment")
	}
	return nil
}

func scanShipment(row pgx.Row) (*domain.Shipment, error) {
	var sh domain.Shipment
	err := row.Scan(&sh.ID, &sh.OrderID, &sh.Carrier, &sh.AWB, &sh.LabelRef,
		&sh.Status, &sh.LastEvent, &sh.CreatedAt, &sh.SupersededAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

const shipmentColumns = `id, order_id, carrier, awb, label_ref, status, last_event, created_at, superseded_at`

// GetShipmentByAWB loads a shipment by its AWB number.
func (s *Store) GetShipmentByAWB(ctx context.Context, awb string) (*domain.Shipment, error) {
	const op = "postgres.getShipmentByAWB"

	sh, err := scanShipment(s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE awb = $1`, awb))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, domain.Internal(err, op, "failed to load shipment")
	}
	return sh, nil
}

// GetActiveShipmentByOrder loads the non-superseded shipment for an order.
func (s *Store) GetActiveShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	const op = "postgres.getActiveShipmentByOrder"

	sh, err := scanShipment(s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE order_id = $1 AND superseded_at IS NULL`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, domain.Internal(err, op, "failed to load shipment")
	}
	return sh, nil
}

// SupersedeShipment retires the active shipment of an order so a
// replacement AWB can be issued.
func (s *Store) SupersedeShipment(ctx context.Context, orderID uuid.UUID) error {
	const op = "postgres.supersedeShipment"

	tag, err := s.pool.Exec(ctx, `
		UPDATE shipments SET superseded_at = now()
		WHERE order_id = $1 AND superseded_at IS NULL`, orderID)
	if err != nil {
		return domain.Internal(err, op, "failed to supersede shipment")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

// UpdateShipmentTracking refreshes carrier-side state for a shipment.
func (s *Store) UpdateShipmentTracking(ctx context.Context, awb, status, lastEvent string) error {
	const op = "postgres.updateShipmentTracking"

	tag, err := s.pool.Exec(ctx, `
		UPDATE shipments SET status = $2, last_event = $3 WHERE awb = $1`,
		awb, status, lastEvent)
	if err != nil {
		return domain.Internal(err, op, "failed to update tracking")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

// ListUndeliveredShipments returns active shipments not yet delivered or
// returned, for the tracking poller.
func (s *Store) ListUndeliveredShipments(ctx context.Context, limit int32) ([]domain.Shipment, error) {
	const op = "postgres.listUndeliveredShipments"

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+shipmentColumns+` FROM shipments
		WHERE superseded_at IS NULL AND status NOT IN ('delivered', 'returned')
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list shipments")
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan shipment")
		}
		shipments = append(shipments, *sh)
	}
	return shipments, rows.Err()
}

// =============================================================================
// Fulfillment tasks
// =============================================================================

// CreateFulfillmentTask records a pending side effect for an order.
func (s *Store) CreateFulfillmentTask(ctx context.Context, task *domain.FulfillmentTask) error {
	const op = "postgres.createFulfillmentTask"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO fulfillment_tasks (id, order_id, kind, status, attempts, last_error, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
		ON CONFLICT (order_id, kind) DO NOTHING`,
		task.ID, task.OrderID, task.Kind, task.Status, task.Attempts, task.LastError)
	if err != nil {
		return domain.Internal(err, op, "failed to create fulfillment task")
	}
	return nil
}

// UpdateFulfillmentTask stores the outcome of a task attempt.
func (s *Store) UpdateFulfillmentTask(ctx context.Context, orderID uuid.UUID, kind domain.FulfillmentTaskKind, status domain.FulfillmentTaskStatus, attempts int32, lastError string) error {
	const op = "postgres.updateFulfillmentTask"

	_, err := s.pool.Exec(ctx, `
		UPDATE fulfillment_tasks
		SET status = $3, attempts = $4, last_error = $5, updated_at = now()
		WHERE order_id = $1 AND kind = $2`,
		orderID, kind, status, attempts, lastError)
	if err != nil {
		return domain.Internal(err, op, "failed to update fulfillment task")
	}
	return nil
}

// ListFulfillmentTasks returns the tasks for an order.
func (s *Store) ListFulfillmentTasks(ctx context.Context, orderID uuid.UUID) ([]domain.FulfillmentTask, error) {
	const op = "postgres.listFulfillmentTasks"

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, kind, status, attempts, last_error, created_at, updated_at
		FROM fulfillment_tasks WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list fulfillment tasks")
	}
	defer rows.Close()

	var tasks []domain.FulfillmentTask
	for rows.Next() {
		var t domain.FulfillmentTask
		err := rows.Scan(&t.ID, &t.OrderID, &t.Kind, &t.Status, &t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan fulfillment task")
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListFailedFulfillmentTasks returns failed tasks across orders, for the
// admin retry surface.
func (s *Store) ListFailedFulfillmentTasks(ctx context.Context, limit int32) ([]domain.FulfillmentTask, error) {
	const op = "postgres.listFailedFulfillmentTasks"

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, kind, status, attempts, last_error, created_at, updated_at
		FROM fulfillment_tasks WHERE status = 'failed' ORDER BY updated_at LIMIT $1`, limit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list failed tasks")
	}
	defer rows.Close()

	var tasks []domain.FulfillmentTask
	for rows.Next() {
		var t domain.FulfillmentTask
		err := rows.Scan(&t.ID, &t.OrderID, &t.Kind, &t.Status, &t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan fulfillment task")
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
