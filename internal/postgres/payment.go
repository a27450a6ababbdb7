package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/printera/printera/internal/domain"
)

// CreatePayment records the card payment session created for an order.
func (s *Store) CreatePayment(ctx context.Context, p *domain.Payment) error {
	const op = "postgres.createPayment"

	_, err := s.pool.Exec(ctx, `
		INSERT INTO payments (id, order_id, session_id, status, amount, currency, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())`,
		p.ID, p.OrderID, p.SessionID, p.Status, p.Amount.String(), p.Currency)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "payment session already recorded for this order")
		}
		return domain.Internal(err, op, "failed to record payment")
	}
	return nil
}

// GetPaymentBySession loads a payment by provider session ID.
func (s *Store) GetPaymentBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	const op = "postgres.getPaymentBySession"

	var (
		p      domain.Payment
		amount string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, session_id, status, amount::text, currency, created_at, updated_at
		FROM payments WHERE session_id = $1`, sessionID).
		Scan(&p.ID, &p.OrderID, &p.SessionID, &p.Status, &amount, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound(op, "payment", sessionID)
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load payment")
	}
	p.Amount = scanDecimal(amount)
	return &p, nil
}

// SettlePayment moves a payment to a terminal state. First-wins: once
// terminal, further settlement attempts report a conflict.
func (s *Store) SettlePayment(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) error {
	const op = "postgres.settlePayment"

	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET status = $2, updated_at = now()
		WHERE order_id = $1 AND status = $3`,
		orderID, status, domain.PaymentStatusPending)
	if err != nil {
		return domain.Internal(err, op, "failed to settle payment")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventAlreadyHandled
	}
	return nil
}
