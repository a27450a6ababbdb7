package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/printera/printera/internal/domain"
)

// NextOrderNumber reserves the next human-facing order number. The
// sequence guarantees uniqueness under concurrent assembly.
func (s *Store) NextOrderNumber(ctx context.Context) (string, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n)
	if err != nil {
		return "", domain.Internal(err, "postgres.nextOrderNumber", "failed to reserve order number")
	}
	return fmt.Sprintf("CMD-%06d", n), nil
}

// CreateOrder persists a fully assembled order with its items in one
// transaction.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	const op = "postgres.createOrder"

	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if err := insertOrder(ctx, tx, order); err != nil {
			return domain.Internal(err, op, "failed to insert order")
		}
		if err := replaceItems(ctx, tx, order); err != nil {
			return domain.Internal(err, op, "failed to insert order items")
		}
		return nil
	})
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return err
	}
	billing, err := json.Marshal(o.Billing)
	if err != nil {
		return err
	}

	var (
		discountCodeID *uuid.UUID
		discountCode   *string
		discountType   *string
		discountValue  *string
		discountAmount *string
	)
	if o.Discount != nil {
		discountCodeID = &o.Discount.CodeID
		code := o.Discount.Code
		typ := string(o.Discount.Type)
		val := o.Discount.Value.String()
		amt := o.Discount.Amount.String()
		discountCode, discountType, discountValue, discountAmount = &code, &typ, &val, &amt
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, number, status, channel, currency, customer_id,
			shipping, billing, payment_method,
			subtotal, shipping_fee, total,
			discount_code_id, discount_code, discount_type, discount_value, discount_amount,
			notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now(),now())`,
		o.ID, o.Number, o.Status, o.Channel, o.Currency, o.CustomerID,
		shipping, billing, o.Method,
		o.Subtotal.String(), o.ShippingFee.String(), o.Total.String(),
		discountCodeID, discountCode, discountType, discountValue, discountAmount,
		o.Notes,
	)
	return err
}

func updateOrder(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return err
	}
	billing, err := json.Marshal(o.Billing)
	if err != nil {
		return err
	}

	var (
		discountCodeID *uuid.UUID
		discountCode   *string
		discountType   *string
		discountValue  *string
		discountAmount *string
	)
	if o.Discount != nil {
		discountCodeID = &o.Discount.CodeID
		code := o.Discount.Code
		typ := string(o.Discount.Type)
		val := o.Discount.Value.String()
		amt := o.Discount.Amount.String()
		discountCode, discountType, discountValue, discountAmount = &code, &typ, &val, &amt
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders SET
			status = $2, shipping = $3, billing = $4, payment_method = $5,
			subtotal = $6, shipping_fee = $7, total = $8,
			discount_code_id = $9, discount_code = $10, discount_type = $11,
			discount_value = $12, discount_amount = $13,
			notes = $14, updated_at = now()
		WHERE id = $1`,
		o.ID, o.Status, shipping, billing, o.Method,
		o.Subtotal.String(), o.ShippingFee.String(), o.Total.String(),
		discountCodeID, discountCode, discountType, discountValue, discountAmount,
		o.Notes,
	)
	return err
}

// replaceItems rewrites the order's item rows to match the aggregate.
func replaceItems(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	for i := range o.Items {
		item := &o.Items[i]
		config, err := json.Marshal(item.Config)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, product_name, quantity,
				unit_price, line_total, config, artwork_ref, position, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())`,
			item.ID, o.ID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice.String(), item.Total.String(), config, item.ArtworkRef, i,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `
	id, number, status, channel, currency, customer_id,
	shipping, billing, payment_method,
	subtotal::text, shipping_fee::text, total::text,
	discount_code_id, discount_code, discount_type, discount_value::text, discount_amount::text,
	notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o              domain.Order
		shipping       []byte
		billing        []byte
		subtotal       string
		shippingFee    string
		total          string
		discountCodeID *uuid.UUID
		discountCode   *string
		discountType   *string
		discountValue  *string
		discountAmount *string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.Status, &o.Channel, &o.Currency, &o.CustomerID,
		&shipping, &billing, &o.Method,
		&subtotal, &shippingFee, &total,
		&discountCodeID, &discountCode, &discountType, &discountValue, &discountAmount,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(billing, &o.Billing); err != nil {
		return nil, err
	}
	o.Subtotal = scanDecimal(subtotal)
	o.ShippingFee = scanDecimal(shippingFee)
	o.Total = scanDecimal(total)

	if discountCodeID != nil && discountCode != nil {
		o.Discount = &domain.AppliedDiscount{
			CodeID: *discountCodeID,
			Code:   *discountCode,
			Type:   domain.DiscountType(*discountType),
			Value:  scanDecimal(*discountValue),
			Amount: scanDecimal(*discountAmount),
		}
	}
	return &o, nil
}

func loadItems(ctx context.Context, q querier, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity,
		       unit_price::text, line_total::text, config, artwork_ref, created_at
		FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item      domain.OrderItem
			unitPrice string
			lineTotal string
			config    []byte
		)
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity,
			&unitPrice, &lineTotal, &config, &item.ArtworkRef, &item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		item.UnitPrice = scanDecimal(unitPrice)
		item.Total = scanDecimal(lineTotal)
		if err := json.Unmarshal(config, &item.Config); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// GetOrder loads an order with its items.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.getOrder"

	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}
	order.Items, err = loadItems(ctx, s.pool, order.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load order items")
	}
	return order, nil
}

// GetOrderByNumber loads an order by its human-facing number.
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	const op = "postgres.getOrderByNumber"

	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}
	order.Items, err = loadItems(ctx, s.pool, order.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load order items")
	}
	return order, nil
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Status  domain.OrderStatus
	Channel domain.Channel
	Limit   int32
	Offset  int32
}

// ListOrders returns orders newest first, without items.
func (s *Store) ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	const op = "postgres.listOrders"

	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR channel = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		string(filter.Status), string(filter.Channel), filter.Limit, filter.Offset)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan order")
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// MutateOrder loads the order under a row lock, applies fn and persists
// the result. All item, discount and status mutations go through here so
// concurrent edits to the same order serialize instead of clobbering
// each other.
func (s *Store) MutateOrder(ctx context.Context, id uuid.UUID, fn func(o *domain.Order) error) (*domain.Order, error) {
	const op = "postgres.mutateOrder"

	var mutated *domain.Order
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrOrderNotFound
			}
			return domain.Internal(err, op, "failed to lock order")
		}
		order.Items, err = loadItems(ctx, tx, order.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to load order items")
		}

		if err := fn(order); err != nil {
			return err
		}

		if err := updateOrder(ctx, tx, order); err != nil {
			return domain.Internal(err, op, "failed to update order")
		}
		if err := replaceItems(ctx, tx, order); err != nil {
			return domain.Internal(err, op, "failed to update order items")
		}
		mutated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

// MarkOrderPaid performs the guarded awaiting_payment → paid transition.
// The WHERE clause makes the transition first-wins under concurrent
// webhook delivery; a second attempt reports the order as already paid.
func (s *Store) MarkOrderPaid(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.markOrderPaid"

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, domain.OrderStatusPaid, domain.OrderStatusAwaitingPayment)
	if err != nil {
		return domain.Internal(err, op, "failed to mark order paid")
	}
	if tag.RowsAffected() == 0 {
		var status domain.OrderStatus
		err := s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return domain.Internal(err, op, "failed to check order status")
		}
		if status == domain.OrderStatusPaid || status == domain.OrderStatusFulfilled {
			return domain.ErrOrderAlreadyPaid
		}
		return domain.ErrInvalidStatusChange
	}
	return nil
}
