package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/printera/printera/internal/domain"
)

// ResolveCustomer finds or creates the customer an order belongs to.
// Email is the primary identity; phone is the fallback for channels that
// collect no email. Matching an existing record backfills whichever of
// name/email/phone the record is missing, never overwriting a value
// already present.
func (s *Store) ResolveCustomer(ctx context.Context, name, email, phone string) (*domain.Customer, error) {
	const op = "postgres.resolveCustomer"

	var c *domain.Customer
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		if email != "" {
			c, err = findCustomer(ctx, tx, `SELECT id, name, email, phone, created_at, updated_at FROM customers WHERE lower(email) = lower($1) FOR UPDATE`, email)
			if err != nil {
				return err
			}
		}
		if c == nil && phone != "" {
			c, err = findCustomer(ctx, tx, `SELECT id, name, email, phone, created_at, updated_at FROM customers WHERE phone = $1 FOR UPDATE`, phone)
			if err != nil {
				return err
			}
		}

		if c == nil {
			c = &domain.Customer{ID: uuid.New(), Name: name, Email: email, Phone: phone}
			_, err := tx.Exec(ctx, `
				INSERT INTO customers (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), now(), now())`,
				c.ID, c.Name, c.Email, c.Phone)
			if err != nil {
				return domain.Internal(err, op, "failed to create customer")
			}
			return nil
		}

		changed := false
		if c.Name == "" && name != "" {
			c.Name = name
			changed = true
		}
		if c.Email == "" && email != "" {
			c.Email = email
			changed = true
		}
		if c.Phone == "" && phone != "" {
			c.Phone = phone
			changed = true
		}
		if changed {
			_, err := tx.Exec(ctx, `
				UPDATE customers SET name = $2, email = NULLIF($3, ''), phone = NULLIF($4, ''), updated_at = now()
				WHERE id = $1`,
				c.ID, c.Name, c.Email, c.Phone)
			if err != nil {
				return domain.Internal(err, op, "failed to backfill customer")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func findCustomer(ctx context.Context, tx pgx.Tx, query string, arg any) (*domain.Customer, error) {
	var (
		c     domain.Customer
		email *string
		phone *string
	)
	err := tx.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &email, &phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal(err, "postgres.findCustomer", "failed to look up customer")
	}
	if email != nil {
		c.Email = *email
	}
	if phone != nil {
		c.Phone = *phone
	}
	return &c, nil
}

// GetCustomer loads a customer by ID.
func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var (
		c     domain.Customer
		email *string
		phone *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, created_at, updated_at FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &email, &phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "postgres.getCustomer", "failed to load customer")
	}
	if email != nil {
		c.Email = *email
	}
	if phone != nil {
		c.Phone = *phone
	}
	return &c, nil
}
