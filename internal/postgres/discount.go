package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/printera/printera/internal/domain"
)

const discountColumns = `
	id, code, type, value::text, min_subtotal::text, channels,
	expires_at, max_uses, usage_count, created_at`

func scanDiscount(row pgx.Row) (*domain.DiscountCode, error) {
	var (
		c           domain.DiscountCode
		value       string
		minSubtotal string
		channels    []string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Type, &value, &minSubtotal, &channels,
		&c.ExpiresAt, &c.MaxUses, &c.UsageCount, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Value = scanDecimal(value)
	c.MinSubtotal = scanDecimal(minSubtotal)
	for _, ch := range channels {
		c.Channels = append(c.Channels, domain.Channel(ch))
	}
	return &c, nil
}

// GetDiscountCode loads a code for read-only validation. No lock is
// taken; validation never reserves usage.
func (s *Store) GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	const op = "postgres.getDiscountCode"

	c, err := scanDiscount(s.pool.QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discount_codes WHERE code = $1`,
		domain.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDiscountNotFound
		}
		return nil, domain.Internal(err, op, "failed to load discount code")
	}
	return c, nil
}

// ApplyDiscountUsage re-checks the code under a row lock and increments
// its usage count atomically. Two concurrent applies of a one-use-left
// code serialize here: the second sees the incremented count and fails
// eligibility inside check.
func (s *Store) ApplyDiscountUsage(ctx context.Context, code string, check func(c *domain.DiscountCode) error) (*domain.DiscountCode, error) {
	const op = "postgres.applyDiscountUsage"

	var applied *domain.DiscountCode
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		c, err := scanDiscount(tx.QueryRow(ctx,
			`SELECT `+discountColumns+` FROM discount_codes WHERE code = $1 FOR UPDATE`,
			domain.NormalizeCode(code)))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrDiscountNotFound
			}
			return domain.Internal(err, op, "failed to lock discount code")
		}

		if err := check(c); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE discount_codes SET usage_count = usage_count + 1 WHERE id = $1`, c.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to increment usage")
		}
		c.UsageCount++
		applied = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// ReleaseDiscountUsage gives back one usage after a replaced or removed
// discount, floor zero.
func (s *Store) ReleaseDiscountUsage(ctx context.Context, code string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE discount_codes SET usage_count = GREATEST(usage_count - 1, 0) WHERE code = $1`,
		domain.NormalizeCode(code))
	if err != nil {
		return domain.Internal(err, "postgres.releaseDiscountUsage", "failed to release usage")
	}
	return nil
}

// CreateDiscountCode inserts a new code.
func (s *Store) CreateDiscountCode(ctx context.Context, c *domain.DiscountCode) error {
	const op = "postgres.createDiscountCode"

	channels := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		channels[i] = string(ch)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO discount_codes (id, code, type, value, min_subtotal, channels, expires_at, max_uses, usage_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,now())`,
		c.ID, domain.NormalizeCode(c.Code), c.Type, c.Value.String(), c.MinSubtotal.String(),
		channels, c.ExpiresAt, c.MaxUses)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("postgres.createDiscountCode", "discount code already exists")
		}
		return domain.Internal(err, op, "failed to create discount code")
	}
	return nil
}

// ListDiscountCodes returns all codes newest first.
func (s *Store) ListDiscountCodes(ctx context.Context) ([]domain.DiscountCode, error) {
	const op = "postgres.listDiscountCodes"

	rows, err := s.pool.Query(ctx, `SELECT `+discountColumns+` FROM discount_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list discount codes")
	}
	defer rows.Close()

	var codes []domain.DiscountCode
	for rows.Next() {
		c, err := scanDiscount(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan discount code")
		}
		codes = append(codes, *c)
	}
	return codes, rows.Err()
}
