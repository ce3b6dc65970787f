package crdb

import (
	"context"

	"github.com/jackc/pgx/v5"

	"cinema-ticketing/internal/domain"
)

const discountColumns = "id, code, description, kind, value, max_uses, current_uses, expires_at, min_purchase, status"

func scanDiscount(row pgx.Row) (*domain.Discount, error) {
	var d domain.Discount
	err := row.Scan(&d.ID, &d.Code, &d.Description, &d.Kind, &d.Value,
		&d.MaxUses, &d.CurrentUses, &d.ExpiresAt, &d.MinPurchase, &d.Status)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) InsertDiscount(ctx context.Context, d *domain.Discount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO discounts (id, code, description, kind, value, max_uses, current_uses, expires_at, min_purchase, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, d.Code, d.Description, string(d.Kind), d.Value, d.MaxUses, d.CurrentUses,
		d.ExpiresAt, d.MinPurchase, string(d.Status))
	return err
}

func (r *Repository) DiscountByCode(ctx context.Context, code string) (*domain.Discount, error) {
	d, err := scanDiscount(r.pool.QueryRow(ctx, `
		SELECT `+discountColumns+` FROM discounts WHERE code = $1
	`, code))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return d, err
}

func (r *Repository) Discounts(ctx context.Context) ([]*domain.Discount, error) {
	rows, err := r.pool.Query(ctx, `SELECT ` + discountColumns + ` FROM discounts ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discounts []*domain.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

// RedeemDiscount increments the usage counter as a conditional update:
// it only fires while the code is ACTIVE and under its cap, and flips
// the status to USED when the increment reaches the cap. Concurrent
// redemptions of a nearly-exhausted code cannot both pass the cap.
func (r *Repository) RedeemDiscount(ctx context.Context, code string) (*domain.Discount, error) {
	d, err := scanDiscount(r.pool.QueryRow(ctx, `
		UPDATE discounts
		SET current_uses = current_uses + 1,
		    status = CASE WHEN current_uses + 1 >= max_uses THEN 'used' ELSE status END
		WHERE code = $1 AND status = 'active' AND current_uses < max_uses
		RETURNING `+discountColumns+`
	`, code))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrDiscountLimitReached
	}
	return d, err
}
