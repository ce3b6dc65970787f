package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cinema-ticketing/internal/domain"
)

const orderColumns = "id, user_id, session_id, seat_ids, total, discount_code, discount_amount, addon_items, status, payment_id, created_at"

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o              domain.Order
		seatIDs        []string
		discountCode   *string
		addonItemsJSON []byte
		paymentID      *string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.SessionID, &seatIDs, &o.Total,
		&discountCode, &o.DiscountAmount, &addonItemsJSON, &o.Status, &paymentID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, raw := range seatIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parse seat id")
		}
		o.SeatIDs = append(o.SeatIDs, id)
	}
	if discountCode != nil {
		o.DiscountCode = *discountCode
	}
	if paymentID != nil {
		o.PaymentID = *paymentID
	}
	if len(addonItemsJSON) > 0 {
		if err := json.Unmarshal(addonItemsJSON, &o.AddonItems); err != nil {
			return nil, errors.Wrap(err, "decode addon items")
		}
	}
	return &o, nil
}

func (r *Repository) InsertOrder(ctx context.Context, order *domain.Order) error {
	addonItemsJSON, err := json.Marshal(order.AddonItems)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, session_id, seat_ids, total, discount_code, discount_amount, addon_items, status, payment_id, created_at)
		VALUES ($1, $2, $3, $4::UUID[], $5, NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''), $11)
	`, order.ID, order.UserID, order.SessionID, uuidStrings(order.SeatIDs), order.Total,
		order.DiscountCode, order.DiscountAmount, addonItemsJSON, string(order.Status), order.PaymentID, order.CreatedAt)
	return err
}

func (r *Repository) OrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return order, err
}

func (r *Repository) OrdersByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// MarkOrderCancelled is a conditional transition: paid orders never
// leave PAID, so the update refuses them and reports Conflict.
func (r *Repository) MarkOrderCancelled(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = 'cancelled' WHERE id = $1 AND status <> 'paid'
	`, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		if _, err := r.OrderByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, errors.Wrap(domain.ErrConflict, "order already paid")
	}
	return r.OrderByID(ctx, id)
}

// ExpiredPendingOrders lists orders still PENDING past the cutoff, for
// the reservation TTL sweep.
func (r *Repository) ExpiredPendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'pending' AND created_at <= $1
		ORDER BY created_at ASC LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// MarkOrderExpired transitions PENDING to EXPIRED; a no-op when the
// order was paid or cancelled since the sweep read it.
func (r *Repository) MarkOrderExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = 'expired' WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
