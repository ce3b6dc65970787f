package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cinema-ticketing/internal/domain"
)

const ticketColumns = "id, order_id, seat_id, seat_info, code, price, status, validated_at, created_at"

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(&t.ID, &t.OrderID, &t.SeatID, &t.SeatInfo, &t.Code,
		&t.Price, &t.Status, &t.ValidatedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SettlePayment applies a payment approval as one atomic unit: the
// PENDING order becomes PAID, its seats become OCCUPIED and the tickets
// and vouchers are written, all in a single SERIALIZABLE transaction.
// A failure anywhere rolls everything back, so a PAID order can never
// exist with incomplete issuance.
func (r *Repository) SettlePayment(ctx context.Context, orderID uuid.UUID, paymentID string, issue domain.IssueFunc) (*domain.Order, []domain.Ticket, []domain.Voucher, error) {
	var (
		order    *domain.Order
		tickets  []domain.Ticket
		vouchers []domain.Voucher
	)
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = scanOrder(tx.QueryRow(ctx, `
			SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE
		`, orderID))
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if order.Status != domain.OrderPending {
			return errors.Wrap(domain.ErrConflict, "order is not pending")
		}

		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status = 'paid', payment_id = $2 WHERE id = $1
		`, orderID, paymentID); err != nil {
			return err
		}
		order.Status = domain.OrderPaid
		order.PaymentID = paymentID

		if err := occupySeatsTx(ctx, tx, order.SeatIDs); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT `+seatColumns+` FROM seats WHERE id = ANY($1::UUID[])
		`, uuidStrings(order.SeatIDs))
		if err != nil {
			return err
		}
		seats, err := collectSeats(rows)
		if err != nil {
			return err
		}

		tickets, vouchers = issue(order, seats)
		if len(tickets) != len(order.SeatIDs) {
			return errors.Newf("issued %d tickets for %d seats", len(tickets), len(order.SeatIDs))
		}

		for _, t := range tickets {
			if _, err := tx.Exec(ctx, `
				INSERT INTO tickets (id, order_id, seat_id, seat_info, code, price, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, t.ID, t.OrderID, t.SeatID, t.SeatInfo, t.Code, t.Price, string(t.Status), t.CreatedAt); err != nil {
				return err
			}
		}
		for _, v := range vouchers {
			if _, err := tx.Exec(ctx, `
				INSERT INTO vouchers (id, order_id, item_id, item_name, quantity, price, code, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, v.ID, v.OrderID, v.ItemID, v.ItemName, v.Quantity, v.Price, v.Code, string(v.Status), v.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return order, tickets, vouchers, nil
}

func (r *Repository) TicketByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *Repository) TicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE code = $1
	`, code))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *Repository) TicketsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.order_id, t.seat_id, t.seat_info, t.code, t.price, t.status, t.validated_at, t.created_at
		FROM tickets t JOIN orders o ON o.id = t.order_id
		WHERE o.user_id = $1 ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// MarkTicketUsed is the single-use gate: a conditional update that only
// fires while the ticket is VALID. Exactly one of two concurrent
// validations can win the row.
func (r *Repository) MarkTicketUsed(ctx context.Context, code string, at time.Time) (*domain.Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `
		UPDATE tickets SET status = 'used', validated_at = $2
		WHERE code = $1 AND status = 'valid'
		RETURNING `+ticketColumns+`
	`, code, at))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrConflict
	}
	return t, err
}

// CancelTicket transitions VALID to CANCELLED; used tickets stay used.
func (r *Repository) CancelTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE tickets SET status = 'cancelled' WHERE id = $1 AND status = 'valid'
	`, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		t, err := r.TicketByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(domain.ErrConflict, "ticket is %s", t.Status)
	}
	return r.TicketByID(ctx, id)
}

// TicketStats counts tickets per status for the validation dashboard.
func (r *Repository) TicketStats(ctx context.Context) (map[domain.TicketStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
