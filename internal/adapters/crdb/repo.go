package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a SERIALIZABLE transaction. Serialization
// failures surface as domain.ErrSerializationFailure so callers can
// treat them as retryable conflicts.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

// Migrate creates the relational schema. Idempotent; used by the
// binaries on startup and by tests against throwaway databases.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	rows INT NOT NULL,
	seats_per_row INT NOT NULL,
	is_active BOOL NOT NULL DEFAULT true,
	is_3d BOOL NOT NULL DEFAULT false,
	is_imax BOOL NOT NULL DEFAULT false,
	has_dolby BOOL NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS seats (
	id UUID PRIMARY KEY,
	room_id UUID NOT NULL,
	row_label TEXT NOT NULL,
	number INT NOT NULL,
	category TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('available', 'reserved', 'occupied', 'blocked')),
	price NUMERIC NOT NULL,
	is_for_disability BOOL NOT NULL DEFAULT false,
	is_for_elderly BOOL NOT NULL DEFAULT false,
	is_for_pregnant BOOL NOT NULL DEFAULT false,
	UNIQUE (room_id, row_label, number)
);
CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	session_id UUID NOT NULL,
	seat_ids UUID[] NOT NULL,
	total NUMERIC NOT NULL,
	discount_code TEXT,
	discount_amount NUMERIC NOT NULL DEFAULT 0,
	addon_items JSONB,
	status TEXT NOT NULL CHECK (status IN ('pending', 'paid', 'cancelled', 'expired')),
	payment_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS tickets (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL,
	seat_id UUID NOT NULL,
	seat_info TEXT NOT NULL,
	code TEXT NOT NULL UNIQUE,
	price NUMERIC NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('valid', 'used', 'cancelled')),
	validated_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS vouchers (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL,
	item_id UUID NOT NULL,
	item_name TEXT NOT NULL,
	quantity INT NOT NULL,
	price NUMERIC NOT NULL,
	code TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK (status IN ('valid', 'used', 'cancelled')),
	validated_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS discounts (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL CHECK (kind IN ('percentage', 'fixed')),
	value NUMERIC NOT NULL,
	max_uses INT NOT NULL DEFAULT 1,
	current_uses INT NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ,
	min_purchase NUMERIC NOT NULL DEFAULT 0,
	status TEXT NOT NULL CHECK (status IN ('active', 'expired', 'used'))
);
`
