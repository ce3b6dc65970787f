package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cinema-ticketing/internal/domain"
)

const seatColumns = "id, room_id, row_label, number, category, status, price, is_for_disability, is_for_elderly, is_for_pregnant"

func scanSeat(row pgx.Row) (domain.Seat, error) {
	var s domain.Seat
	err := row.Scan(&s.ID, &s.RoomID, &s.Row, &s.Number, &s.Category, &s.Status,
		&s.Price, &s.IsForDisability, &s.IsForElderly, &s.IsForPregnant)
	return s, err
}

func collectSeats(rows pgx.Rows) ([]domain.Seat, error) {
	defer rows.Close()
	var seats []domain.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (r *Repository) SeatsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+seatColumns+` FROM seats WHERE id = ANY($1::UUID[])
	`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// ReserveSeats transitions every seat in ids from AVAILABLE to RESERVED
// as one atomic unit. The check and the set run in a SERIALIZABLE
// transaction, and the UPDATE itself re-checks the status, so two
// overlapping reservations cannot both succeed.
func (r *Repository) ReserveSeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error) {
	var reserved []domain.Seat
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+seatColumns+` FROM seats WHERE id = ANY($1::UUID[])
		`, uuidStrings(ids))
		if err != nil {
			return err
		}
		seats, err := collectSeats(rows)
		if err != nil {
			return err
		}
		if len(seats) != len(ids) {
			return errors.Wrap(domain.ErrNotFound, "some seats not found")
		}

		var unavailable []string
		for _, s := range seats {
			if s.Status != domain.SeatAvailable {
				unavailable = append(unavailable, s.Label())
			}
		}
		if len(unavailable) > 0 {
			return &domain.SeatsUnavailableError{Labels: unavailable}
		}

		result, err := tx.Exec(ctx, `
			UPDATE seats SET status = 'reserved' WHERE id = ANY($1::UUID[]) AND status = 'available'
		`, uuidStrings(ids))
		if err != nil {
			return err
		}
		if result.RowsAffected() != int64(len(ids)) {
			return domain.ErrConflict
		}

		reserved = seats
		for i := range reserved {
			reserved[i].Status = domain.SeatReserved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// ReleaseSeats flips RESERVED seats back to AVAILABLE. Already
// available seats are left alone and unknown ids are skipped, so the
// batch never fails for a seat that is gone or was never held.
func (r *Repository) ReleaseSeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE seats SET status = 'available' WHERE id = ANY($1::UUID[]) AND status = 'reserved'
	`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	return r.SeatsByIDs(ctx, ids)
}

// OccupySeats marks seats as OCCUPIED after payment capture. Callers
// invoke it only for seats whose reservation was confirmed paid.
func (r *Repository) OccupySeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE seats SET status = 'occupied' WHERE id = ANY($1::UUID[])
	`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	return r.SeatsByIDs(ctx, ids)
}

func occupySeatsTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE seats SET status = 'occupied' WHERE id = ANY($1::UUID[])
	`, uuidStrings(ids))
	return err
}

func (r *Repository) SeatsByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.Seat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+seatColumns+` FROM seats WHERE room_id = $1 ORDER BY row_label ASC, number ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

func (r *Repository) CountSeatsByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM seats WHERE room_id = $1`, roomID).Scan(&count)
	return count, err
}

// InsertSeats bulk-loads a generated seat grid.
func (r *Repository) InsertSeats(ctx context.Context, seats []domain.Seat) error {
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"seats"},
		[]string{"id", "room_id", "row_label", "number", "category", "status", "price", "is_for_disability", "is_for_elderly", "is_for_pregnant"},
		pgx.CopyFromSlice(len(seats), func(i int) ([]any, error) {
			s := seats[i]
			return []any{s.ID, s.RoomID, s.Row, s.Number, string(s.Category), string(s.Status), s.Price,
				s.IsForDisability, s.IsForElderly, s.IsForPregnant}, nil
		}),
	)
	return err
}

func (r *Repository) InsertRoom(ctx context.Context, room domain.Room) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rooms (id, name, rows, seats_per_row, is_active, is_3d, is_imax, has_dolby)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, room.ID, room.Name, room.Rows, room.SeatsPerRow, room.IsActive, room.Is3D, room.IsIMAX, room.HasDolby)
	return err
}

func (r *Repository) RoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, rows, seats_per_row, is_active, is_3d, is_imax, has_dolby
		FROM rooms WHERE id = $1
	`, id).Scan(&room.ID, &room.Name, &room.Rows, &room.SeatsPerRow,
		&room.IsActive, &room.Is3D, &room.IsIMAX, &room.HasDolby)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *Repository) ActiveRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, rows, seats_per_row, is_active, is_3d, is_imax, has_dolby
		FROM rooms WHERE is_active ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Rows, &room.SeatsPerRow,
			&room.IsActive, &room.Is3D, &room.IsIMAX, &room.HasDolby); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}
