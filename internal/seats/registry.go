package seats

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

// Store is the persistence contract for seats and rooms. Reserve,
// release and occupy are atomic conditional transitions at the storage
// boundary, never read-then-write pairs.
type Store interface {
	SeatsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error)
	ReserveSeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error)
	ReleaseSeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error)
	OccupySeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error)
	SeatsByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.Seat, error)
	CountSeatsByRoom(ctx context.Context, roomID uuid.UUID) (int, error)
	InsertSeats(ctx context.Context, seats []domain.Seat) error
	InsertRoom(ctx context.Context, room domain.Room) error
	RoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	ActiveRooms(ctx context.Context) ([]domain.Room, error)
}

// Locker takes short-lived per-seat locks in front of the DB
// reservation so contended requests fail fast.
type Locker interface {
	SetSeatLock(ctx context.Context, seatID, ownerID string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, seatID string) error
}

type LayoutCache interface {
	GetLayout(ctx context.Context, roomID string, dest any) (bool, error)
	SetLayout(ctx context.Context, roomID string, layout any, ttl time.Duration) error
	InvalidateLayout(ctx context.Context, roomID string) error
}

// Registry is the sole mutator of seat status.
type Registry struct {
	store   Store
	locks   Locker
	cache   LayoutCache
	lockTTL time.Duration
	logger  observability.Logger
}

func NewRegistry(store Store, locks Locker, cache LayoutCache, lockTTL time.Duration, logger observability.Logger) *Registry {
	return &Registry{store: store, locks: locks, cache: cache, lockTTL: lockTTL, logger: logger}
}

// Reserve transitions every seat in seatIDs from AVAILABLE to RESERVED
// as one atomic unit. Overlapping concurrent reservations yield exactly
// one success; the loser gets a conflict naming the contested seats.
func (r *Registry) Reserve(ctx context.Context, seatIDs []uuid.UUID, sessionID uuid.UUID) ([]domain.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "no seats selected")
	}

	locked, err := r.lockSeats(ctx, seatIDs, sessionID)
	if err != nil {
		observability.ReservationConflicts.Inc()
		return nil, err
	}

	seats, err := r.store.ReserveSeats(ctx, seatIDs)
	if err != nil {
		r.unlockSeats(ctx, locked)
		if errors.Is(err, domain.ErrConflict) {
			observability.ReservationConflicts.Inc()
		}
		return nil, err
	}

	r.invalidateLayouts(ctx, seats)
	return seats, nil
}

// Release returns seats to AVAILABLE. Idempotent: already-available
// seats are no-ops and unknown ids are skipped.
func (r *Registry) Release(ctx context.Context, seatIDs []uuid.UUID) ([]domain.Seat, error) {
	seats, err := r.store.ReleaseSeats(ctx, seatIDs)
	if err != nil {
		return nil, err
	}
	r.unlockSeats(ctx, seatIDs)
	r.invalidateLayouts(ctx, seats)
	return seats, nil
}

// Occupy marks seats OCCUPIED once their reservation is confirmed paid.
// It does not re-check the prior status; callers own that sequencing.
func (r *Registry) Occupy(ctx context.Context, seatIDs []uuid.UUID) ([]domain.Seat, error) {
	seats, err := r.store.OccupySeats(ctx, seatIDs)
	if err != nil {
		return nil, err
	}
	r.unlockSeats(ctx, seatIDs)
	r.invalidateLayouts(ctx, seats)
	return seats, nil
}

func (r *Registry) SeatsByIDs(ctx context.Context, seatIDs []uuid.UUID) ([]domain.Seat, error) {
	return r.store.SeatsByIDs(ctx, seatIDs)
}

func (r *Registry) lockSeats(ctx context.Context, seatIDs []uuid.UUID, ownerID uuid.UUID) ([]uuid.UUID, error) {
	if r.locks == nil {
		return nil, nil
	}
	var locked []uuid.UUID
	for _, id := range seatIDs {
		ok, err := r.locks.SetSeatLock(ctx, id.String(), ownerID.String(), r.lockTTL)
		if err != nil {
			// Lock layer down: fall through to the DB, which stays authoritative.
			r.logger.Warn("seat lock unavailable", err)
			continue
		}
		if !ok {
			r.unlockSeats(ctx, locked)
			return nil, r.contestedError(ctx, []uuid.UUID{id})
		}
		locked = append(locked, id)
	}
	return locked, nil
}

func (r *Registry) unlockSeats(ctx context.Context, seatIDs []uuid.UUID) {
	if r.locks == nil {
		return
	}
	for _, id := range seatIDs {
		if err := r.locks.ReleaseSeatLock(ctx, id.String()); err != nil {
			r.logger.Warn("failed to release seat lock", err)
		}
	}
}

// contestedError resolves seat ids to row+number labels so the client
// can highlight the seats that blocked the reservation.
func (r *Registry) contestedError(ctx context.Context, seatIDs []uuid.UUID) error {
	seats, err := r.store.SeatsByIDs(ctx, seatIDs)
	if err != nil || len(seats) == 0 {
		return domain.ErrConflict
	}
	labels := make([]string, len(seats))
	for i, s := range seats {
		labels[i] = s.Label()
	}
	return &domain.SeatsUnavailableError{Labels: labels}
}

func (r *Registry) invalidateLayouts(ctx context.Context, seats []domain.Seat) {
	if r.cache == nil {
		return
	}
	rooms := make(map[uuid.UUID]struct{})
	for _, s := range seats {
		rooms[s.RoomID] = struct{}{}
	}
	for roomID := range rooms {
		if err := r.cache.InvalidateLayout(ctx, roomID.String()); err != nil {
			r.logger.Warn("failed to invalidate layout cache", err)
		}
	}
}
