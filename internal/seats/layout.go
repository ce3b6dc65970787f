package seats

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"cinema-ticketing/internal/domain"
)

const layoutCacheTTL = 30 * time.Second

// SeatSummary is the per-seat projection rendered on the seat map.
type SeatSummary struct {
	ID              uuid.UUID           `json:"id"`
	Number          int                 `json:"number"`
	Category        domain.SeatCategory `json:"category"`
	Status          domain.SeatStatus   `json:"status"`
	Price           float64             `json:"price"`
	IsForDisability bool                `json:"isForDisability"`
	IsForElderly    bool                `json:"isForElderly"`
	IsForPregnant   bool                `json:"isForPregnant"`
}

// Layout groups a room's seats by row, ordered by row then number.
// Read-only; cached until a seat in the room mutates.
func (r *Registry) Layout(ctx context.Context, roomID uuid.UUID) (map[string][]SeatSummary, error) {
	if r.cache != nil {
		var cached map[string][]SeatSummary
		if ok, err := r.cache.GetLayout(ctx, roomID.String(), &cached); err == nil && ok {
			return cached, nil
		}
	}

	if _, err := r.store.RoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	seats, err := r.store.SeatsByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	layout := make(map[string][]SeatSummary)
	for _, seat := range seats {
		layout[seat.Row] = append(layout[seat.Row], SeatSummary{
			ID:              seat.ID,
			Number:          seat.Number,
			Category:        seat.Category,
			Status:          seat.Status,
			Price:           seat.Price,
			IsForDisability: seat.IsForDisability,
			IsForElderly:    seat.IsForElderly,
			IsForPregnant:   seat.IsForPregnant,
		})
	}

	if r.cache != nil {
		if err := r.cache.SetLayout(ctx, roomID.String(), layout, layoutCacheTTL); err != nil {
			r.logger.Warn("failed to cache layout", err)
		}
	}
	return layout, nil
}

// CreateRoom registers a new room; seats are generated separately.
func (r *Registry) CreateRoom(ctx context.Context, room domain.Room) (*domain.Room, error) {
	if room.Name == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "room name is required")
	}
	room.ID = uuid.New()
	room.IsActive = true
	if err := r.store.InsertRoom(ctx, room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *Registry) Room(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	return r.store.RoomByID(ctx, id)
}

func (r *Registry) Rooms(ctx context.Context) ([]domain.Room, error) {
	return r.store.ActiveRooms(ctx)
}

// GenerateSeats bulk-creates the seat grid for a room. Refuses to run
// twice: regenerating would orphan seat references held by orders.
func (r *Registry) GenerateSeats(ctx context.Context, roomID uuid.UUID, rows, seatsPerRow int, specs []domain.RowSpec) ([]domain.Seat, error) {
	if rows <= 0 || seatsPerRow <= 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "rows and seats per row must be positive")
	}

	if _, err := r.store.RoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	existing, err := r.store.CountSeatsByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, errors.Wrap(domain.ErrConflict, "seats already generated for this room")
	}

	seats := domain.GenerateSeats(roomID, rows, seatsPerRow, specs)
	if err := r.store.InsertSeats(ctx, seats); err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.InvalidateLayout(ctx, roomID.String()); err != nil {
			r.logger.Warn("failed to invalidate layout cache", err)
		}
	}
	return seats, nil
}
