package domain

import (
	"time"

	"github.com/google/uuid"
)

func NewOrder(userID, sessionID uuid.UUID, seatIDs []uuid.UUID) *Order {
	return &Order{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		SeatIDs:   seatIDs,
		Status:    OrderPending,
		CreatedAt: time.Now().UTC(),
	}
}

// SeatTotal sums the unit prices of the reserved seats. It is the
// running total before discounts and add-ons.
func SeatTotal(seats []Seat) float64 {
	var total float64
	for _, s := range seats {
		total += s.Price
	}
	return total
}

// AddonTotal sums price x quantity over priced line items.
func AddonTotal(items []AddonItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// CanCancel reports whether the order may still transition to
// CANCELLED. Paid orders are final on this path; cancelled and expired
// orders stay where they are but cancelling them again is a no-op
// rejected upstream.
func (o *Order) CanCancel() bool {
	return o.Status != OrderPaid
}
