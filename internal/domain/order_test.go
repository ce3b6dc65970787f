package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestSeatTotal(t *testing.T) {
	seats := []Seat{
		{Price: 25},
		{Price: 25},
		{Price: 50},
	}
	if got := SeatTotal(seats); got != 100 {
		t.Errorf("SeatTotal() = %v, want 100", got)
	}
	if got := SeatTotal(nil); got != 0 {
		t.Errorf("SeatTotal(nil) = %v, want 0", got)
	}
}

func TestAddonTotal(t *testing.T) {
	items := []AddonItem{
		{Quantity: 2, Price: 10},
		{Quantity: 1, Price: 7.5},
	}
	if got := AddonTotal(items); got != 27.5 {
		t.Errorf("AddonTotal() = %v, want 27.5", got)
	}
}

func TestNewOrder(t *testing.T) {
	userID, sessionID := uuid.New(), uuid.New()
	seatIDs := []uuid.UUID{uuid.New(), uuid.New()}

	order := NewOrder(userID, sessionID, seatIDs)

	if order.Status != OrderPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if order.UserID != userID || order.SessionID != sessionID {
		t.Error("ids not carried over")
	}
	if len(order.SeatIDs) != 2 {
		t.Errorf("seat ids = %d, want 2", len(order.SeatIDs))
	}
	if order.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestOrder_CanCancel(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderPending, true},
		{OrderPaid, false},
		{OrderCancelled, true},
		{OrderExpired, true},
	}
	for _, tt := range tests {
		o := Order{Status: tt.status}
		if got := o.CanCancel(); got != tt.want {
			t.Errorf("CanCancel() with %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
