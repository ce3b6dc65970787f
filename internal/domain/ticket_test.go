package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewTicketCode(t *testing.T) {
	a, b := NewTicketCode(), NewTicketCode()
	if !strings.HasPrefix(a, "TICKET-") {
		t.Errorf("code %q missing prefix", a)
	}
	if a == b {
		t.Error("codes must be unique")
	}
}

func TestIssueTickets(t *testing.T) {
	seatA := Seat{ID: uuid.New(), Row: "A", Number: 1, Price: 25}
	seatB := Seat{ID: uuid.New(), Row: "B", Number: 3, Price: 50}
	order := &Order{ID: uuid.New(), SeatIDs: []uuid.UUID{seatA.ID, seatB.ID}}

	tickets := IssueTickets(order, map[uuid.UUID]Seat{seatA.ID: seatA, seatB.ID: seatB})

	if len(tickets) != 2 {
		t.Fatalf("issued %d tickets, want 2", len(tickets))
	}
	if tickets[0].SeatInfo != "A1" || tickets[1].SeatInfo != "B3" {
		t.Errorf("seat info = %q, %q", tickets[0].SeatInfo, tickets[1].SeatInfo)
	}
	if tickets[0].Price != 25 || tickets[1].Price != 50 {
		t.Errorf("prices not carried from seats")
	}
	for _, tk := range tickets {
		if tk.Status != TicketValid {
			t.Errorf("ticket issued as %s, want valid", tk.Status)
		}
		if tk.OrderID != order.ID {
			t.Error("ticket not bound to order")
		}
	}
	if tickets[0].Code == tickets[1].Code {
		t.Error("ticket codes must be unique")
	}
}

func TestIssueTickets_SkipsMissingSeats(t *testing.T) {
	known := Seat{ID: uuid.New(), Row: "A", Number: 1}
	order := &Order{ID: uuid.New(), SeatIDs: []uuid.UUID{known.ID, uuid.New()}}

	tickets := IssueTickets(order, map[uuid.UUID]Seat{known.ID: known})
	if len(tickets) != 1 {
		t.Fatalf("issued %d tickets, want 1", len(tickets))
	}
}

func TestIssueVouchers(t *testing.T) {
	order := &Order{
		ID: uuid.New(),
		AddonItems: []AddonItem{
			{ID: uuid.New(), Kind: AddonProduct, Quantity: 2, Price: 10},
			{ID: uuid.New(), Kind: AddonPackage, Quantity: 1, Price: 30},
		},
	}

	vouchers := IssueVouchers(order)

	if len(vouchers) != 2 {
		t.Fatalf("issued %d vouchers, want 2", len(vouchers))
	}
	for i, v := range vouchers {
		if v.Status != TicketValid {
			t.Errorf("voucher issued as %s, want valid", v.Status)
		}
		if v.Quantity != order.AddonItems[i].Quantity {
			t.Error("quantity not carried")
		}
		if !strings.HasPrefix(v.Code, "VOUCHER-") {
			t.Errorf("voucher code %q missing prefix", v.Code)
		}
	}

	if got := IssueVouchers(&Order{}); got != nil {
		t.Errorf("no add-ons should issue no vouchers, got %d", len(got))
	}
}
