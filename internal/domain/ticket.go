package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IssueFunc builds the tickets and vouchers for an order once its
// seats are known. It runs inside the payment settlement transaction.
type IssueFunc func(order *Order, seats []Seat) ([]Ticket, []Voucher)

// NewTicketCode generates a globally unique redemption code carried in
// the ticket's QR payload.
func NewTicketCode() string {
	return fmt.Sprintf("TICKET-%s-%d", uuid.New(), time.Now().UnixMilli())
}

func NewVoucherCode() string {
	return fmt.Sprintf("VOUCHER-%s-%d", uuid.New(), time.Now().UnixMilli())
}

// IssueTickets derives one VALID ticket per reserved seat of a paid
// order. Seats missing from the lookup are skipped; the settlement
// transaction verifies the count before committing.
func IssueTickets(order *Order, seatsByID map[uuid.UUID]Seat) []Ticket {
	tickets := make([]Ticket, 0, len(order.SeatIDs))
	for _, seatID := range order.SeatIDs {
		seat, ok := seatsByID[seatID]
		if !ok {
			continue
		}
		tickets = append(tickets, Ticket{
			ID:        uuid.New(),
			OrderID:   order.ID,
			SeatID:    seatID,
			SeatInfo:  seat.Label(),
			Code:      NewTicketCode(),
			Price:     seat.Price,
			Status:    TicketValid,
			CreatedAt: time.Now().UTC(),
		})
	}
	return tickets
}

// IssueVouchers derives one VALID voucher per priced add-on line item.
func IssueVouchers(order *Order) []Voucher {
	if len(order.AddonItems) == 0 {
		return nil
	}
	vouchers := make([]Voucher, 0, len(order.AddonItems))
	for _, item := range order.AddonItems {
		vouchers = append(vouchers, Voucher{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ItemID:    item.ID,
			ItemName:  fmt.Sprintf("%s-%s", item.Kind, item.ID),
			Quantity:  item.Quantity,
			Price:     item.Price,
			Code:      NewVoucherCode(),
			Status:    TicketValid,
			CreatedAt: time.Now().UTC(),
		})
	}
	return vouchers
}
