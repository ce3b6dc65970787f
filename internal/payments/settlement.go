package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

type Store interface {
	OrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// SettlePayment applies PAID + seat occupation + ticket/voucher
	// issuance as one transaction; partial issuance cannot commit.
	SettlePayment(ctx context.Context, orderID uuid.UUID, paymentID string, issue domain.IssueFunc) (*domain.Order, []domain.Ticket, []domain.Voucher, error)
	MarkOrderCancelled(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type SeatRegistry interface {
	Release(ctx context.Context, seatIDs []uuid.UUID) ([]domain.Seat, error)
}

type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// Result is the settlement outcome reported back to the webhook caller.
type Result struct {
	Settled bool
	OrderID uuid.UUID
}

// Settlement consumes payment outcomes for orders: approval issues
// tickets and vouchers and occupies seats; failure releases seats and
// cancels the order.
type Settlement struct {
	store    Store
	registry SeatRegistry
	events   Publisher
	logger   observability.Logger
}

func NewSettlement(store Store, registry SeatRegistry, events Publisher, logger observability.Logger) *Settlement {
	return &Settlement{store: store, registry: registry, events: events, logger: logger}
}

// CreatePaymentIntent hands out an opaque payment id and client secret
// for a PENDING order. No state is mutated; this is the stand-in for a
// real gateway handshake.
func (s *Settlement) CreatePaymentIntent(ctx context.Context, orderID uuid.UUID) (paymentID, clientSecret string, err error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return "", "", err
	}
	if order.Status != domain.OrderPending {
		return "", "", errors.Wrap(domain.ErrInvalidInput, "order is not pending")
	}

	paymentID = fmt.Sprintf("pi_%s", uuid.New())
	clientSecret = fmt.Sprintf("%s_secret_%s", paymentID, strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return paymentID, clientSecret, nil
}

// HandleOutcome processes an external payment event. Unknown outcome
// values mutate nothing and report failure.
func (s *Settlement) HandleOutcome(ctx context.Context, orderID uuid.UUID, paymentID, outcome string) (Result, error) {
	switch outcome {
	case "approved", "succeeded":
		return s.approve(ctx, orderID, paymentID)
	case "failed":
		return s.fail(ctx, orderID, paymentID)
	default:
		s.logger.WithField("outcome", outcome).Warn("ignoring unknown payment outcome")
		return Result{}, nil
	}
}

func (s *Settlement) approve(ctx context.Context, orderID uuid.UUID, paymentID string) (Result, error) {
	order, tickets, vouchers, err := s.store.SettlePayment(ctx, orderID, paymentID, func(order *domain.Order, seats []domain.Seat) ([]domain.Ticket, []domain.Voucher) {
		seatsByID := make(map[uuid.UUID]domain.Seat, len(seats))
		for _, seat := range seats {
			seatsByID[seat.ID] = seat
		}
		return domain.IssueTickets(order, seatsByID), domain.IssueVouchers(order)
	})
	if err != nil {
		return Result{}, err
	}

	observability.TicketsIssued.Add(float64(len(tickets)))

	ticketIDs := make([]uuid.UUID, len(tickets))
	for i, t := range tickets {
		ticketIDs[i] = t.ID
	}
	voucherIDs := make([]uuid.UUID, len(vouchers))
	for i, v := range vouchers {
		voucherIDs[i] = v.ID
	}
	s.events.Publish(ctx, domain.EventPaymentApproved, map[string]any{
		"order_id":   order.ID,
		"payment_id": paymentID,
		"tickets":    ticketIDs,
		"vouchers":   voucherIDs,
	})

	return Result{Settled: true, OrderID: order.ID}, nil
}

func (s *Settlement) fail(ctx context.Context, orderID uuid.UUID, paymentID string) (Result, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return Result{}, err
	}
	if order != nil {
		if _, err := s.registry.Release(ctx, order.SeatIDs); err != nil {
			return Result{}, err
		}
		if _, err := s.store.MarkOrderCancelled(ctx, orderID); err != nil {
			return Result{}, err
		}
	}

	// Emitted whether or not the order was found; the auditors want
	// every failed payment reference.
	s.events.Publish(ctx, domain.EventPaymentFailed, map[string]any{
		"order_id":   orderID,
		"payment_id": paymentID,
	})
	return Result{OrderID: orderID}, nil
}

// Confirm is the simplified manual-confirm path used in lieu of real
// webhook delivery. It runs the full approval settlement so a
// confirmed order always has its tickets.
func (s *Settlement) Confirm(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	result, err := s.HandleOutcome(ctx, orderID, fmt.Sprintf("pi_%s", uuid.New()), "approved")
	if err != nil {
		return nil, err
	}
	return s.store.OrderByID(ctx, result.OrderID)
}
