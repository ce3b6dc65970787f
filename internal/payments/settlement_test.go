package payments_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
	"cinema-ticketing/internal/payments"
)

type fakeSettlementStore struct {
	orders    map[uuid.UUID]*domain.Order
	seats     map[uuid.UUID]domain.Seat
	tickets   []domain.Ticket
	vouchers  []domain.Voucher
	cancelled []uuid.UUID
}

func newFakeSettlementStore() *fakeSettlementStore {
	return &fakeSettlementStore{
		orders: make(map[uuid.UUID]*domain.Order),
		seats:  make(map[uuid.UUID]domain.Seat),
	}
}

func (f *fakeSettlementStore) OrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeSettlementStore) SettlePayment(ctx context.Context, orderID uuid.UUID, paymentID string, issue domain.IssueFunc) (*domain.Order, []domain.Ticket, []domain.Voucher, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil, nil, domain.ErrNotFound
	}
	if o.Status != domain.OrderPending {
		return nil, nil, nil, errors.Wrap(domain.ErrConflict, "order is not pending")
	}
	o.Status = domain.OrderPaid
	o.PaymentID = paymentID

	seats := make([]domain.Seat, 0, len(o.SeatIDs))
	for _, id := range o.SeatIDs {
		if s, ok := f.seats[id]; ok {
			s.Status = domain.SeatOccupied
			f.seats[id] = s
			seats = append(seats, s)
		}
	}

	tickets, vouchers := issue(o, seats)
	f.tickets = append(f.tickets, tickets...)
	f.vouchers = append(f.vouchers, vouchers...)
	cp := *o
	return &cp, tickets, vouchers, nil
}

func (f *fakeSettlementStore) MarkOrderCancelled(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Status = domain.OrderCancelled
	f.cancelled = append(f.cancelled, id)
	cp := *o
	return &cp, nil
}

type fakeReleaser struct {
	released [][]uuid.UUID
}

func (f *fakeReleaser) Release(ctx context.Context, seatIDs []uuid.UUID) ([]domain.Seat, error) {
	f.released = append(f.released, seatIDs)
	return nil, nil
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, event string, payload any) {
	p.events = append(p.events, event)
}

func pendingOrder(store *fakeSettlementStore) *domain.Order {
	seatA := domain.Seat{ID: uuid.New(), Row: "A", Number: 1, Price: 25, Status: domain.SeatReserved}
	seatB := domain.Seat{ID: uuid.New(), Row: "A", Number: 2, Price: 25, Status: domain.SeatReserved}
	store.seats[seatA.ID] = seatA
	store.seats[seatB.ID] = seatB

	order := domain.NewOrder(uuid.New(), uuid.New(), []uuid.UUID{seatA.ID, seatB.ID})
	order.Total = 50
	order.AddonItems = []domain.AddonItem{
		{ID: uuid.New(), Kind: domain.AddonProduct, Quantity: 1, Price: 10},
	}
	store.orders[order.ID] = order
	return order
}

func TestSettlement_CreatePaymentIntent(t *testing.T) {
	store := newFakeSettlementStore()
	order := pendingOrder(store)
	s := payments.NewSettlement(store, &fakeReleaser{}, &recordingPublisher{}, observability.NewLogger())

	paymentID, secret, err := s.CreatePaymentIntent(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(paymentID, "pi_"))
	assert.Contains(t, secret, "_secret_")

	store.orders[order.ID].Status = domain.OrderPaid
	_, _, err = s.CreatePaymentIntent(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettlement_HandleOutcome_Approved(t *testing.T) {
	store := newFakeSettlementStore()
	order := pendingOrder(store)
	publisher := &recordingPublisher{}
	s := payments.NewSettlement(store, &fakeReleaser{}, publisher, observability.NewLogger())

	result, err := s.HandleOutcome(context.Background(), order.ID, "pi_test", "approved")
	require.NoError(t, err)
	assert.True(t, result.Settled)

	settled := store.orders[order.ID]
	assert.Equal(t, domain.OrderPaid, settled.Status)
	assert.Equal(t, "pi_test", settled.PaymentID)

	// One ticket per seat, one voucher per add-on line item.
	require.Len(t, store.tickets, 2)
	require.Len(t, store.vouchers, 1)
	for _, seatID := range order.SeatIDs {
		assert.Equal(t, domain.SeatOccupied, store.seats[seatID].Status)
	}

	assert.Contains(t, publisher.events, domain.EventPaymentApproved)
}

func TestSettlement_HandleOutcome_ApprovedTwiceConflicts(t *testing.T) {
	store := newFakeSettlementStore()
	order := pendingOrder(store)
	s := payments.NewSettlement(store, &fakeReleaser{}, &recordingPublisher{}, observability.NewLogger())

	_, err := s.HandleOutcome(context.Background(), order.ID, "pi_1", "approved")
	require.NoError(t, err)

	_, err = s.HandleOutcome(context.Background(), order.ID, "pi_2", "approved")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, store.tickets, 2, "no duplicate issuance")
}

func TestSettlement_HandleOutcome_Failed(t *testing.T) {
	store := newFakeSettlementStore()
	order := pendingOrder(store)
	releaser := &fakeReleaser{}
	publisher := &recordingPublisher{}
	s := payments.NewSettlement(store, releaser, publisher, observability.NewLogger())

	result, err := s.HandleOutcome(context.Background(), order.ID, "pi_test", "failed")
	require.NoError(t, err)
	assert.False(t, result.Settled)

	assert.Equal(t, domain.OrderCancelled, store.orders[order.ID].Status)
	require.Len(t, releaser.released, 1)
	assert.Equal(t, order.SeatIDs, releaser.released[0])
	assert.Empty(t, store.tickets)
	assert.Contains(t, publisher.events, domain.EventPaymentFailed)
}

func TestSettlement_HandleOutcome_UnknownIsNoOp(t *testing.T) {
	store := newFakeSettlementStore()
	order := pendingOrder(store)
	releaser := &fakeReleaser{}
	publisher := &recordingPublisher{}
	s := payments.NewSettlement(store, releaser, publisher, observability.NewLogger())

	result, err := s.HandleOutcome(context.Background(), order.ID, "pi_test", "mystery")
	require.NoError(t, err)
	assert.False(t, result.Settled)

	assert.Equal(t, domain.OrderPending, store.orders[order.ID].Status)
	assert.Empty(t, releaser.released)
	assert.Empty(t, publisher.events)
}

func TestSettlement_Confirm(t *testing.T) {
	store := newFakeSettlementStore()
	order := pendingOrder(store)
	s := payments.NewSettlement(store, &fakeReleaser{}, &recordingPublisher{}, observability.NewLogger())

	confirmed, err := s.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, confirmed.Status)
	assert.Len(t, store.tickets, 2)
}
