package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cinema-ticketing/internal/adapters/crdb"
	"cinema-ticketing/internal/domain"
)

func startRepository(t *testing.T) *crdb.Repository {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/cinema?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, "CREATE DATABASE IF NOT EXISTS cinema"); err != nil {
		t.Fatal(err)
	}

	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return repo
}

func seedSeats(t *testing.T, repo *crdb.Repository, n int) []uuid.UUID {
	t.Helper()
	ctx := context.Background()

	room := domain.Room{ID: uuid.New(), Name: "Sala 1", IsActive: true}
	if err := repo.InsertRoom(ctx, room); err != nil {
		t.Fatal(err)
	}

	seats := make([]domain.Seat, n)
	ids := make([]uuid.UUID, n)
	for i := range seats {
		seats[i] = domain.Seat{
			ID:       uuid.New(),
			RoomID:   room.ID,
			Row:      "A",
			Number:   i + 1,
			Category: domain.SeatStandard,
			Status:   domain.SeatAvailable,
			Price:    25,
		}
		ids[i] = seats[i].ID
	}
	if err := repo.InsertSeats(ctx, seats); err != nil {
		t.Fatal(err)
	}
	return ids
}

func TestRepository_ReserveSeats(t *testing.T) {
	repo := startRepository(t)
	ctx := context.Background()
	ids := seedSeats(t, repo, 2)

	reserved, err := repo.ReserveSeats(ctx, ids)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(reserved) != 2 {
		t.Fatalf("reserved %d seats, want 2", len(reserved))
	}
	for _, s := range reserved {
		if s.Status != domain.SeatReserved {
			t.Errorf("seat %s is %s, want reserved", s.Label(), s.Status)
		}
	}

	// A second overlapping reservation must lose and name the seats.
	_, err = repo.ReserveSeats(ctx, ids[:1])
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var unavailable *domain.SeatsUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected seats-unavailable error, got %v", err)
	}
	if len(unavailable.Labels) != 1 || unavailable.Labels[0] != "A1" {
		t.Errorf("conflict labels = %v, want [A1]", unavailable.Labels)
	}

	released, err := repo.ReleaseSeats(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range released {
		if s.Status != domain.SeatAvailable {
			t.Errorf("seat %s is %s after release, want available", s.Label(), s.Status)
		}
	}
}

func TestRepository_ReserveSeats_UnknownSeat(t *testing.T) {
	repo := startRepository(t)
	ids := seedSeats(t, repo, 1)

	_, err := repo.ReserveSeats(context.Background(), append(ids, uuid.New()))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepository_SettlePayment(t *testing.T) {
	repo := startRepository(t)
	ctx := context.Background()
	ids := seedSeats(t, repo, 2)

	if _, err := repo.ReserveSeats(ctx, ids); err != nil {
		t.Fatal(err)
	}

	order := domain.NewOrder(uuid.New(), uuid.New(), ids)
	order.Total = 50
	order.AddonItems = []domain.AddonItem{
		{ID: uuid.New(), Kind: domain.AddonProduct, Quantity: 2, Price: 10},
	}
	if err := repo.InsertOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	issue := func(o *domain.Order, seats []domain.Seat) ([]domain.Ticket, []domain.Voucher) {
		byID := make(map[uuid.UUID]domain.Seat, len(seats))
		for _, s := range seats {
			byID[s.ID] = s
		}
		return domain.IssueTickets(o, byID), domain.IssueVouchers(o)
	}

	settled, tickets, vouchers, err := repo.SettlePayment(ctx, order.ID, "pi_test", issue)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if settled.Status != domain.OrderPaid {
		t.Errorf("order is %s, want paid", settled.Status)
	}
	if len(tickets) != 2 || len(vouchers) != 1 {
		t.Fatalf("issued %d tickets and %d vouchers, want 2 and 1", len(tickets), len(vouchers))
	}

	seats, err := repo.SeatsByIDs(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range seats {
		if s.Status != domain.SeatOccupied {
			t.Errorf("seat %s is %s after settlement, want occupied", s.Label(), s.Status)
		}
	}

	// Settling the same order again must refuse, not double-issue.
	_, _, _, err = repo.SettlePayment(ctx, order.ID, "pi_other", issue)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	fetched, err := repo.TicketByCode(ctx, tickets[0].Code)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.TicketValid {
		t.Errorf("ticket is %s, want valid", fetched.Status)
	}
}

func TestRepository_MarkTicketUsed(t *testing.T) {
	repo := startRepository(t)
	ctx := context.Background()
	ids := seedSeats(t, repo, 1)

	if _, err := repo.ReserveSeats(ctx, ids); err != nil {
		t.Fatal(err)
	}
	order := domain.NewOrder(uuid.New(), uuid.New(), ids)
	order.Total = 25
	if err := repo.InsertOrder(ctx, order); err != nil {
		t.Fatal(err)
	}
	_, tickets, _, err := repo.SettlePayment(ctx, order.ID, "pi_test", func(o *domain.Order, seats []domain.Seat) ([]domain.Ticket, []domain.Voucher) {
		byID := map[uuid.UUID]domain.Seat{seats[0].ID: seats[0]}
		return domain.IssueTickets(o, byID), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	used, err := repo.MarkTicketUsed(ctx, tickets[0].Code, time.Now().UTC())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if used.Status != domain.TicketUsed || used.ValidatedAt == nil {
		t.Errorf("ticket not marked used: %+v", used)
	}

	// Second use of the same code must lose the conditional update.
	_, err = repo.MarkTicketUsed(ctx, tickets[0].Code, time.Now().UTC())
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRepository_RedeemDiscount(t *testing.T) {
	repo := startRepository(t)
	ctx := context.Background()

	d := &domain.Discount{
		ID:      uuid.New(),
		Code:    "CAP2",
		Kind:    domain.DiscountFixed,
		Value:   5,
		MaxUses: 2,
		Status:  domain.DiscountActive,
	}
	if err := repo.InsertDiscount(ctx, d); err != nil {
		t.Fatal(err)
	}

	first, err := repo.RedeemDiscount(ctx, "CAP2")
	if err != nil {
		t.Fatal(err)
	}
	if first.CurrentUses != 1 || first.Status != domain.DiscountActive {
		t.Errorf("after first redeem: uses=%d status=%s", first.CurrentUses, first.Status)
	}

	second, err := repo.RedeemDiscount(ctx, "CAP2")
	if err != nil {
		t.Fatal(err)
	}
	if second.CurrentUses != 2 || second.Status != domain.DiscountUsed {
		t.Errorf("after second redeem: uses=%d status=%s", second.CurrentUses, second.Status)
	}

	if _, err := repo.RedeemDiscount(ctx, "CAP2"); !errors.Is(err, domain.ErrDiscountLimitReached) {
		t.Fatalf("expected limit reached, got %v", err)
	}
}

func TestRepository_OrderExpiry(t *testing.T) {
	repo := startRepository(t)
	ctx := context.Background()
	ids := seedSeats(t, repo, 1)

	if _, err := repo.ReserveSeats(ctx, ids); err != nil {
		t.Fatal(err)
	}
	order := domain.NewOrder(uuid.New(), uuid.New(), ids)
	order.Total = 25
	order.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := repo.InsertOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	stale, err := repo.ExpiredPendingOrders(ctx, time.Now().UTC().Add(-30*time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0].ID != order.ID {
		t.Fatalf("expected the stale order, got %d orders", len(stale))
	}

	expired, err := repo.MarkOrderExpired(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !expired {
		t.Fatal("expected the sweep to own the transition")
	}

	// A second sweep, or one racing a payment, must not win again.
	expired, err = repo.MarkOrderExpired(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if expired {
		t.Fatal("expired order must not transition twice")
	}
}
