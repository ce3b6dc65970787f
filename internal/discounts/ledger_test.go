package discounts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinema-ticketing/internal/discounts"
	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

// fakeDiscountStore mirrors the repository's conditional increment: the
// cap check and the use count bump happen under one lock.
type fakeDiscountStore struct {
	mu    sync.Mutex
	codes map[string]*domain.Discount
}

func newFakeDiscountStore() *fakeDiscountStore {
	return &fakeDiscountStore{codes: make(map[string]*domain.Discount)}
}

func (f *fakeDiscountStore) add(d domain.Discount) {
	f.codes[d.Code] = &d
}

func (f *fakeDiscountStore) InsertDiscount(ctx context.Context, d *domain.Discount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.codes[d.Code] = &cp
	return nil
}

func (f *fakeDiscountStore) DiscountByCode(ctx context.Context, code string) (*domain.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDiscountStore) Discounts(ctx context.Context) ([]*domain.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Discount
	for _, d := range f.codes {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeDiscountStore) RedeemDiscount(ctx context.Context, code string) (*domain.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.codes[code]
	if !ok || d.Status != domain.DiscountActive || d.CurrentUses >= d.MaxUses {
		return nil, domain.ErrDiscountLimitReached
	}
	d.CurrentUses++
	if d.CurrentUses >= d.MaxUses {
		d.Status = domain.DiscountUsed
	}
	cp := *d
	return &cp, nil
}

func TestLedger_Redeem_Percentage(t *testing.T) {
	store := newFakeDiscountStore()
	store.add(domain.Discount{
		Code: "PROMO20", Kind: domain.DiscountPercentage, Value: 20,
		MaxUses: 5, Status: domain.DiscountActive,
	})
	ledger := discounts.NewLedger(store, observability.NewLogger())

	redemption, err := ledger.Redeem(context.Background(), "PROMO20", 100)
	require.NoError(t, err)
	assert.Equal(t, float64(20), redemption.Amount)
	assert.Equal(t, float64(80), redemption.FinalTotal)

	d, _ := store.DiscountByCode(context.Background(), "PROMO20")
	assert.Equal(t, 1, d.CurrentUses)
}

func TestLedger_Redeem_FixedClampsAtZero(t *testing.T) {
	store := newFakeDiscountStore()
	store.add(domain.Discount{
		Code: "BIG", Kind: domain.DiscountFixed, Value: 100,
		MaxUses: 5, Status: domain.DiscountActive,
	})
	ledger := discounts.NewLedger(store, observability.NewLogger())

	redemption, err := ledger.Redeem(context.Background(), "BIG", 60)
	require.NoError(t, err)
	assert.Equal(t, float64(0), redemption.FinalTotal)
}

func TestLedger_Redeem_Failures(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	store := newFakeDiscountStore()
	store.add(domain.Discount{
		Code: "EXPIRED", Kind: domain.DiscountFixed, Value: 10,
		MaxUses: 5, Status: domain.DiscountActive, ExpiresAt: &past,
	})
	store.add(domain.Discount{
		Code: "SPENT", Kind: domain.DiscountFixed, Value: 10,
		MaxUses: 1, CurrentUses: 1, Status: domain.DiscountUsed,
	})
	store.add(domain.Discount{
		Code: "MIN50", Kind: domain.DiscountFixed, Value: 10,
		MaxUses: 5, Status: domain.DiscountActive, MinPurchase: 50,
	})
	ledger := discounts.NewLedger(store, observability.NewLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		code    string
		total   float64
		wantErr error
	}{
		{"unknown code", "NOPE", 100, domain.ErrNotFound},
		{"expired", "EXPIRED", 100, domain.ErrDiscountExpired},
		{"exhausted", "SPENT", 100, domain.ErrNotFound},
		{"below minimum", "MIN50", 30, domain.ErrMinPurchaseNotMet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Redeem(ctx, tt.code, tt.total)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLedger_Redeem_CapUnderContention(t *testing.T) {
	store := newFakeDiscountStore()
	store.add(domain.Discount{
		Code: "CAP3", Kind: domain.DiscountFixed, Value: 5,
		MaxUses: 3, Status: domain.DiscountActive,
	})
	ledger := discounts.NewLedger(store, observability.NewLogger())

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Redeem(context.Background(), "CAP3", 100)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 3, ok, "redemptions must not exceed max uses")

	d, _ := store.DiscountByCode(context.Background(), "CAP3")
	assert.Equal(t, 3, d.CurrentUses)
	assert.Equal(t, domain.DiscountUsed, d.Status)
}

func TestLedger_IsValid(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	store := newFakeDiscountStore()
	store.add(domain.Discount{Code: "OK", Kind: domain.DiscountFixed, Value: 5, MaxUses: 5, Status: domain.DiscountActive})
	store.add(domain.Discount{Code: "OLD", Kind: domain.DiscountFixed, Value: 5, MaxUses: 5, Status: domain.DiscountActive, ExpiresAt: &past})
	ledger := discounts.NewLedger(store, observability.NewLogger())
	ctx := context.Background()

	valid, err := ledger.IsValid(ctx, "OK")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = ledger.IsValid(ctx, "OLD")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = ledger.IsValid(ctx, "MISSING")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestLedger_Create(t *testing.T) {
	store := newFakeDiscountStore()
	ledger := discounts.NewLedger(store, observability.NewLogger())
	ctx := context.Background()

	created, err := ledger.Create(ctx, domain.Discount{
		Code: "NEW10", Kind: domain.DiscountPercentage, Value: 10,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, domain.DiscountActive, created.Status)
	assert.Equal(t, 1, created.MaxUses)

	_, err = ledger.Create(ctx, domain.Discount{Kind: domain.DiscountFixed, Value: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ledger.Create(ctx, domain.Discount{Code: "X", Kind: domain.DiscountKind("bogus"), Value: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
