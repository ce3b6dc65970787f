package discounts

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

type Store interface {
	InsertDiscount(ctx context.Context, d *domain.Discount) error
	DiscountByCode(ctx context.Context, code string) (*domain.Discount, error)
	Discounts(ctx context.Context) ([]*domain.Discount, error)
	// RedeemDiscount is the conditional usage-cap increment; it fails
	// with ErrDiscountLimitReached once the code is exhausted.
	RedeemDiscount(ctx context.Context, code string) (*domain.Discount, error)
}

// Ledger validates and redeems discount codes against running totals.
type Ledger struct {
	store  Store
	logger observability.Logger
	now    func() time.Time
}

func NewLedger(store Store, logger observability.Logger) *Ledger {
	return &Ledger{store: store, logger: logger, now: time.Now}
}

// Redeem applies the code to total and burns one use. The distinct
// failure modes (not found, expired, limit reached, minimum purchase)
// surface unchanged so callers can show an actionable message.
func (l *Ledger) Redeem(ctx context.Context, code string, total float64) (domain.Redemption, error) {
	discount, err := l.store.DiscountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			observability.DiscountRedemptions.WithLabelValues("not_found").Inc()
			return domain.Redemption{}, errors.Wrap(domain.ErrNotFound, "invalid discount code")
		}
		return domain.Redemption{}, err
	}

	if err := discount.Redeemable(total, l.now()); err != nil {
		observability.DiscountRedemptions.WithLabelValues("rejected").Inc()
		return domain.Redemption{}, err
	}

	// The pre-check above can race another redemption; the conditional
	// increment below is what actually enforces the cap.
	if _, err := l.store.RedeemDiscount(ctx, code); err != nil {
		observability.DiscountRedemptions.WithLabelValues("rejected").Inc()
		return domain.Redemption{}, err
	}

	observability.DiscountRedemptions.WithLabelValues("redeemed").Inc()
	return discount.Apply(total), nil
}

// IsValid is the pre-flight read check used by the UI; no mutation.
func (l *Ledger) IsValid(ctx context.Context, code string) (bool, error) {
	discount, err := l.store.DiscountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if discount.Status != domain.DiscountActive {
		return false, nil
	}
	if discount.ExpiresAt != nil && discount.ExpiresAt.Before(l.now()) {
		return false, nil
	}
	return true, nil
}

func (l *Ledger) Create(ctx context.Context, d domain.Discount) (*domain.Discount, error) {
	if d.Code == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "discount code is required")
	}
	if d.Kind != domain.DiscountPercentage && d.Kind != domain.DiscountFixed {
		return nil, errors.Wrap(domain.ErrInvalidInput, "unknown discount kind")
	}
	if d.Value <= 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "discount value must be positive")
	}
	d.ID = uuid.New()
	d.Status = domain.DiscountActive
	if d.MaxUses <= 0 {
		d.MaxUses = 1
	}
	if err := l.store.InsertDiscount(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (l *Ledger) List(ctx context.Context) ([]*domain.Discount, error) {
	return l.store.Discounts(ctx)
}
