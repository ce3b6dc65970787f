package domain

import "time"

// Redemption is the outcome of applying a discount to a running total.
type Redemption struct {
	Amount     float64
	FinalTotal float64
}

// Redeemable checks the static preconditions for redeeming a discount
// against a running total. The usage-cap increment itself happens as a
// conditional update at the storage boundary.
func (d *Discount) Redeemable(total float64, now time.Time) error {
	if d.Status != DiscountActive {
		return ErrNotFound
	}
	if d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
		return ErrDiscountExpired
	}
	if d.CurrentUses >= d.MaxUses {
		return ErrDiscountLimitReached
	}
	if total < d.MinPurchase {
		return ErrMinPurchaseNotMet
	}
	return nil
}

// Apply computes the discount amount for a running total and the
// clamped final total. A discount never inverts a total negative.
func (d *Discount) Apply(total float64) Redemption {
	var amount float64
	if d.Kind == DiscountPercentage {
		amount = total * d.Value / 100
	} else {
		amount = d.Value
	}
	final := total - amount
	if final < 0 {
		final = 0
	}
	return Redemption{Amount: amount, FinalTotal: final}
}
