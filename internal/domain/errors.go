package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
)

// Discount redemption failures are distinct so callers can show an
// actionable message instead of a generic decline.
var (
	ErrDiscountExpired      = errors.New("discount code expired")
	ErrDiscountLimitReached = errors.New("discount code limit reached")
	ErrMinPurchaseNotMet    = errors.New("minimum purchase not met")
)

// SeatsUnavailableError names the seats that blocked a reservation so
// the client can highlight them on the seat map.
type SeatsUnavailableError struct {
	Labels []string
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats %s are not available", strings.Join(e.Labels, ", "))
}

func (e *SeatsUnavailableError) Unwrap() error {
	return ErrConflict
}
