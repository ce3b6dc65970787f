package idempotency

import (
	"context"
	"time"

	redisadapter "cinema-ticketing/internal/adapters/redis"
)

// Idempotency replays the stored response for a repeated
// Idempotency-Key, so retried order or payment posts do not re-run
// their side effects.
type Idempotency struct {
	store *redisadapter.Idempotency
	ttl   time.Duration
}

func New(store *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	if key == "" {
		return nil, nil
	}
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if key == "" {
		return nil
	}
	return i.store.Set(ctx, key, redisadapter.IdempResponse{Status: resp.Status, Result: resp.Result}, i.ttl)
}
