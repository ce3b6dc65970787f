package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetSeatLock takes a short-lived lock on a single seat before the
// authoritative DB reservation, so contended requests fail fast
// without a round-trip through a serializable transaction.
func (c *Cache) SetSeatLock(ctx context.Context, seatID, ownerID string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, "seatlock:"+seatID, ownerID, ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseSeatLock(ctx context.Context, seatID string) error {
	return c.client.Del(ctx, "seatlock:"+seatID).Err()
}

// Seat layouts are read far more often than they change; cache the
// projection and drop it whenever any seat in the room mutates.
func (c *Cache) GetLayout(ctx context.Context, roomID string, dest any) (bool, error) {
	val, err := c.client.Get(ctx, "layout:"+roomID).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(val, dest)
}

func (c *Cache) SetLayout(ctx context.Context, roomID string, layout any, ttl time.Duration) error {
	data, err := json.Marshal(layout)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "layout:"+roomID, data, ttl).Err()
}

func (c *Cache) InvalidateLayout(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, "layout:"+roomID).Err()
}
