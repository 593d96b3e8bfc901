package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	quantityKeyPrefix = "avail:"
	idempotencyKeyTTL = 24 * time.Hour
)

// decrementQuantityScript reports 1 when the decrement applied, 0 when the
// cached value cannot cover it, and 2 when the key is not cached at all.
var decrementQuantityScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 2
end

current = tonumber(current)
if current >= amount then
	redis.call('DECRBY', key, amount)
	return 1
end

return 0
`)

// RedisAdapter is the quantity guard: an atomic check-and-decrement in front
// of the durable store, plus idempotency keys for the shipment saga.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func quantityKey(siteID, itemID int64) string {
	return fmt.Sprintf("%s%d:%d", quantityKeyPrefix, siteID, itemID)
}

func (r *RedisAdapter) DecrementQuantity(ctx context.Context, siteID, itemID int64, amount int) (ok, known bool, err error) {
	result, err := decrementQuantityScript.Run(ctx, r.client, []string{quantityKey(siteID, itemID)}, amount).Int()
	if err != nil {
		return false, false, err
	}
	switch result {
	case 1:
		return true, true, nil
	case 0:
		return false, true, nil
	default:
		return false, false, nil
	}
}

func (r *RedisAdapter) IncrementQuantity(ctx context.Context, siteID, itemID int64, amount int) error {
	return r.client.IncrBy(ctx, quantityKey(siteID, itemID), int64(amount)).Err()
}

func (r *RedisAdapter) SetQuantity(ctx context.Context, siteID, itemID int64, quantity int) error {
	return r.client.Set(ctx, quantityKey(siteID, itemID), quantity, 0).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
