package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

const stockKeyPrefix = "stock:"

// reserveStockScript returns {1, remaining} on success and {0, remaining}
// when stock is short. A missing key counts as zero stock.
var reserveStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = tonumber(redis.call('GET', key) or '0')
if current >= quantity then
	current = redis.call('DECRBY', key, quantity)
	return {1, current}
end

return {0, current}
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}
	key := stockKeyPrefix + ticketID

	reply, err := reserveStockScript.Run(ctx, r.client, []string{key}, quantity).Int64Slice()
	if err != nil {
		return domain.StockResult{}, fmt.Errorf("reserve script: %w", err)
	}
	if len(reply) != 2 {
		return domain.StockResult{}, fmt.Errorf("reserve script: unexpected reply %v", reply)
	}

	if reply[0] == 1 {
		return domain.Reserved(quantity, int(reply[1])), nil
	}
	return domain.Insufficient(int(reply[1])), nil
}

func (r *RedisAdapter) Release(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}
	key := stockKeyPrefix + ticketID

	remaining, err := r.client.IncrBy(ctx, key, int64(quantity)).Result()
	if err != nil {
		return domain.StockResult{}, fmt.Errorf("incr stock: %w", err)
	}
	return domain.Released(quantity, int(remaining)), nil
}

func (r *RedisAdapter) Seed(ctx context.Context, ticketID string, initial int) (bool, error) {
	if initial < 0 {
		return false, domain.ErrInvalidQuantity
	}
	key := stockKeyPrefix + ticketID

	ok, err := r.client.SetNX(ctx, key, initial, 0).Result()
	if err != nil {
		return false, fmt.Errorf("seed stock: %w", err)
	}
	return ok, nil
}

func (r *RedisAdapter) Remaining(ctx context.Context, ticketID string) (int, error) {
	n, err := r.client.Get(ctx, stockKeyPrefix+ticketID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return n, nil
}

// SetStock overwrites the count unconditionally. Used by tooling, never by
// the cart core.
func (r *RedisAdapter) SetStock(ctx context.Context, ticketID string, quantity int) error {
	key := stockKeyPrefix + ticketID
	return r.client.Set(ctx, key, quantity, 0).Err()
}
