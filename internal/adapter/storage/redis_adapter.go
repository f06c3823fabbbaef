package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/finops/yearend-accrual/internal/core/domain"
)

const counterKey = "accrual:control_number"

// reserveScript parses the stored formatted value, advances it, and returns
// the pre-advance value. Running as a single Lua script makes the reservation
// atomic across every process sharing the Redis instance. The parse mirrors
// the lenient Go codec: leading letters as prefix, all digits as sequence.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local default_prefix = ARGV[1]

local current = redis.call('GET', key)
if not current then
	current = ''
end

local prefix = string.match(current, '^%a+') or default_prefix
local digits = string.gsub(current, '%D', '')
local seq = tonumber(digits) or 0

local reserved = string.format('%s%06d', prefix, seq)
redis.call('SET', key, string.format('%s%06d', prefix, seq + 1))

return reserved
`)

// RedisAdapter keeps the control counter in a single Redis key holding the
// formatted value. It is the atomic counter variant recommended for
// multi-instance deployments where the in-process mutex cannot serialize.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) ReadCurrent(ctx context.Context) (string, error) {
	value, err := r.client.Get(ctx, counterKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read counter: %v", domain.ErrStoreUnavailable, err)
	}
	return value, nil
}

func (r *RedisAdapter) WriteValue(ctx context.Context, formatted string) error {
	if err := r.client.Set(ctx, counterKey, formatted, 0).Err(); err != nil {
		return fmt.Errorf("%w: write counter: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisAdapter) ReserveNext(ctx context.Context) (string, error) {
	reserved, err := reserveScript.Run(ctx, r.client, []string{counterKey}, domain.DefaultPrefix).Text()
	if err != nil {
		return "", fmt.Errorf("%w: reserve counter: %v", domain.ErrStoreUnavailable, err)
	}
	return reserved, nil
}
