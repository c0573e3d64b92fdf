package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eagle-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// inProgress marks a reserved key whose response is not stored yet.
const inProgress = "in-progress"

// releaseScript deletes the key only while it still holds the reservation,
// so a late Release never drops a saved response.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
type IdempotencyCache struct {
	client goredis.UniversalClient
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client goredis.UniversalClient) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Reserve claims key with SET NX. It returns false when the key is already
// reserved or holds a completed response.
func (c *IdempotencyCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, inProgress, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency reserve: %w", err)
	}
	return ok, nil
}

// Get returns the stored response. A missing or still-reserved key yields nil, nil.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (*domain.StoredResponse, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	if string(val) == inProgress {
		return nil, nil
	}

	var resp domain.StoredResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, fmt.Errorf("redis idempotency decode: %w", err)
	}
	return &resp, nil
}

// Save stores resp under key, replacing any reservation.
func (c *IdempotencyCache) Save(ctx context.Context, key string, resp *domain.StoredResponse, ttl time.Duration) error {
	val, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis idempotency encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}

// Release drops a reservation so the request can be retried.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, c.client, []string{c.prefix + key}, inProgress).Err(); err != nil {
		return fmt.Errorf("redis idempotency release: %w", err)
	}
	return nil
}
