package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimSlotScript checks and increments an integer counter in one round
// trip so that two concurrent claims cannot both pass the ceiling check.
// KEYS[1] = counter key (e.g. "agent_calls:a-123")
// ARGV[1] = ceiling (max slots)
var claimSlotScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local max = tonumber(ARGV[1])
if current >= max then
    return {0, current}
end
current = redis.call("INCR", KEYS[1])
return {1, current}
`)

// releaseSlotScript decrements a counter, flooring at zero.
var releaseSlotScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current <= 0 then
    return 0
end
return redis.call("DECR", KEYS[1])
`)

// RedisStore implements StateStore on go-redis. List appends use RPUSH,
// which Redis executes atomically, so concurrent routing-log writers are
// safe without client-side locking.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store backed by the Redis instance at addr.
func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb}
}

// NewRedisStoreFromClient wraps an existing client, for callers that
// manage connection options themselves.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string, out any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: failed to get %q: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("store: failed to decode %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetWithExpiry(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: failed to encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("store: failed to set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ListAppend(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: failed to encode list entry for %q: %w", key, err)
	}
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("store: failed to append to %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("store: failed to range %q: %w", key, err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("store: failed to expire %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ReverseIndexSet(ctx context.Context, indexKey, primaryID string) error {
	if err := s.client.Set(ctx, indexKey, primaryID, 0).Err(); err != nil {
		return fmt.Errorf("store: failed to set index %q: %w", indexKey, err)
	}
	return nil
}

func (s *RedisStore) ReverseIndexSetNX(ctx context.Context, indexKey, primaryID string) (bool, error) {
	claimed, err := s.client.SetNX(ctx, indexKey, primaryID, 0).Result()
	if err != nil {
		return false, fmt.Errorf("store: failed to claim index %q: %w", indexKey, err)
	}
	return claimed, nil
}

func (s *RedisStore) ReverseIndexGet(ctx context.Context, indexKey string) (string, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: failed to resolve index %q: %w", indexKey, err)
	}
	return id, nil
}

func (s *RedisStore) ClaimSlot(ctx context.Context, key string, max int) (bool, int, error) {
	res, err := claimSlotScript.Run(ctx, s.client, []string{key}, max).Result()
	if err != nil {
		return false, 0, fmt.Errorf("store: claim script failed for %q: %w", key, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("store: unexpected claim script result for %q: %v", key, res)
	}
	claimed, _ := vals[0].(int64)
	current, _ := vals[1].(int64)
	return claimed == 1, int(current), nil
}

func (s *RedisStore) ReleaseSlot(ctx context.Context, key string) error {
	if err := releaseSlotScript.Run(ctx, s.client, []string{key}).Err(); err != nil {
		return fmt.Errorf("store: release script failed for %q: %w", key, err)
	}
	return nil
}
