package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
// ARGV[2] = limit
// Returns: {count, pttl, allowed}
// A rejected request does not touch the counter.
var consumeScript = goredis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local ttl = redis.call('PTTL', KEYS[1])
if count == 0 or ttl < 0 then
    redis.call('SET', KEYS[1], 1, 'PX', ARGV[1])
    return {1, tonumber(ARGV[1]), 1}
end
if count >= tonumber(ARGV[2]) then
    return {count, ttl, 0}
end
count = redis.call('INCR', KEYS[1])
return {count, ttl, 1}
`)

// RedisStore shares windows between instances through Redis.
type RedisStore struct {
	client    goredis.Scripter
	keyPrefix string
}

func NewRedisStore(client goredis.Scripter, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "rl:contact:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Record, bool, error) {
	result, err := consumeScript.Run(ctx, s.client, []string{s.keyPrefix + key}, window.Milliseconds(), limit).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 3 {
		return Record{}, false, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)
	allowed, _ := arr[2].(int64)

	return Record{
		Count:   int(count),
		ResetAt: now.Add(time.Duration(ttl) * time.Millisecond),
	}, allowed == 1, nil
}
