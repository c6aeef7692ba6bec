package window

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"screener/internal/ratelimit/models"
)

// admitScript runs the purge-count-append sequence atomically. Scores are
// unix microseconds.
//
// KEYS[1] window key
// ARGV[1] now, ARGV[2] window, ARGV[3] limit, ARGV[4] member, ARGV[5] ttl ms
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, count, oldest[2]}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, ARGV[5])
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {1, count + 1, oldest[2]}
`)

// RedisWindowStore implements WindowStore on Redis sorted sets so replicas
// share one quota per credential.
type RedisWindowStore struct {
	client redis.UniversalClient
}

// NewRedisWindowStore creates a Redis-backed window store.
func NewRedisWindowStore(client redis.UniversalClient) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Admit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (*models.Decision, error) {
	res, err := admitScript.Run(ctx, s.client, []string{key},
		now.UnixMicro(),
		window.Microseconds(),
		limit,
		uuid.NewString(),
		window.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("run admit script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("admit script returned %d values", len(res))
	}

	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	oldest, err := parseScore(res[2])
	if err != nil {
		return nil, err
	}

	d := &models.Decision{
		Allowed:      allowed == 1,
		Limit:        limit,
		CurrentUsage: int(count),
		ResetAt:      oldest.Add(window),
	}
	if d.Allowed {
		d.Remaining = limit - int(count)
	} else {
		d.RetryAfter = models.RetryAfterSeconds(oldest, window, now)
	}
	return d, nil
}

func (s *RedisWindowStore) Usage(ctx context.Context, key string, now time.Time, window time.Duration) (*models.Usage, error) {
	lower := "(" + strconv.FormatInt(now.Add(-window).UnixMicro(), 10)

	pipe := s.client.Pipeline()
	countCmd := pipe.ZCount(ctx, key, lower, "+inf")
	oldestCmd := pipe.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: lower, Max: "+inf", Count: 1})
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read window usage: %w", err)
	}

	u := &models.Usage{Count: int(countCmd.Val())}
	if zs := oldestCmd.Val(); len(zs) > 0 {
		u.Oldest = time.UnixMicro(int64(zs[0].Score))
	}
	return u, nil
}

func (s *RedisWindowStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset window: %w", err)
	}
	return nil
}

// ResetAll deletes every window key by scanning the window prefix.
func (s *RedisWindowStore) ResetAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, models.KeyPrefixWindow+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("scan windows: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete windows: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func parseScore(v any) (time.Time, error) {
	switch score := v.(type) {
	case string:
		f, err := strconv.ParseFloat(score, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse window score %q: %w", score, err)
		}
		return time.UnixMicro(int64(f)), nil
	case int64:
		return time.UnixMicro(score), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected window score type %T", v)
	}
}
