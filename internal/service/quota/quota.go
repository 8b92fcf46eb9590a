// Package quota enforces the per-caller daily AI request allowance.
//
// State lives in Redis so the allowance survives process restarts, unlike the
// admission gate whose flood state is deliberately in-memory. When Redis is
// unreachable the limiter fails open: an outage must not take consultations
// down with it.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a caller may issue one more AI request today.
type Limiter interface {
	Allow(ctx context.Context, callerID int64) (Decision, error)
}

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed bool
	Used    int
	Limit   int
	ResetIn time.Duration
}

const window = 24 * time.Hour

// Fixed-window counter: first request of the window sets the TTL, later
// requests ride on it. Runs atomically server-side.
const luaDailyQuotaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current >= limit then
  local remaining = redis.call("TTL", key)
  if remaining < 0 then
    remaining = 0
  end
  return { 0, current, remaining }
end

current = redis.call("INCR", key)
if current == 1 then
  redis.call("EXPIRE", key, ttl)
end
local remaining = redis.call("TTL", key)
if remaining < 0 then
  remaining = ttl
end
return { 1, current, remaining }
`

// RedisLimiter implements Limiter on top of a Redis Lua script.
type RedisLimiter struct {
	redis  *redis.Client
	limit  int
	script *redis.Script
}

// NewRedisLimiter constructs a limiter. Returns nil when rdb is nil so a
// deployment without Redis simply has no quota.
func NewRedisLimiter(rdb *redis.Client, dailyLimit int) *RedisLimiter {
	if rdb == nil || dailyLimit <= 0 {
		return nil
	}
	return &RedisLimiter{
		redis:  rdb,
		limit:  dailyLimit,
		script: redis.NewScript(luaDailyQuotaScript),
	}
}

// Allow consumes one unit of the caller's daily allowance if any remains.
func (l *RedisLimiter) Allow(ctx context.Context, callerID int64) (Decision, error) {
	if l == nil || l.redis == nil {
		return Decision{Allowed: true}, nil
	}

	key := fmt.Sprintf("quota:ai:%d", callerID)
	res, err := l.script.Run(ctx, l.redis, []string{key}, l.limit, int(window.Seconds())).Result()
	if err != nil {
		slog.Error("quota script error, failing open",
			slog.Int64("caller_id", callerID),
			slog.Any("error", err))
		return Decision{Allowed: true, Limit: l.limit}, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 3 {
		slog.Error("quota script returned unexpected result",
			slog.Int64("caller_id", callerID),
			slog.Any("result", res))
		return Decision{Allowed: true, Limit: l.limit}, nil
	}

	allowed := toInt64(vals[0]) == 1
	used := int(toInt64(vals[1]))
	resetIn := time.Duration(toInt64(vals[2])) * time.Second

	return Decision{
		Allowed: allowed,
		Used:    used,
		Limit:   l.limit,
		ResetIn: resetIn,
	}, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
