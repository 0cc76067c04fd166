package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rl"

// incrScript is the whole check: the counter and its window are created
// together, and a key that somehow lost its TTL is re-armed instead of
// locking the caller out forever.
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Policy is a quota: at most MaxPoints requests per Window. A zero MaxPoints
// disables limiting for the action.
type Policy struct {
	MaxPoints int           `koanf:"max_points"`
	Window    time.Duration `koanf:"window"`
	Message   string        `koanf:"message"`
}

// Decision describes the counter after an increment.
type Decision struct {
	Count      int64
	Remaining  int
	RetryAfter time.Duration
}

// Limiter enforces fixed-window quotas using Redis counters.
type Limiter struct {
	redis redis.UniversalClient
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient) *Limiter {
	return &Limiter{redis: redisClient}
}

// CheckAndIncrement consumes one point for caller on action. It returns a
// *LimitedError once the count exceeds p.MaxPoints and an error wrapping
// ErrUnavailable when the store cannot be reached.
func (l *Limiter) CheckAndIncrement(ctx context.Context, action, caller string, p Policy) (Decision, error) {
	if p.MaxPoints <= 0 {
		return Decision{Remaining: -1}, nil
	}
	if p.Window <= 0 {
		return Decision{}, fmt.Errorf("rate policy for %q has no window", action)
	}

	res, err := incrScript.Run(ctx, l.redis, []string{key(action, caller)}, p.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply %v", ErrUnavailable, res)
	}

	d := Decision{
		Count:      res[0],
		Remaining:  max(p.MaxPoints-int(res[0]), 0),
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}
	if d.Count > int64(p.MaxPoints) {
		return d, &LimitedError{Action: action, RetryAfter: d.RetryAfter, Message: p.Message}
	}
	return d, nil
}

// Reset drops the counter for caller on action.
func (l *Limiter) Reset(ctx context.Context, action, caller string) error {
	if err := l.redis.Del(ctx, key(action, caller)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func key(action, caller string) string {
	return keyPrefix + ":" + action + ":" + caller
}
