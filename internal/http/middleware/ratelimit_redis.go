package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/crossplay/backend/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter wires a shared Redis client into the rate limiter.
// With no addr, or when the ping fails, the limiter stays on its in-process
// fallback so a Redis outage never takes the API down.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis rate limiter unavailable, using in-memory fallback", "error", err)
		return
	}
	redisClient = client
}

// redisHit counts one request in a Redis fixed window. ok is false when
// Redis is not in play and the caller should use the in-process counter.
// key format: rl:<window_seconds>:<identifier>
func redisHit(ctx context.Context, ident string, max int, dur time.Duration) (remaining int, reset time.Time, ok bool) {
	if redisClient == nil {
		return 0, time.Time{}, false
	}

	key := "rl:" + strconv.FormatInt(int64(dur.Seconds()), 10) + ":" + ident
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, false
	}
	if val == 1 {
		redisClient.Expire(ctx, key, dur)
	}

	ttl, err := redisClient.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = dur
	}
	return max - int(val), time.Now().Add(ttl), true
}
