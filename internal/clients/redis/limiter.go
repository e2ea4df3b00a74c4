package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

// Limiter is a fixed-window request counter backed by redis. Keys expire with
// the window so idle users cost nothing.
type Limiter interface {
	// Allow increments the counter for key and reports whether the caller is
	// still inside the window budget. The returned duration is how long until
	// the window resets; meaningful only when allow is false.
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
	Close() error
}

type limiter struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewLimiter(log *logger.Logger) (Limiter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	limit := 30
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_PER_MINUTE")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	window := time.Minute
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			window = time.Duration(parsed) * time.Second
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &limiter{
		log:    log.With("service", "RedisLimiter"),
		rdb:    rdb,
		prefix: "ratelimit",
		limit:  limit,
		window: window,
	}, nil
}

func (l *limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil || l.rdb == nil {
		return false, 0, fmt.Errorf("redis limiter not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, 0, fmt.Errorf("missing rate limit key")
	}

	window := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, window)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis rate limit: %w", err)
	}

	count := incr.Val()
	if count <= int64(l.limit) {
		return true, 0, nil
	}

	reset := time.Duration((window+1)*int64(l.window.Seconds())-time.Now().Unix()) * time.Second
	if reset < time.Second {
		reset = time.Second
	}
	return false, reset, nil
}

func (l *limiter) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
