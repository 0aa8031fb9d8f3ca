// Package cache provides a Redis-backed TTL quote cache in front of the
// market data API, guarded by a circuit breaker so a sick Redis degrades to
// direct API calls instead of stalling every refresh.
package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"portfolio-riskv1/internal/model"
)

const keyPrefix = "quote:"

// QuoteCache implements model.QuoteCache on Redis.
type QuoteCache struct {
	rdb     *goredis.Client
	breaker *Breaker
}

var _ model.QuoteCache = (*QuoteCache)(nil)

// New connects to Redis and returns a QuoteCache.
func New(addr, password string) *QuoteCache {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	log.Printf("[quotecache] connected to redis at %s", addr)
	return NewWithClient(rdb)
}

// NewWithClient wraps an existing Redis client (used by tests with redismock).
func NewWithClient(rdb *goredis.Client) *QuoteCache {
	return &QuoteCache{
		rdb:     rdb,
		breaker: NewBreaker(5, 10*time.Second),
	}
}

// Breaker exposes the circuit breaker for metrics wiring.
func (c *QuoteCache) Breaker() *Breaker { return c.breaker }

// GetPrice returns a cached price. found=false on cache miss; an open breaker
// also reads as a miss so callers fall through to the API.
func (c *QuoteCache) GetPrice(ctx context.Context, ticker string) (float64, bool, error) {
	var price float64
	var found bool

	err := c.breaker.Do(func() error {
		val, err := c.rdb.Get(ctx, keyPrefix+ticker).Result()
		if err == goredis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		p, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("corrupt cache entry for %s: %w", ticker, err)
		}
		price, found = p, true
		return nil
	})
	if err == ErrBreakerOpen {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("quote cache get %s: %w", ticker, err)
	}
	return price, found, nil
}

// SetPrice stores a price with the given TTL.
func (c *QuoteCache) SetPrice(ctx context.Context, ticker string, price float64, ttl time.Duration) error {
	err := c.breaker.Do(func() error {
		return c.rdb.Set(ctx, keyPrefix+ticker, strconv.FormatFloat(price, 'f', -1, 64), ttl).Err()
	})
	if err == ErrBreakerOpen {
		return nil // cache writes are best-effort while Redis is down
	}
	if err != nil {
		return fmt.Errorf("quote cache set %s: %w", ticker, err)
	}
	return nil
}

// Ping checks connectivity (used by the health prober).
func (c *QuoteCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for health checks.
func (c *QuoteCache) Client() *goredis.Client { return c.rdb }

// Close releases the Redis connection.
func (c *QuoteCache) Close() error {
	return c.rdb.Close()
}
