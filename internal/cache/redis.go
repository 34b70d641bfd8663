package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tier is a shared, out-of-process cache tier.
//
// Get returns the stored value with its remaining time to live. A missing
// key is reported as found=false with a nil error.
type Tier interface {
	Get(ctx context.Context, key string) (value []byte, ttl time.Duration, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RedisTier stores entries in Redis with SET ... EX.
type RedisTier struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisTier connects to the Redis server at url (redis://host:port/db).
//
// The connection is established lazily: an unreachable server does not fail
// construction, it makes every operation fail until it comes back.
func NewRedisTier(url string, timeout time.Duration) (*RedisTier, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewRedisTierFromClient(redis.NewClient(opt), timeout), nil
}

// NewRedisTierFromClient wraps an existing client. timeout bounds every
// operation; zero means 500ms.
func NewRedisTierFromClient(client *redis.Client, timeout time.Duration) *RedisTier {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &RedisTier{client: client, timeout: timeout}
}

// Ping checks connectivity.
func (r *RedisTier) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisTier) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		getCmd *redis.StringCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		getCmd = p.Get(ctx, key)
		ttlCmd = p.PTTL(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	value, err := getCmd.Bytes()
	if err != nil {
		return nil, 0, false, err
	}
	// PTTL is negative for keys without expiry.
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return value, ttl, true, nil
}

func (r *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisTier) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Del(ctx, key).Err()
}

func (r *RedisTier) Close() error {
	return r.client.Close()
}
