package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"horse.fit/crier/internal/config"
)

const (
	minRetryBackoff = 50 * time.Millisecond
	maxRetryBackoff = 2 * time.Second
)

// Redis implements Cache on top of go-redis. Retries with exponential backoff
// are delegated to the client (50ms per attempt, capped at 2s); every call is
// additionally bounded by the configured per-operation timeout.
type Redis struct {
	client    *redis.Client
	opTimeout time.Duration
}

func NewRedis(cfg *config.Config) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opt.MaxRetries = cfg.RedisMaxRetries
	opt.MinRetryBackoff = minRetryBackoff
	opt.MaxRetryBackoff = maxRetryBackoff
	opt.DialTimeout = cfg.RedisDialTimeout()
	opt.ReadTimeout = cfg.RedisOpTimeout()
	opt.WriteTimeout = cfg.RedisOpTimeout()

	return &Redis{
		client:    redis.NewClient(opt),
		opTimeout: cfg.RedisOpTimeout(),
	}, nil
}

// NewRedisFromClient wraps an existing client; used by tests pointing at an
// isolated instance.
func NewRedisFromClient(client *redis.Client, opTimeout time.Duration) *Redis {
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &Redis{client: client, opTimeout: opTimeout}
}

func (r *Redis) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) SetAdd(ctx context.Context, key, member string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", key, err)
	}
	return nil
}

func (r *Redis) SetRemove(ctx context.Context, key, member string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("srem %s: %w", key, err)
	}
	return nil
}

func (r *Redis) SetMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return members, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

func (r *Redis) ListPush(ctx context.Context, key, value string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

func (r *Redis) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	values, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	return values, nil
}

func (r *Redis) ListTrim(ctx context.Context, key string, start, stop int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.LTrim(ctx, key, start, stop).Err(); err != nil {
		return fmt.Errorf("ltrim %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Redis) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return keys, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
