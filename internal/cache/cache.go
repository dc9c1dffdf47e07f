// Package cache wraps the TTL-capable key-value store the dedup engine runs
// against. Individual key operations are atomic on the server side; nothing
// here provides cross-key transactions.
package cache

import (
	"context"
	"time"
)

// Cache is the narrow store contract consumed by the dedup engine and the
// recency tracker. Implementations must keep each operation bounded by a
// timeout; callers decide fail-open vs fail-closed policy.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	ListPush(ctx context.Context, key, value string) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ListTrim(ctx context.Context, key string, start, stop int64) error
	Delete(ctx context.Context, key string) error
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
