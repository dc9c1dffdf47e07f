package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	store := NewRedisFromClient(client, 2*time.Second)
	t.Cleanup(func() { _ = store.Close() })

	return store, m
}

func TestGetSetRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestCache(t)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}

	if err := store.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, found, err := store.Get(ctx, "k")
	if err != nil || !found || value != "v" {
		t.Fatalf("expected v, got %q found=%v err=%v", value, found, err)
	}

	ok, err := store.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected key to exist, got %v err=%v", ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := store.Exists(ctx, "k"); ok {
		t.Fatalf("expected key gone after delete")
	}
}

func TestSetExpiresWithTTL(t *testing.T) {
	t.Parallel()

	store, m := newTestCache(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	m.FastForward(2 * time.Minute)

	if _, found, err := store.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected key expired, got found=%v err=%v", found, err)
	}
}

func TestSetOperations(t *testing.T) {
	t.Parallel()

	store, _ := newTestCache(t)
	ctx := context.Background()

	for _, member := range []string{"a", "b", "b", "c"} {
		if err := store.SetAdd(ctx, "s", member); err != nil {
			t.Fatalf("sadd %q: %v", member, err)
		}
	}

	members, err := store.SetMembers(ctx, "s")
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	sort.Strings(members)
	if len(members) != 3 || members[0] != "a" || members[2] != "c" {
		t.Fatalf("unexpected members %v", members)
	}

	if err := store.SetRemove(ctx, "s", "b"); err != nil {
		t.Fatalf("srem: %v", err)
	}
	members, _ = store.SetMembers(ctx, "s")
	if len(members) != 2 {
		t.Fatalf("expected 2 members after removal, got %v", members)
	}
}

func TestListOperations(t *testing.T) {
	t.Parallel()

	store, _ := newTestCache(t)
	ctx := context.Background()

	for _, value := range []string{"one", "two", "three"} {
		if err := store.ListPush(ctx, "l", value); err != nil {
			t.Fatalf("lpush %q: %v", value, err)
		}
	}

	values, err := store.ListRange(ctx, "l", 0, -1)
	if err != nil {
		t.Fatalf("lrange: %v", err)
	}
	if len(values) != 3 || values[0] != "three" || values[2] != "one" {
		t.Fatalf("expected newest-first order, got %v", values)
	}

	if err := store.ListTrim(ctx, "l", 0, 1); err != nil {
		t.Fatalf("ltrim: %v", err)
	}
	values, _ = store.ListRange(ctx, "l", 0, -1)
	if len(values) != 2 || values[0] != "three" {
		t.Fatalf("expected trim to keep the newest two, got %v", values)
	}
}

func TestKeysMatching(t *testing.T) {
	t.Parallel()

	store, _ := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"source:alpha", "source:beta", "content:abc"} {
		if err := store.Set(ctx, key, "x", time.Hour); err != nil {
			t.Fatalf("set %q: %v", key, err)
		}
	}

	keys, err := store.KeysMatching(ctx, "source:*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "source:alpha" || keys[1] != "source:beta" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestExpireRefreshesTTL(t *testing.T) {
	t.Parallel()

	store, m := newTestCache(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Expire(ctx, "k", time.Hour); err != nil {
		t.Fatalf("expire: %v", err)
	}

	m.FastForward(30 * time.Minute)
	if _, found, _ := store.Get(ctx, "k"); !found {
		t.Fatalf("expected key alive after TTL refresh")
	}
}
