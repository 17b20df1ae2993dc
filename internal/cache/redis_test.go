package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "ledger:test:", ttl)
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	return c, mr
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, mr := newTestRedis(t, time.Minute)

	if _, ok := c.Get("schedule"); ok {
		t.Fatal("Get(schedule) on empty cache should miss")
	}

	c.Set("schedule", []byte(`{"months":[]}`))
	got, ok := c.Get("schedule")
	if !ok || string(got) != `{"months":[]}` {
		t.Fatalf("Get(schedule) = %q, %v, want stored body", got, ok)
	}
	if !mr.Exists("ledger:test:schedule") {
		t.Error("key not stored under prefix")
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	c.Delete("schedule")
	if _, ok := c.Get("schedule"); ok {
		t.Error("Get(schedule) after Delete should miss")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := newTestRedis(t, 30*time.Second)

	c.Set("series", []byte("body"))
	if ttl := mr.TTL("ledger:test:series"); ttl != 30*time.Second {
		t.Errorf("TTL = %v, want 30s", ttl)
	}

	mr.FastForward(31 * time.Second)
	if _, ok := c.Get("series"); ok {
		t.Error("Get(series) after TTL should miss")
	}
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := newTestRedis(t, time.Minute)
	c.Set("schedule", []byte("body"))

	mr.Close()
	if _, ok := c.Get("schedule"); ok {
		t.Error("Get() with server down should miss")
	}
	if c.Size() != 0 {
		t.Errorf("Size() with server down = %d, want 0", c.Size())
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() with server down should fail")
	}
}
