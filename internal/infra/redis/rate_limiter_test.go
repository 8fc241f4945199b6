//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"
)

type memRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration
}

func newMemRedis() *memRedis {
	return &memRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *memRedis) Ping(ctx context.Context) error { return nil }

func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memRedis) Expire(ctx context.Context, key string, d time.Duration) error {
	m.expires[key] = d
	return nil
}

func (m *memRedis) Close() error { return nil }

var _ RedisClient = (*memRedis)(nil)

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	cli := newMemRedis()
	rl := NewRateLimiter(cli)
	ctx := context.Background()
	key := SenderKey("whatsapp:+1555")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("request %d blocked under limit", i+1)
		}
	}
	ok, _ := rl.Allow(ctx, key, 3, time.Minute)
	if ok {
		t.Error("request above limit allowed")
	}
}

func TestRateLimiter_SetsWindowOnFirstHit(t *testing.T) {
	cli := newMemRedis()
	rl := NewRateLimiter(cli)
	key := SenderKey("u")

	_, _ = rl.Allow(context.Background(), key, 10, 30*time.Second)
	if cli.expires[key] != 30*time.Second {
		t.Errorf("expire = %v, want 30s", cli.expires[key])
	}
}
