package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Limiter 测试
// =============================================================================

func newTestLimiter(limit int, store Store, now time.Time) *Limiter {
	l := New(Config{Limit: limit, Window: time.Minute}, store, zap.NewNop())
	l.now = func() time.Time { return now }
	return l
}

func TestLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	l := newTestLimiter(3, NewMemoryStore(), now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC), d.ResetAt)

	// 其他客户端不受影响
	d, err = l.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// 窗口滚动后恢复
	l.now = func() time.Time { return now.Add(time.Minute) }
	d, err = l.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiter_GlobalScope(t *testing.T) {
	l := New(Config{Limit: 2, Window: time.Minute, Scope: ScopeGlobal}, NewMemoryStore(), nil)
	ctx := context.Background()

	d1, _ := l.Allow(ctx, "a")
	d2, _ := l.Allow(ctx, "b")
	d3, _ := l.Allow(ctx, "c")
	assert.True(t, d1.Allowed)
	assert.True(t, d2.Allowed)
	assert.False(t, d3.Allowed)
}

func TestLimiter_Defaults(t *testing.T) {
	l := New(Config{}, NewMemoryStore(), nil)
	assert.Equal(t, 20, l.Config().Limit)
	assert.Equal(t, time.Minute, l.Config().Window)
	assert.Equal(t, ScopeClient, l.Config().Scope)
}

type brokenStore struct{}

func (brokenStore) Incr(context.Context, string, time.Time, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestLimiter_FailsOpen(t *testing.T) {
	l := New(Config{Limit: 1}, brokenStore{}, nil)
	for i := 0; i < 5; i++ {
		d, err := l.Allow(context.Background(), "x")
		assert.Error(t, err)
		assert.True(t, d.Allowed)
	}
}

func TestLimiter_ConcurrentBurst(t *testing.T) {
	l := New(Config{Limit: 20, Window: time.Hour}, NewMemoryStore(), nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := l.Allow(context.Background(), "burst")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, allowed)
}

func TestDecision_SetHeaders(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	d := Decision{Allowed: false, Limit: 20, Remaining: 0, ResetAt: now.Add(30 * time.Second)}

	h := http.Header{}
	d.SetHeaders(h, now)
	assert.Equal(t, "20", h.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", h.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", h.Get("Retry-After"))

	h = http.Header{}
	d.Allowed = true
	d.SetHeaders(h, now)
	assert.Empty(t, h.Get("Retry-After"))
}

// =============================================================================
// 🧪 MemoryStore 测试
// =============================================================================

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _ = s.Incr(ctx, "a", start, time.Minute)
	_, _ = s.Incr(ctx, "b", start.Add(time.Minute), time.Minute)
	require.Equal(t, 2, s.Len())

	assert.Equal(t, 1, s.sweep(start.Add(time.Minute)))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_RunStopsOnCancel(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

// =============================================================================
// 🧪 RedisStore 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client)
}

func TestRedisStore_IncrAndExpire(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := store.Incr(ctx, "10.0.0.1", start, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr(ctx, "10.0.0.1", start, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	key := redisKey("10.0.0.1", start)
	assert.Equal(t, "actiongate:rl:10.0.0.1:1767225600000", key)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists(key))
}

func TestRedisStore_TTLRefreshKeepsWindowsApart(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key := redisKey("10.0.0.2", start)

	_, err := store.Incr(ctx, "10.0.0.2", start, time.Minute)
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)

	n, err := store.Incr(ctx, "10.0.0.2", start, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Minute, mr.TTL(key))

	// 下一个窗口使用新 key，计数从 1 开始
	n, err = store.Incr(ctx, "10.0.0.2", start.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStore_WithLimiter(t *testing.T) {
	_, store := setupTestRedis(t)
	now := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	l := newTestLimiter(2, store, now)

	ctx := context.Background()
	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "k")
	assert.False(t, d.Allowed)
}

func TestRedisStore_FailsOpenWhenDown(t *testing.T) {
	mr, store := setupTestRedis(t)
	mr.Close()

	l := New(Config{Limit: 1}, store, nil)
	d, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := OpenRedis(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	_, err = OpenRedis(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
