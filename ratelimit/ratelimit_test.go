package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/contactform/submission"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestMemoryStore_BurstThenRefill(t *testing.T) {
	clock := newClock()
	s := NewMemoryStore(6, 3) // one token every 10s
	defer s.Close()
	s.Clock = clock.Now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := s.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst", i)
	}

	ok, retry, err := s.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 10*time.Second, retry, float64(time.Millisecond))

	// other clients have their own bucket
	ok, _, _ = s.Allow(ctx, "198.51.100.1")
	assert.True(t, ok)

	clock.Advance(10 * time.Second)
	ok, _, _ = s.Allow(ctx, "203.0.113.7")
	assert.True(t, ok)
}

func TestMemoryStore_EvictIdle(t *testing.T) {
	clock := newClock()
	s := NewMemoryStore(5, 5)
	defer s.Close()
	s.Clock = clock.Now

	_, _, _ = s.Allow(context.Background(), "a")
	_, _, _ = s.Allow(context.Background(), "b")
	require.Equal(t, 2, s.Size())

	clock.Advance(time.Hour)
	s.evictIdle()
	assert.Equal(t, 0, s.Size())
}

func TestRedisStore_FixedWindow(t *testing.T) {
	mr, client := setupTestRedis(t)
	clock := newClock()
	clock.Advance(15 * time.Second)
	s := NewRedisStore(client, 2)
	s.Clock = clock.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := s.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retry, err := s.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, retry)

	key := DefaultKeyPrefix + "203.0.113.7:" + "1772366400"
	assert.True(t, mr.Exists(key), "keys: %v", mr.Keys())
	assert.Greater(t, mr.TTL(key), time.Duration(0))

	// next window starts fresh
	clock.Advance(time.Minute)
	ok, _, err = s.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStore(client, 5)
	mr.Close()

	_, _, err := s.Allow(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}

type stubStore struct {
	allowed bool
	retry   time.Duration
	err     error
	calls   atomic.Int32
}

func (s *stubStore) Allow(context.Context, string) (bool, time.Duration, error) {
	s.calls.Add(1)
	return s.allowed, s.retry, s.err
}

func serve(t *testing.T, store Store, cfg Config, method string) *httptest.ResponseRecorder {
	t.Helper()
	h := Middleware(store, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/contact", nil)
	req.RemoteAddr = "203.0.113.7:51000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_Limited(t *testing.T) {
	var limitedCalls int
	store := &stubStore{allowed: false, retry: 1500 * time.Millisecond}
	rec := serve(t, store, Config{OnLimited: func(*http.Request) { limitedCalls++ }}, http.MethodPost)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limitedCalls)

	var resp submission.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, LimitedMessage, resp.Message)
}

func TestMiddleware_OnlyLimitsPost(t *testing.T) {
	store := &stubStore{allowed: false}
	rec := serve(t, store, Config{}, http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, store.calls.Load())
}

func TestMiddleware_StoreErrorFailsOpen(t *testing.T) {
	store := &stubStore{err: errors.New("redis down")}
	rec := serve(t, store, Config{}, http.MethodPost)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_WithMemoryStore(t *testing.T) {
	s := NewMemoryStore(1, 1)
	defer s.Close()

	assert.Equal(t, http.StatusOK, serve(t, s, Config{}, http.MethodPost).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(t, s, Config{}, http.MethodPost).Code)
}

func TestIPKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", IPKeyFunc(req))

	req.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", IPKeyFunc(req))
}
