package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucket is a token bucket refilled continuously at rate tokens/second.
type bucket struct {
	tokens   float64
	lastTime time.Time
}

// MemoryStore is a per-key token bucket store for a single process.
// Idle keys are swept once they have been full for a while.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
	ttl     time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemoryStore allows perMinute requests per key per minute with bursts
// up to burst. A sweeper goroutine runs until Close.
func NewMemoryStore(perMinute, burst int) *MemoryStore {
	if burst < 1 {
		burst = 1
	}
	s := &MemoryStore{
		buckets: make(map[string]*bucket),
		rate:    float64(perMinute) / 60,
		burst:   float64(burst),
		ttl:     10 * time.Minute,
		Clock:   time.Now,
		stop:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Allow consumes one token for key.
func (s *MemoryStore) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Clock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{tokens: s.burst, lastTime: now}
		s.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastTime).Seconds() * s.rate
	if b.tokens > s.burst {
		b.tokens = s.burst
	}
	b.lastTime = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0, nil
	}
	if s.rate <= 0 {
		return false, time.Minute, nil
	}
	wait := time.Duration((1 - b.tokens) / s.rate * float64(time.Second))
	return false, wait, nil
}

// Size returns the number of tracked keys.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *MemoryStore) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Clock()
	for key, b := range s.buckets {
		if now.Sub(b.lastTime) > s.ttl {
			delete(s.buckets, key)
		}
	}
}
