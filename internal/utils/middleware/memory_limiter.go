package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter is a process-local token bucket limiter used when Redis
// is not configured. Limits are per process, not per deployment.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	lastGC  time.Time
	nowFunc func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var _ RateLimiter = (*MemoryRateLimiter)(nil)

// NewMemoryRateLimiter creates an in-memory limiter. Buckets idle for longer
// than idleTTL are discarded.
func NewMemoryRateLimiter(idleTTL time.Duration) *MemoryRateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &MemoryRateLimiter{
		buckets: make(map[string]*bucket),
		idleTTL: idleTTL,
		nowFunc: time.Now,
	}
}

// Allow reports whether a request for key may proceed.
func (l *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	return l.get(key, limit, window, now).AllowN(now, 1), nil
}

// GetRemaining returns the number of requests key may still make right now.
func (l *MemoryRateLimiter) GetRemaining(_ context.Context, key string, limit int, window time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	remaining := int(l.get(key, limit, window, now).TokensAt(now))
	return max(remaining, 0), nil
}

func (l *MemoryRateLimiter) get(key string, limit int, window time.Duration, now time.Time) *rate.Limiter {
	l.gc(now)

	b, ok := l.buckets[key]
	if !ok {
		every := rate.Every(window / time.Duration(max(limit, 1)))
		b = &bucket{limiter: rate.NewLimiter(every, limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (l *MemoryRateLimiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < l.idleTTL {
		return
	}
	l.lastGC = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}
