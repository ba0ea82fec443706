package httpx

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const bucketIdleTTL = 10 * time.Minute

// bucket is a token bucket refilled at limit tokens per window.
type bucket struct {
	limiter  *rate.Limiter
	limit    int
	window   time.Duration
	lastSeen time.Time
}

type memoryRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter returns a process-local token-bucket limiter. Each key may burst
// up to limit requests and regains limit tokens per window. Idle buckets are evicted
// on later calls.
func NewMemoryRateLimiter() RateLimiter {
	return newMemoryRateLimiter(time.Now)
}

func newMemoryRateLimiter(now func() time.Time) *memoryRateLimiter {
	return &memoryRateLimiter{buckets: make(map[string]*bucket), now: now, lastSweep: now()}
}

func (rl *memoryRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.evictIdle(now)

	b := rl.bucketFor(key, limit, window, now)
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	used := limit - int(math.Floor(tokens))
	if used < 0 {
		used = 0
	}
	return rateDecision{allowed: allowed, count: used, windowEnd: now.Add(refillDelay(tokens, limit, window))}
}

func (rl *memoryRateLimiter) bucketFor(key string, limit int, window time.Duration, now time.Time) *bucket {
	b, ok := rl.buckets[key]
	if ok && b.limit == limit && b.window == window {
		return b
	}
	every := rate.Every(window / time.Duration(limit))
	if ok {
		b.limiter.SetLimitAt(now, every)
		b.limiter.SetBurstAt(now, limit)
		b.limit, b.window = limit, window
		return b
	}
	b = &bucket{limiter: rate.NewLimiter(every, limit), limit: limit, window: window}
	rl.buckets[key] = b
	return b
}

// refillDelay is how long until the bucket holds a whole token again.
func refillDelay(tokens float64, limit int, window time.Duration) time.Duration {
	if tokens >= 1 {
		return 0
	}
	perToken := window / time.Duration(limit)
	return time.Duration((1 - tokens) * float64(perToken))
}

func (rl *memoryRateLimiter) evictIdle(now time.Time) {
	if now.Sub(rl.lastSweep) < bucketIdleTTL {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= bucketIdleTTL {
			delete(rl.buckets, key)
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buckets = make(map[string]*bucket)
}
