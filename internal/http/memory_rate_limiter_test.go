package httpx

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryRateLimiterBurstThenRefill(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	rl := newMemoryRateLimiter(clock.Now)
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		decision := rl.Allow("login|ip:10.0.0.1", 3, time.Minute)
		if !decision.allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if decision.count != i {
			t.Fatalf("request %d: expected count %d, got %d", i, i, decision.count)
		}
	}
	denied := rl.Allow("login|ip:10.0.0.1", 3, time.Minute)
	if denied.allowed {
		t.Fatalf("expected fourth request to be limited")
	}
	if wait := denied.windowEnd.Sub(clock.Now()); wait <= 0 || wait > 20*time.Second {
		t.Fatalf("expected reset within one token interval, got %s", wait)
	}

	if other := rl.Allow("login|ip:10.0.0.2", 3, time.Minute); !other.allowed {
		t.Fatalf("expected separate key to have its own bucket")
	}

	clock.Advance(21 * time.Second)
	if !rl.Allow("login|ip:10.0.0.1", 3, time.Minute).allowed {
		t.Fatalf("expected one token after refill interval")
	}
	if rl.Allow("login|ip:10.0.0.1", 3, time.Minute).allowed {
		t.Fatalf("expected bucket to be empty again")
	}
}

func TestMemoryRateLimiterEvictsIdleBuckets(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	rl := newMemoryRateLimiter(clock.Now)

	rl.Allow("a", 1, time.Minute)
	clock.Advance(bucketIdleTTL + time.Second)
	rl.Allow("b", 1, time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.buckets["a"]; ok {
		t.Fatalf("expected idle bucket to be evicted")
	}
	if _, ok := rl.buckets["b"]; !ok {
		t.Fatalf("expected active bucket to remain")
	}
}

func TestMemoryRateLimiterZeroLimitAllows(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()
	if !rl.Allow("k", 0, time.Minute).allowed {
		t.Fatalf("expected zero limit to disable limiting")
	}
}
