package usage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/memory"
)

// stubLimits is a fixed subscription view with a movable period.
type stubLimits struct {
	mu     sync.Mutex
	limits map[string]int
	period domain.Period
}

func (s *stubLimits) Limit(_ context.Context, _ string, resourceType string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max, ok := s.limits[resourceType]
	return max, ok, nil
}

func (s *stubLimits) LimitsFor(_ context.Context, _ string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.limits))
	for k, v := range s.limits {
		out[k] = v
	}
	return out, nil
}

func (s *stubLimits) Period(_ context.Context, _ string) (domain.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period, nil
}

func (s *stubLimits) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = domain.Period{Start: s.period.End, End: s.period.End.AddDate(0, 1, 0)}
}

func newStubLimits(limits map[string]int) *stubLimits {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return &stubLimits{limits: limits, period: domain.Period{Start: start, End: start.AddDate(0, 1, 0)}}
}

func newMeter(limits Limits) Meter {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(memory.New(), limits, log, NewMetrics(prometheus.NewRegistry()))
}

func TestQuotaOfFiveRejectsSixthArticle(t *testing.T) {
	meter := newMeter(newStubLimits(map[string]int{domain.ResourceArticles: 5}))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		consumption, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 1)
		if err != nil {
			t.Fatalf("article %d: %v", i, err)
		}
		if consumption.Used != i {
			t.Fatalf("article %d: expected used %d, got %d", i, i, consumption.Used)
		}
	}
	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 1); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	left, err := meter.Remaining(ctx, "team-1", domain.ResourceArticles)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if left != 0 {
		t.Fatalf("expected 0 remaining, got %d", left)
	}
}

func TestRejectedConsumptionRecordsNothing(t *testing.T) {
	meter := newMeter(newStubLimits(map[string]int{domain.ResourceKeywords: 10}))
	ctx := context.Background()

	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceKeywords, 8); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceKeywords, 3); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	left, err := meter.Remaining(ctx, "team-1", domain.ResourceKeywords)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if left != 2 {
		t.Fatalf("expected 2 remaining after rejected attempt, got %d", left)
	}
}

func TestOversizedAmountCannotWrapLimit(t *testing.T) {
	meter := newMeter(newStubLimits(map[string]int{domain.ResourceArticles: 5}))
	ctx := context.Background()

	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 1); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, MaxAmount); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, math.MaxInt); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for oversized amount, got %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 1000); !errors.Is(err, domain.ErrQuotaExceeded) {
			t.Fatalf("attempt %d: expected ErrQuotaExceeded, got %v", i, err)
		}
	}
	left, err := meter.Remaining(ctx, "team-1", domain.ResourceArticles)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if left != 4 {
		t.Fatalf("expected 4 remaining, got %d", left)
	}
}

func TestMemoryStoreGuardDoesNotOverflow(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	key := domain.UsageKey{
		TeamID:       "team-1",
		ResourceType: domain.ResourceArticles,
		Period:       domain.Period{Start: start, End: start.AddDate(0, 1, 0)},
	}

	if _, err := store.ConsumeUsage(ctx, key, 1, 5, true); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := store.ConsumeUsage(ctx, key, math.MaxInt, 5, true); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	used, err := store.GetUsage(ctx, key)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if used != 1 {
		t.Fatalf("expected 1 recorded, got %d", used)
	}
}

func TestUnlimitedResourceRejectsOversizedAmount(t *testing.T) {
	meter := newMeter(newStubLimits(nil))
	if _, err := meter.CheckAndRecord(context.Background(), "team-1", domain.ResourceSearches, MaxAmount+1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestConcurrentConsumptionNeverExceedsLimit(t *testing.T) {
	const (
		limit    = 7
		attempts = 40
	)
	meter := newMeter(newStubLimits(map[string]int{domain.ResourceArticles: limit}))
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 1)
			if err != nil && !errors.Is(err, domain.ErrQuotaExceeded) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != limit {
		t.Fatalf("expected exactly %d accepted, got %d", limit, accepted)
	}
	_, summary, err := meter.Summary(ctx, "team-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, entry := range summary {
		if entry.ResourceType == domain.ResourceArticles && entry.Used != limit {
			t.Fatalf("expected recorded usage %d, got %d", limit, entry.Used)
		}
	}
}

func TestUnlimitedResourceIsStillRecorded(t *testing.T) {
	meter := newMeter(newStubLimits(nil))
	ctx := context.Background()

	consumption, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceSearches, 3)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumption.Remaining() != Unlimited {
		t.Fatalf("expected unlimited remaining, got %d", consumption.Remaining())
	}
	left, err := meter.Remaining(ctx, "team-1", domain.ResourceSearches)
	if err != nil || left != Unlimited {
		t.Fatalf("expected Unlimited, got %d (%v)", left, err)
	}
	_, summary, err := meter.Summary(ctx, "team-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var found bool
	for _, entry := range summary {
		if entry.ResourceType == domain.ResourceSearches {
			found = true
			if entry.Used != 3 || entry.Limited {
				t.Fatalf("unexpected summary entry: %+v", entry)
			}
		}
	}
	if !found {
		t.Fatalf("expected searches in summary: %+v", summary)
	}
}

func TestPeriodRolloverResetsUsage(t *testing.T) {
	limits := newStubLimits(map[string]int{domain.ResourceArticles: 2})
	meter := newMeter(limits)
	ctx := context.Background()

	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 2); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 1); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	limits.advance()

	consumption, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 1)
	if err != nil {
		t.Fatalf("consume after rollover: %v", err)
	}
	if consumption.Used != 1 {
		t.Fatalf("expected fresh period usage 1, got %d", consumption.Used)
	}
}

func TestCheckAndRecordValidatesInput(t *testing.T) {
	meter := newMeter(newStubLimits(nil))
	ctx := context.Background()
	if _, err := meter.CheckAndRecord(ctx, "team-1", domain.ResourceArticles, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := meter.CheckAndRecord(ctx, "team-1", " ", 1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTeamsAreMeteredIndependently(t *testing.T) {
	meter := newMeter(newStubLimits(map[string]int{domain.ResourceArticles: 1}))
	ctx := context.Background()
	if _, err := meter.CheckAndRecord(ctx, "team-a", domain.ResourceArticles, 1); err != nil {
		t.Fatalf("team-a: %v", err)
	}
	if _, err := meter.CheckAndRecord(ctx, "team-b", domain.ResourceArticles, 1); err != nil {
		t.Fatalf("team-b should have its own quota: %v", err)
	}
}
