package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/memory"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedTeam(t *testing.T, store *memory.Store, ownerID string) string {
	t.Helper()
	now := time.Now().UTC()
	team := &domain.Team{ID: "team-" + ownerID, Name: "Acme", OwnerID: ownerID, CreatedAt: now}
	owner := &domain.Membership{TeamID: team.ID, UserID: ownerID, Role: domain.RoleOwner, Status: domain.MembershipStatusActive, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateTeamWithOwner(context.Background(), team, owner); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return team.ID
}

func TestActive(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := &domain.Subscription{Status: domain.SubscriptionStatusActive, CurrentPeriodStart: start, CurrentPeriodEnd: start.AddDate(0, 1, 0)}

	if !Active(sub, start.Add(24*time.Hour)) {
		t.Fatalf("expected active inside period")
	}
	if !Active(sub, sub.CurrentPeriodEnd) {
		t.Fatalf("expected period end to be inclusive")
	}
	if Active(sub, sub.CurrentPeriodEnd.Add(time.Second)) {
		t.Fatalf("expected inactive after period end")
	}
	sub.Status = domain.SubscriptionStatusPastDue
	if Active(sub, start.Add(time.Hour)) {
		t.Fatalf("expected past_due to be inactive")
	}
	if Active(nil, start) {
		t.Fatalf("expected missing subscription to be inactive")
	}
}

func TestCurrentPeriodWithoutSubscriptionIsCalendarMonth(t *testing.T) {
	now := time.Date(2026, 2, 14, 15, 4, 5, 0, time.UTC)
	period := CurrentPeriod(nil, now)
	if !period.Start.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", period.Start)
	}
	if !period.End.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", period.End)
	}
}

func TestCurrentPeriodRollsForwardMonthly(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	sub := &domain.Subscription{Status: domain.SubscriptionStatusActive, CurrentPeriodStart: start, CurrentPeriodEnd: start.AddDate(0, 1, 0)}

	period := CurrentPeriod(sub, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	if !period.Start.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", period.Start)
	}
	if !period.End.Equal(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", period.End)
	}

	inside := CurrentPeriod(sub, start.Add(time.Hour))
	if !inside.Start.Equal(start) {
		t.Fatalf("expected recorded period while inside it, got %s", inside.Start)
	}
}

func TestCurrentPeriodRollsForwardFixedLength(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := &domain.Subscription{CurrentPeriodStart: start, CurrentPeriodEnd: start.Add(7 * 24 * time.Hour)}

	period := CurrentPeriod(sub, start.Add(15*24*time.Hour))
	if !period.Start.Equal(start.Add(14 * 24 * time.Hour)) {
		t.Fatalf("unexpected start %s", period.Start)
	}
	if !period.Contains(start.Add(15 * 24 * time.Hour)) {
		t.Fatalf("expected rolled period to contain now")
	}
}

func TestApplySeedsPlanLimits(t *testing.T) {
	store := memory.New()
	teamID := seedTeam(t, store, "owner")
	svc := New(store, PolicyEnforce, newLogger())
	ctx := context.Background()

	now := time.Now().UTC()
	err := svc.Apply(ctx, domain.SubscriptionUpdate{
		TeamID:      teamID,
		PlanType:    "Pro",
		Status:      "active",
		PeriodStart: now.Add(-time.Hour),
		PeriodEnd:   now.Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	active, err := svc.IsActive(ctx, teamID)
	if err != nil || !active {
		t.Fatalf("expected active subscription, got %v (%v)", active, err)
	}
	limits, err := svc.LimitsFor(ctx, teamID)
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	if limits[domain.ResourceArticles] != 100 || limits[domain.ResourceSearches] != 500 {
		t.Fatalf("unexpected limits: %+v", limits)
	}
}

func TestApplyValidatesInput(t *testing.T) {
	store := memory.New()
	teamID := seedTeam(t, store, "owner")
	svc := New(store, PolicyEnforce, newLogger())
	now := time.Now().UTC()

	cases := []domain.SubscriptionUpdate{
		{TeamID: "", PlanType: "pro", Status: "active", PeriodStart: now, PeriodEnd: now.Add(time.Hour)},
		{TeamID: teamID, PlanType: "pro", Status: "trialing", PeriodStart: now, PeriodEnd: now.Add(time.Hour)},
		{TeamID: teamID, PlanType: "pro", Status: "active", PeriodStart: now, PeriodEnd: now},
		{TeamID: teamID, PlanType: " ", Status: "active", PeriodStart: now, PeriodEnd: now.Add(time.Hour)},
	}
	for i, update := range cases {
		if err := svc.Apply(context.Background(), update); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestFreezePolicyZerosEveryResource(t *testing.T) {
	store := memory.New()
	teamID := seedTeam(t, store, "owner")
	ctx := context.Background()
	now := time.Now().UTC()

	enforce := New(store, PolicyEnforce, newLogger())
	if err := enforce.Apply(ctx, domain.SubscriptionUpdate{
		TeamID: teamID, PlanType: "free", Status: domain.SubscriptionStatusPastDue,
		PeriodStart: now.Add(-time.Hour), PeriodEnd: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	max, limited, err := enforce.Limit(ctx, teamID, domain.ResourceArticles)
	if err != nil || !limited || max != 5 {
		t.Fatalf("enforce: expected configured limit 5, got %d %v %v", max, limited, err)
	}

	freeze := New(store, ParsePolicy("FREEZE"), newLogger())
	max, limited, err = freeze.Limit(ctx, teamID, "unconfigured")
	if err != nil || !limited || max != 0 {
		t.Fatalf("freeze: expected hard zero for unconfigured type, got %d %v %v", max, limited, err)
	}
	limits, err := freeze.LimitsFor(ctx, teamID)
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	for resource, value := range limits {
		if value != 0 {
			t.Fatalf("freeze: expected %s to be zero, got %d", resource, value)
		}
	}
}

func TestLimitWithoutRowIsUnlimited(t *testing.T) {
	store := memory.New()
	teamID := seedTeam(t, store, "owner")
	svc := New(store, PolicyFreeze, newLogger())
	_, limited, err := svc.Limit(context.Background(), teamID, domain.ResourceArticles)
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if limited {
		t.Fatalf("expected no limit without a subscription or limit rows")
	}
}

func TestSetLimitsOverridesCatalog(t *testing.T) {
	store := memory.New()
	teamID := seedTeam(t, store, "owner")
	svc := New(store, PolicyEnforce, newLogger())
	ctx := context.Background()

	if err := svc.SetLimits(ctx, teamID, map[string]int{" Keywords ": 5}); err != nil {
		t.Fatalf("set limits: %v", err)
	}
	max, limited, err := svc.Limit(ctx, teamID, domain.ResourceKeywords)
	if err != nil || !limited || max != 5 {
		t.Fatalf("expected keywords limit 5, got %d %v %v", max, limited, err)
	}
	if _, limited, _ := svc.Limit(ctx, teamID, domain.ResourceArticles); limited {
		t.Fatalf("expected articles to stay unlimited")
	}
}

func TestSetLimitsValidatesInput(t *testing.T) {
	store := memory.New()
	teamID := seedTeam(t, store, "owner")
	svc := New(store, PolicyEnforce, newLogger())
	ctx := context.Background()

	cases := []struct {
		teamID string
		limits map[string]int
	}{
		{teamID: " ", limits: map[string]int{domain.ResourceKeywords: 5}},
		{teamID: teamID, limits: map[string]int{domain.ResourceKeywords: -1}},
		{teamID: teamID, limits: map[string]int{"": 5}},
	}
	for i, tc := range cases {
		if err := svc.SetLimits(ctx, tc.teamID, tc.limits); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}
