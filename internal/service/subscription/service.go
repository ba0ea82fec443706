// Package subscription exposes the read-mostly billing state of a team.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

// InactivePolicy decides what happens to limits while a subscription is not active.
type InactivePolicy string

const (
	// PolicyEnforce keeps configured limits regardless of status.
	PolicyEnforce InactivePolicy = "enforce"
	// PolicyFreeze hard-zeros every resource type while past_due or canceled.
	PolicyFreeze InactivePolicy = "freeze"
)

// ParsePolicy maps a config value to a policy, defaulting to PolicyEnforce.
func ParsePolicy(value string) InactivePolicy {
	if InactivePolicy(strings.ToLower(strings.TrimSpace(value))) == PolicyFreeze {
		return PolicyFreeze
	}
	return PolicyEnforce
}

// DefaultPlans maps plan types to the limits seeded when the billing collaborator
// moves a team onto that plan.
var DefaultPlans = map[string]map[string]int{
	"free": {
		domain.ResourceArticles: 5,
		domain.ResourceKeywords: 50,
		domain.ResourceSearches: 20,
	},
	"pro": {
		domain.ResourceArticles: 100,
		domain.ResourceKeywords: 1000,
		domain.ResourceSearches: 500,
	},
	"agency": {
		domain.ResourceArticles: 1000,
		domain.ResourceKeywords: 10000,
		domain.ResourceSearches: 5000,
	},
}

var (
	errMissingTeamID   = fmt.Errorf("%w: team id is required", domain.ErrInvalidArgument)
	errInvalidStatus   = fmt.Errorf("%w: unknown subscription status", domain.ErrInvalidArgument)
	errInvalidPeriod   = fmt.Errorf("%w: period end must be after period start", domain.ErrInvalidArgument)
	errMissingPlanType = fmt.Errorf("%w: plan type is required", domain.ErrInvalidArgument)
)

// Service reads subscription state and applies billing updates.
type Service struct {
	repo   repository.SubscriptionRepository
	policy InactivePolicy
	plans  map[string]map[string]int
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service using DefaultPlans.
func New(repo repository.SubscriptionRepository, policy InactivePolicy, logger *slog.Logger) Service {
	if policy == "" {
		policy = PolicyEnforce
	}
	return Service{repo: repo, policy: policy, plans: DefaultPlans, logger: logger, now: time.Now}
}

// Policy reports the configured inactive-subscription policy.
func (s Service) Policy() InactivePolicy {
	return s.policy
}

// Get returns the team's subscription or nil when billing never reported one.
func (s Service) Get(ctx context.Context, teamID string) (*domain.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// IsActive is true only for an active subscription whose period contains now.
func (s Service) IsActive(ctx context.Context, teamID string) (bool, error) {
	sub, err := s.Get(ctx, teamID)
	if err != nil {
		return false, err
	}
	return Active(sub, s.now()), nil
}

// Active is the pure form of IsActive.
func Active(sub *domain.Subscription, now time.Time) bool {
	if sub == nil || sub.Status != domain.SubscriptionStatusActive {
		return false
	}
	now = now.UTC()
	return !now.Before(sub.CurrentPeriodStart) && !now.After(sub.CurrentPeriodEnd)
}

// frozen reports whether the freeze policy applies. A team without any subscription
// row is not frozen; it simply runs on its configured limits.
func (s Service) frozen(sub *domain.Subscription) bool {
	if s.policy != PolicyFreeze || sub == nil {
		return false
	}
	return sub.Status == domain.SubscriptionStatusPastDue || sub.Status == domain.SubscriptionStatusCanceled
}

// LimitsFor returns configured limits keyed by resource type with the policy applied.
func (s Service) LimitsFor(ctx context.Context, teamID string) (map[string]int, error) {
	sub, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLimits(ctx, teamID)
	if err != nil {
		return nil, err
	}
	frozen := s.frozen(sub)
	limits := make(map[string]int, len(rows))
	for _, row := range rows {
		if frozen {
			limits[row.ResourceType] = 0
			continue
		}
		limits[row.ResourceType] = row.MaxQuantity
	}
	return limits, nil
}

// Limit returns the cap for one resource type. limited is false when no limit row
// exists, unless the freeze policy applies, in which case every type is capped at zero.
func (s Service) Limit(ctx context.Context, teamID, resourceType string) (max int, limited bool, err error) {
	sub, err := s.Get(ctx, teamID)
	if err != nil {
		return 0, false, err
	}
	if s.frozen(sub) {
		return 0, true, nil
	}
	rows, err := s.repo.ListLimits(ctx, teamID)
	if err != nil {
		return 0, false, err
	}
	for _, row := range rows {
		if row.ResourceType == resourceType {
			return row.MaxQuantity, true, nil
		}
	}
	return 0, false, nil
}

// Period returns the usage window that contains now.
func (s Service) Period(ctx context.Context, teamID string) (domain.Period, error) {
	sub, err := s.Get(ctx, teamID)
	if err != nil {
		return domain.Period{}, err
	}
	return CurrentPeriod(sub, s.now()), nil
}

// CurrentPeriod derives the window containing now. Past the recorded end, the period
// is rolled forward in whole billing cycles so a late renewal event never carries old
// consumption into the new cycle. Without a subscription the calendar month is used.
func CurrentPeriod(sub *domain.Subscription, now time.Time) domain.Period {
	now = now.UTC()
	if sub == nil || !sub.CurrentPeriodEnd.After(sub.CurrentPeriodStart) {
		return calendarMonth(now)
	}
	period := domain.Period{Start: sub.CurrentPeriodStart.UTC(), End: sub.CurrentPeriodEnd.UTC()}
	if now.Before(period.End) {
		return period
	}
	if months := wholeMonths(period); months > 0 {
		for !now.Before(period.End) {
			period.Start = period.End
			period.End = period.Start.AddDate(0, months, 0)
		}
		return period
	}
	length := period.End.Sub(period.Start)
	steps := now.Sub(period.Start) / length
	period.Start = period.Start.Add(steps * length)
	period.End = period.Start.Add(length)
	return period
}

func wholeMonths(p domain.Period) int {
	for _, months := range []int{1, 3, 6, 12} {
		if p.Start.AddDate(0, months, 0).Equal(p.End) {
			return months
		}
	}
	return 0
}

func calendarMonth(now time.Time) domain.Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return domain.Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// Apply records a billing event for a team. Known plan types also reset the team's
// limit rows to the plan's values.
func (s Service) Apply(ctx context.Context, update domain.SubscriptionUpdate) error {
	update.TeamID = strings.TrimSpace(update.TeamID)
	update.PlanType = strings.ToLower(strings.TrimSpace(update.PlanType))
	update.Status = strings.ToLower(strings.TrimSpace(update.Status))
	if update.TeamID == "" {
		return errMissingTeamID
	}
	if update.PlanType == "" {
		return errMissingPlanType
	}
	if !domain.ValidSubscriptionStatus(update.Status) {
		return errInvalidStatus
	}
	if !update.PeriodEnd.After(update.PeriodStart) {
		return errInvalidPeriod
	}
	sub := &domain.Subscription{
		TeamID:             update.TeamID,
		PlanType:           update.PlanType,
		Status:             update.Status,
		CurrentPeriodStart: update.PeriodStart.UTC(),
		CurrentPeriodEnd:   update.PeriodEnd.UTC(),
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return err
	}
	if plan, ok := s.plans[update.PlanType]; ok {
		limits := make([]domain.UsageLimit, 0, len(plan))
		for resource, max := range plan {
			limits = append(limits, domain.UsageLimit{TeamID: update.TeamID, ResourceType: resource, MaxQuantity: max})
		}
		if err := s.repo.ReplaceLimits(ctx, update.TeamID, limits); err != nil {
			return err
		}
	}
	s.logger.Info("subscription updated",
		"team_id", update.TeamID,
		"plan", update.PlanType,
		"status", update.Status,
		"period_start", sub.CurrentPeriodStart,
		"period_end", sub.CurrentPeriodEnd,
	)
	return nil
}

// SetLimits replaces the team's limits directly, for plans negotiated outside the catalog.
func (s Service) SetLimits(ctx context.Context, teamID string, limits map[string]int) error {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return errMissingTeamID
	}
	rows := make([]domain.UsageLimit, 0, len(limits))
	for resource, max := range limits {
		resource = strings.ToLower(strings.TrimSpace(resource))
		if resource == "" {
			return fmt.Errorf("%w: limit resource type is required", domain.ErrInvalidArgument)
		}
		if max < 0 {
			return fmt.Errorf("%w: limit for %s must not be negative", domain.ErrInvalidArgument, resource)
		}
		rows = append(rows, domain.UsageLimit{TeamID: teamID, ResourceType: resource, MaxQuantity: max})
	}
	if err := s.repo.ReplaceLimits(ctx, teamID, rows); err != nil {
		return err
	}
	s.logger.Info("team limits replaced", "team_id", teamID, "resources", len(rows))
	return nil
}
