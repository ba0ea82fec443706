// Package usage enforces per-period quotas on team resource consumption.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

// Unlimited is reported by Remaining when no limit applies to a resource type.
const Unlimited = -1

// MaxAmount is the largest quantity a single call may consume.
const MaxAmount = math.MaxInt32

var (
	// ErrInvalidAmount is returned for non-positive consumption.
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	errAmountTooLarge      = fmt.Errorf("%w: amount exceeds %d", domain.ErrInvalidArgument, MaxAmount)
	errMissingResourceType = fmt.Errorf("%w: resource type is required", domain.ErrInvalidArgument)
)

// DefaultResources are always listed in a summary, even before first use.
var DefaultResources = []string{domain.ResourceArticles, domain.ResourceKeywords, domain.ResourceSearches}

// Limits supplies the subscription view the meter enforces against.
type Limits interface {
	Limit(ctx context.Context, teamID, resourceType string) (max int, limited bool, err error)
	LimitsFor(ctx context.Context, teamID string) (map[string]int, error)
	Period(ctx context.Context, teamID string) (domain.Period, error)
}

// Summary is the usage of one resource type in the current period.
type Summary struct {
	ResourceType string `json:"resource_type"`
	Used         int    `json:"used"`
	Limit        int    `json:"limit"`
	Limited      bool   `json:"limited"`
	Remaining    int    `json:"remaining"`
}

// Meter records consumption and rejects it once a team's quota is spent.
type Meter struct {
	repo    repository.UsageRepository
	limits  Limits
	logger  *slog.Logger
	metrics *Metrics
}

// New constructs a Meter. metrics may be nil.
func New(repo repository.UsageRepository, limits Limits, logger *slog.Logger, metrics *Metrics) Meter {
	return Meter{repo: repo, limits: limits, logger: logger, metrics: metrics}
}

// CurrentPeriod returns the window usage is currently accounted against.
func (m Meter) CurrentPeriod(ctx context.Context, teamID string) (domain.Period, error) {
	return m.limits.Period(ctx, teamID)
}

// CheckAndRecord consumes amount units of resourceType. When the team's limit would be
// exceeded it returns domain.ErrQuotaExceeded and records nothing. The check and the
// write happen in a single repository call so concurrent consumers cannot overshoot.
func (m Meter) CheckAndRecord(ctx context.Context, teamID, resourceType string, amount int) (domain.Consumption, error) {
	resourceType = strings.ToLower(strings.TrimSpace(resourceType))
	if resourceType == "" {
		return domain.Consumption{}, errMissingResourceType
	}
	if amount <= 0 {
		return domain.Consumption{}, ErrInvalidAmount
	}
	if amount > MaxAmount {
		return domain.Consumption{}, errAmountTooLarge
	}
	period, err := m.limits.Period(ctx, teamID)
	if err != nil {
		return domain.Consumption{}, err
	}
	max, limited, err := m.limits.Limit(ctx, teamID, resourceType)
	if err != nil {
		return domain.Consumption{}, err
	}
	key := domain.UsageKey{TeamID: teamID, ResourceType: resourceType, Period: period}
	var used int
	if limited && amount > max {
		err = domain.ErrQuotaExceeded
	} else {
		used, err = m.repo.ConsumeUsage(ctx, key, amount, max, limited)
	}
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			m.metrics.rejected(resourceType)
			m.logger.Info("usage quota exceeded",
				"team_id", teamID,
				"resource_type", resourceType,
				"amount", amount,
				"limit", max,
			)
		}
		return domain.Consumption{}, err
	}
	m.metrics.consumed(resourceType, amount)
	return domain.Consumption{
		TeamID:       teamID,
		ResourceType: resourceType,
		Amount:       amount,
		Used:         used,
		Limit:        max,
		Limited:      limited,
		Period:       period,
	}, nil
}

// Remaining returns max minus used, floored at zero, or Unlimited.
func (m Meter) Remaining(ctx context.Context, teamID, resourceType string) (int, error) {
	resourceType = strings.ToLower(strings.TrimSpace(resourceType))
	if resourceType == "" {
		return 0, errMissingResourceType
	}
	max, limited, err := m.limits.Limit(ctx, teamID, resourceType)
	if err != nil {
		return 0, err
	}
	if !limited {
		return Unlimited, nil
	}
	period, err := m.limits.Period(ctx, teamID)
	if err != nil {
		return 0, err
	}
	used, err := m.repo.GetUsage(ctx, domain.UsageKey{TeamID: teamID, ResourceType: resourceType, Period: period})
	if err != nil {
		return 0, err
	}
	return remaining(max, used), nil
}

// Summary reports usage for every resource type that is limited, recorded or default.
func (m Meter) Summary(ctx context.Context, teamID string) (domain.Period, []Summary, error) {
	period, err := m.limits.Period(ctx, teamID)
	if err != nil {
		return domain.Period{}, nil, err
	}
	configured, err := m.limits.LimitsFor(ctx, teamID)
	if err != nil {
		return domain.Period{}, nil, err
	}
	records, err := m.repo.ListUsage(ctx, teamID, period.Start)
	if err != nil {
		return domain.Period{}, nil, err
	}

	used := make(map[string]int, len(records))
	resources := make(map[string]struct{}, len(configured)+len(records)+len(DefaultResources))
	for _, resource := range DefaultResources {
		resources[resource] = struct{}{}
	}
	for resource := range configured {
		resources[resource] = struct{}{}
	}
	for _, rec := range records {
		used[rec.ResourceType] = rec.Quantity
		resources[rec.ResourceType] = struct{}{}
	}

	out := make([]Summary, 0, len(resources))
	for resource := range resources {
		max, limited, err := m.limits.Limit(ctx, teamID, resource)
		if err != nil {
			return domain.Period{}, nil, err
		}
		entry := Summary{ResourceType: resource, Used: used[resource], Limit: max, Limited: limited, Remaining: Unlimited}
		if limited {
			entry.Remaining = remaining(max, entry.Used)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceType < out[j].ResourceType })
	return period, out, nil
}

func remaining(max, used int) int {
	if left := max - used; left > 0 {
		return left
	}
	return 0
}
