package domain

import "time"

// SubscriptionStatus values as reported by the billing collaborator.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// ValidSubscriptionStatus reports whether status is one the core understands.
func ValidSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusCanceled:
		return true
	}
	return false
}

// Subscription is the billing state of a team. It is written only by the
// billing collaborator.
type Subscription struct {
	TeamID             string
	PlanType           string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	UpdatedAt          time.Time
}

// SubscriptionUpdate is the payload applied on a billing event.
type SubscriptionUpdate struct {
	TeamID      string
	PlanType    string
	Status      string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Period is a half-open usage window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}
