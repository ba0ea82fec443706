package domain

import "time"

// Resource types that consume quota.
const (
	ResourceArticles = "articles"
	ResourceKeywords = "keywords"
	ResourceSearches = "searches"
)

// UsageLimit caps consumption of a resource type per period.
type UsageLimit struct {
	TeamID       string
	ResourceType string
	MaxQuantity  int
}

// UsageRecord is the consumed quantity of a resource type within one period.
type UsageRecord struct {
	TeamID       string
	ResourceType string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Quantity     int
	UpdatedAt    time.Time
}

// UsageKey identifies the row an atomic check-and-record operates on.
type UsageKey struct {
	TeamID       string
	ResourceType string
	Period       Period
}

// Consumption reports the result of a successful check-and-record.
type Consumption struct {
	TeamID       string
	ResourceType string
	Amount       int
	Used         int
	Limit        int
	Limited      bool
	Period       Period
}

// Remaining returns what is left in the period, floored at zero, or -1 when unlimited.
func (c Consumption) Remaining() int {
	if !c.Limited {
		return -1
	}
	if left := c.Limit - c.Used; left > 0 {
		return left
	}
	return 0
}
