package usage

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts quota decisions. A nil *Metrics is a no-op.
type Metrics struct {
	consumedTotal *prometheus.CounterVec
	rejectedTotal *prometheus.CounterVec
}

// NewMetrics registers the usage collectors with reg, reusing collectors that are
// already registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		consumedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordgen",
			Subsystem: "usage",
			Name:      "consumed_units_total",
			Help:      "Units of quota consumed by resource type",
		}, []string{"resource_type"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordgen",
			Subsystem: "usage",
			Name:      "quota_rejections_total",
			Help:      "Consumption attempts rejected because the quota was spent",
		}, []string{"resource_type"}),
	}
	m.consumedTotal = register(reg, m.consumedTotal)
	m.rejectedTotal = register(reg, m.rejectedTotal)
	return m
}

func register(reg prometheus.Registerer, collector *prometheus.CounterVec) *prometheus.CounterVec {
	if reg == nil {
		return collector
	}
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return collector
}

func (m *Metrics) consumed(resourceType string, amount int) {
	if m == nil {
		return
	}
	m.consumedTotal.WithLabelValues(resourceType).Add(float64(amount))
}

func (m *Metrics) rejected(resourceType string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(resourceType).Inc()
}
