package migrator

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	applied  prometheus.Counter
	failures prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		applied: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migrator_migrations_applied_total",
			Help: "Number of schema migrations applied",
		})),
		failures: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migrator_migration_failures_total",
			Help: "Number of schema migrations that failed and were rolled back",
		})),
		duration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "migrator_migration_duration_seconds",
			Help:    "Time spent applying a single schema migration",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		})),
	}
}

// register adds c to reg, reusing the collector already registered under the
// same name so several migrators can share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(start time.Time, err error) {
	if err != nil {
		m.failures.Inc()
		return
	}
	m.applied.Inc()
	m.duration.Observe(time.Since(start).Seconds())
}
