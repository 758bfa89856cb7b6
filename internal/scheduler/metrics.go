package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds per-session capture counters. Every metric carries a
// constant "session" label, so sessions can share one registry.
//
// Metrics:
//   - trawl_passes_total - capture passes run
//   - trawl_skips_total{reason} - passes that produced nothing to dispatch
//   - trawl_dispatches_total - records handed to the sink successfully
//   - trawl_dispatch_failures_total - records the sink rejected
//   - trawl_navigations_total - URL changes that reset the session
type Metrics struct {
	Passes           prometheus.Counter
	Skips            *prometheus.CounterVec
	Dispatches       prometheus.Counter
	DispatchFailures prometheus.Counter
	Navigations      prometheus.Counter
}

// NewMetrics registers the session's counters on reg. A nil reg uses a
// private registry.
func NewMetrics(reg prometheus.Registerer, session string) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	labels := prometheus.Labels{"session": session}

	return &Metrics{
		Passes: f.NewCounter(prometheus.CounterOpts{
			Name:        "trawl_passes_total",
			Help:        "Total number of capture passes",
			ConstLabels: labels,
		}),
		Skips: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "trawl_skips_total",
			Help:        "Capture passes skipped, by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		Dispatches: f.NewCounter(prometheus.CounterOpts{
			Name:        "trawl_dispatches_total",
			Help:        "Records stored by the sink",
			ConstLabels: labels,
		}),
		DispatchFailures: f.NewCounter(prometheus.CounterOpts{
			Name:        "trawl_dispatch_failures_total",
			Help:        "Records rejected by the sink",
			ConstLabels: labels,
		}),
		Navigations: f.NewCounter(prometheus.CounterOpts{
			Name:        "trawl_navigations_total",
			Help:        "URL changes that reset the capture state",
			ConstLabels: labels,
		}),
	}
}
