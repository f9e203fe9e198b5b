package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeFailed     = "failed"
)

// Import outcomes.
const (
	ImportOK     = "ok"
	ImportFailed = "failed"
)

var (
	EntitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tscat_entities_created_total",
		Help: "Total number of committed entity creations, labelled by kind.",
	}, []string{"kind"})

	Sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tscat_sessions_total",
		Help: "Total number of closed sessions, labelled by outcome.",
	}, []string{"outcome"})

	MutationsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tscat_mutations_applied_total",
		Help: "Total number of mutations committed to the store.",
	})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tscat_query_duration_seconds",
		Help:    "Store query latency in seconds, labelled by entity kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tscat_imports_total",
		Help: "Total number of JSON imports, labelled by outcome.",
	}, []string{"outcome"})
)
