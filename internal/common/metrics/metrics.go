// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_outcomes_total",
			Help: "Per-recipient dispatch outcomes",
		},
		[]string{"outcome"}, // sent | failed | skipped_already_sent | skipped_no_match
	)

	GenerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_runs_total",
			Help: "Generation phase runs by mode and result source",
		},
		[]string{"mode", "source"}, // mode: weekly|daily, source: fresh|cached|empty|error
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "generation_duration_seconds",
			Help: "Duration of the generation phase in seconds",
		},
		[]string{"mode"},
	)

	FeedPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_pages_fetched_total",
			Help: "Catalog feed pages fetched",
		},
	)

	FeedRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_rate_limited_total",
			Help: "Catalog feed rate-limit responses encountered",
		},
	)
)
