// Package metrics exposes the engine's Prometheus instrumentation:
// filter pipeline trace counts, strategy latency, and background-worker
// cycle outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilterPipelineDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchengine_filter_pipeline_dropped_total",
			Help: "Candidates dropped per filter stage.",
		},
		[]string{"filter"},
	)

	StrategyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchengine_strategy_requests_total",
			Help: "Candidate requests served per strategy.",
		},
		[]string{"strategy"},
	)

	StrategyLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchengine_strategy_latency_seconds",
			Help:    "GetCandidates latency per strategy.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	RefreshCycleDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "matchengine_refresh_cycle_duration_seconds",
			Help: "Background score refresher cycle duration.",
		},
	)

	RefreshCycleUsersScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchengine_refresh_cycle_users_scored_total",
			Help: "Users scored by the background refresher.",
		},
	)

	RefreshCycleSkippedCPU = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchengine_refresh_cycle_skipped_cpu_total",
			Help: "Refresher cycles skipped due to the CPU guard.",
		},
	)

	DailyPickGenerationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "matchengine_dailypick_generation_duration_seconds",
			Help: "Daily-pick generator run duration.",
		},
	)

	DailyPickUsersGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchengine_dailypick_users_generated_total",
			Help: "Users for whom daily picks were generated.",
		},
	)
)
