package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dealflow"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "aggregation_duration_seconds", Help: "Time spent computing a dashboard aggregation.", Buckets: prometheus.DefBuckets},
		[]string{"aggregator"},
	)
	AggregationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "aggregation_errors_total", Help: "Number of failed dashboard aggregations."},
		[]string{"aggregator"},
	)
	DashboardCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "dashboard_cache_total", Help: "Dashboard cache lookups by result (hit, miss, error)."},
		[]string{"result"},
	)
	StageReorders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "stage_reorders_total", Help: "Stage reorder requests by result."},
		[]string{"result"},
	)
	StageChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "deal_stage_changes_total", Help: "Deal stage changes by target stage."},
		[]string{"stage"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AggregationDuration)
	reg.MustRegister(AggregationErrors)
	reg.MustRegister(DashboardCache)
	reg.MustRegister(StageReorders)
	reg.MustRegister(StageChanges)
}

// ObserveAggregation records the duration of one aggregator run and counts it
// as an error when err is non-nil.
func ObserveAggregation(aggregator string, start time.Time, err error) {
	AggregationDuration.WithLabelValues(aggregator).Observe(time.Since(start).Seconds())
	if err != nil {
		AggregationErrors.WithLabelValues(aggregator).Inc()
	}
}
