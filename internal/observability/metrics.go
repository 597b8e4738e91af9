package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "charter", Name: "jobs_enqueued_total", Help: "Delayed jobs enqueued"},
		[]string{"kind"},
	)
	JobsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "charter", Name: "jobs_fired_total", Help: "Delayed jobs executed"},
		[]string{"kind"},
	)
	JobsRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "charter", Name: "jobs_retried_total", Help: "Delayed job executions that failed and were rescheduled"},
		[]string{"kind"},
	)
	JobsCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "charter", Name: "jobs_cancelled_total", Help: "Delayed jobs cancelled before firing"},
		[]string{"kind"},
	)
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "charter",
			Name:      "job_duration_seconds",
			Help:      "Delayed job handler latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	QuotesExpired      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "charter", Name: "quotes_expired_total", Help: "Quotes moved to EXPIRED by the expiry job"})
	TripsAutoCompleted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "charter", Name: "trips_auto_completed_total", Help: "Reservations completed by the auto-complete job"})
	LocationAccepted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "charter", Name: "location_updates_accepted_total", Help: "Driver location updates accepted"})
	LocationThrottled  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "charter", Name: "location_updates_throttled_total", Help: "Driver location updates rejected by the throttle"})
)
