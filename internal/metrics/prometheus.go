package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksTotal counts finished tasks by queue, task name, and final status.
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_collector_tasks_total",
			Help: "Total number of tasks that reached a terminal status.",
		},
		[]string{"queue", "name", "status"},
	)

	// TaskDurationSeconds observes Execute wall time per queue and task name.
	TaskDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_collector_task_duration_seconds",
			Help:    "Duration of task execution in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"queue", "name"},
	)

	// QueueDepth reports tasks admitted to a worker's heap and not yet executed.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_collector_queue_depth",
			Help: "Number of admitted tasks waiting for execution.",
		},
		[]string{"queue"},
	)

	// TasksAbandoned counts tasks left in a heap when a worker shut down.
	TasksAbandoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_collector_tasks_abandoned_total",
			Help: "Total number of admitted tasks discarded at shutdown.",
		},
		[]string{"queue"},
	)

	// HTTPAttempts counts outbound HTTP attempts by client and outcome.
	HTTPAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_collector_http_attempts_total",
			Help: "Total number of outbound HTTP attempts.",
		},
		[]string{"client", "outcome"},
	)

	// HTTPRequestDurationSeconds observes single-attempt round trip time.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_collector_http_request_duration_seconds",
			Help:    "Duration of outbound HTTP attempts in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"client"},
	)

	// RateLimitWaitSeconds observes time spent blocked on a rate limiter.
	RateLimitWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_collector_rate_limit_wait_seconds",
			Help:    "Time spent waiting for a rate limiter permit.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"limiter"},
	)

	// APIRequestsTotal counts REST requests by route pattern and status code.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_collector_api_requests_total",
			Help: "Total number of REST API requests.",
		},
		[]string{"route", "code"},
	)

	// PictureBytesTotal counts bytes written by completed picture downloads.
	PictureBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_collector_picture_bytes_total",
			Help: "Total bytes of pictures stored on disk.",
		},
	)
)
