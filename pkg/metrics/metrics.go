package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote table metrics
	TableCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_table_calls_total",
		Help: "Remote table calls issued, by operation",
	}, []string{"op"})
	TableThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_table_throttles_total",
		Help: "Remote table calls rejected for quota reasons, by operation",
	}, []string{"op"})
	QuotaExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profilesync_quota_exhausted_total",
		Help: "Calls abandoned after exhausting throttle retries",
	})
	RateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "profilesync_rate_limit_wait_seconds",
		Help:    "Time spent blocked on the call window before a remote call",
		Buckets: []float64{0, 0.5, 1, 5, 15, 30, 60},
	})

	// Reconciler metrics
	RowsInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profilesync_rows_inserted_total",
		Help: "Profile rows inserted into the remote table",
	})
	RowsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profilesync_rows_updated_total",
		Help: "Profile rows rewritten because a field changed",
	})
	RowsUnchangedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profilesync_rows_unchanged_total",
		Help: "Scraped profiles that matched the stored row",
	})

	// Sync engine metrics
	QueueItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_queue_items_total",
		Help: "Queue items committed, by resulting status",
	}, []string{"status"})
	BatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profilesync_batch_failures_total",
		Help: "Batches whose reconciliation failed and were left pending",
	})
	CommitErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profilesync_commit_errors_total",
		Help: "Queue status commits that failed",
	})
	BatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "profilesync_batch_seconds",
		Help:    "Wall time to reconcile and commit one batch",
		Buckets: prometheus.DefBuckets,
	})
)
