package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the sync service

var (
	// Sync metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendybets_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trendybets_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	SyncRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendybets_sync_records_processed_total",
			Help: "Total number of records written by sync runs",
		},
		[]string{"type"},
	)

	SyncUnitErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendybets_sync_unit_errors_total",
			Help: "Total number of per-unit sync failures",
		},
		[]string{"type"},
	)

	LastSuccessfulSync = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendybets_last_successful_sync_timestamp",
			Help: "Unix timestamp of the last successful sync run",
		},
		[]string{"type"},
	)

	// Connection pool metrics
	PoolConnectionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendybets_pool_connections_total",
			Help: "Number of connections owned by the pool",
		},
	)

	PoolConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendybets_pool_connections_in_use",
			Help: "Number of pool connections currently held by callers",
		},
	)

	PoolConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendybets_pool_connections_idle",
			Help: "Number of idle pool connections",
		},
	)

	PoolAcquireTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trendybets_pool_acquire_timeouts_total",
			Help: "Total number of acquire calls that hit the timeout",
		},
	)

	// API client metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendybets_api_calls_total",
			Help: "Total number of OpticOdds API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trendybets_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendybets_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendybets_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordSyncRun records the outcome of one sync run
func RecordSyncRun(syncType, status string, duration time.Duration, records, unitErrors int) {
	SyncRunsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration.Seconds())
	SyncRecordsProcessed.WithLabelValues(syncType).Add(float64(records))
	if unitErrors > 0 {
		SyncUnitErrors.WithLabelValues(syncType).Add(float64(unitErrors))
	}
	if status == "completed" {
		LastSuccessfulSync.WithLabelValues(syncType).SetToCurrentTime()
	}
}

// RecordPoolStats publishes the pool gauges
func RecordPoolStats(total, inUse, idle int) {
	PoolConnectionsTotal.Set(float64(total))
	PoolConnectionsInUse.Set(float64(inUse))
	PoolConnectionsIdle.Set(float64(idle))
}

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordError records an error by component and type
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
