package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteops_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "siteops_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	storeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteops_store_mutations_total",
		Help: "Count of store mutations by operation and result",
	}, []string{"operation", "result"})

	snapshotSaveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "siteops_snapshot_save_duration_seconds",
		Help:    "Duration of durable snapshot writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	snapshotLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteops_snapshot_loads_total",
		Help: "Count of snapshot slot reads by result",
	}, []string{"result"})

	snapshotSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "siteops_snapshot_subscribers",
		Help: "Number of connected snapshot feed subscribers",
	})

	ongoingSites = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "siteops_ongoing_sites",
		Help: "Number of sites currently in the ongoing state",
	})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteops_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveMutation increments the mutation counter for the given operation
// and result ("ok", "validation", "not_found").
func ObserveMutation(operation, result string) {
	storeMutations.WithLabelValues(operation, result).Inc()
}

// ObserveSnapshotSave records the duration of a durable write with a result label.
func ObserveSnapshotSave(result string, duration time.Duration) {
	snapshotSaveDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveSnapshotLoad increments the slot-read counter ("ok", "corrupt").
func ObserveSnapshotLoad(result string) {
	snapshotLoads.WithLabelValues(result).Inc()
}

// SetSnapshotSubscribers sets the connected feed subscriber gauge.
func SetSnapshotSubscribers(n int) {
	snapshotSubscribers.Set(float64(n))
}

// SetOngoingSites sets the ongoing-site gauge.
func SetOngoingSites(n int) {
	ongoingSites.Set(float64(n))
}

// ObserveLogin increments the login counter ("ok", "unknown_user", "wrong_password").
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
