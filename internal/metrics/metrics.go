// Package metrics holds the Prometheus collectors of the monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ojs_monitor"

var (
	serverInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_info",
			Help:      "Build information of the running monitor.",
		},
		[]string{"version", "instances"},
	)

	// HTTPRequests counts served requests by route pattern.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		},
	)

	// PartitionJobs is the last observed size of each (queue, status) partition.
	PartitionJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "partition_jobs",
			Help:      "Number of jobs in a queue status partition at the last refresh.",
		},
		[]string{"instance", "queue", "status"},
	)

	// Workers is the number of registered workers at the last refresh.
	Workers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Number of registered workers at the last refresh.",
		},
		[]string{"instance"},
	)

	// InstanceUp is 1 when the instance answered its last health check.
	InstanceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instance_up",
			Help:      "Whether the store instance answered its last health check.",
		},
		[]string{"instance"},
	)

	// Terminations counts worker termination attempts by terminal state.
	Terminations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_terminations_total",
			Help:      "Worker termination attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// BulkItems counts units attempted by bulk actions.
	BulkItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_action_items_total",
			Help:      "Units attempted by bulk actions.",
		},
		[]string{"action"},
	)

	// BulkFailures counts units of bulk actions that failed.
	BulkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_action_failures_total",
			Help:      "Units of bulk actions that failed.",
		},
		[]string{"action"},
	)

	// ShortPages counts job pages that came back shorter than requested even
	// though the count snapshot promised more jobs.
	ShortPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_pages_short_total",
			Help:      "Job pages shortened by jobs moving or vanishing between count and fetch.",
		},
	)
)

// Init records static server information.
func Init(version, instances string) {
	serverInfo.WithLabelValues(version, instances).Set(1)
}
