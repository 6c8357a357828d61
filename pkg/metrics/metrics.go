package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric of a run. It is separate from the default registry so exports only
// carry sync metrics.
var Registry = prometheus.NewRegistry()

var (
	// AssetsSynced counts sync outcomes per asset kind.
	AssetsSynced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronosphere_sync_assets_total",
		Help: "Number of assets processed by kind and action",
	}, []string{"kind", "action"}) // action: created, updated, unchanged, skipped, failed

	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronosphere_sync_api_requests_total",
		Help: "Number of configuration API requests by method and response code",
	}, []string{"method", "code"})

	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronosphere_sync_api_retries_total",
		Help: "Number of retried configuration API requests by asset kind",
	}, []string{"kind"})

	// Run metrics
	LastRunDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chronosphere_sync_last_run_duration_seconds",
		Help: "Duration of the last sync run",
	})

	LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chronosphere_sync_last_run_timestamp_seconds",
		Help: "Unix time the last sync run finished",
	})

	LastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chronosphere_sync_last_run_success",
		Help: "Whether the last sync run applied every asset (1) or not (0)",
	})
)

func init() {
	Registry.MustRegister(
		AssetsSynced,
		APIRequests,
		APIRetries,
		LastRunDuration,
		LastRunTimestamp,
		LastRunSuccess,
	)
}
