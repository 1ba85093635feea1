// Package telemetry holds the Prometheus metrics exported by the forecast service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "weather_forecast"

var (
	// ForecastRequests counts engine calls.
	// Labels: kind (predict, forecast, explain), result (success, error)
	ForecastRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total number of engine requests by kind and result",
		},
		[]string{"kind", "result"},
	)

	// ArtifactReloads counts artifact (re)loads performed by freshness caches.
	// Labels: dataset, result (success, error)
	ArtifactReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifact",
			Name:      "reloads_total",
			Help:      "Total number of artifact loads triggered by a changed modification time",
		},
		[]string{"dataset", "result"},
	)

	// Observations counts temperature store writes.
	// Labels: result (recorded, duplicate, error)
	Observations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "observations_total",
			Help:      "Total number of observation writes by outcome",
		},
		[]string{"result"},
	)

	// SchedulerRuns counts scheduler fires.
	// Labels: result (ok, error, coalesced, misfire)
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total number of scheduler fires by outcome",
		},
		[]string{"result"},
	)

	// ProviderFetchDuration tracks upstream weather fetch latency.
	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of upstream current-conditions fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// Result maps an error to the "success"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
