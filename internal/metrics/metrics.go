// Package metrics provides Prometheus instrumentation for the analytics
// pipeline. The API exposes the registry through Handler on its router; the
// worker serves OpsHandler on its own listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JobRuns counts background job executions by kind and outcome
// (succeeded, retried, failed).
var JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "channelpulse_job_runs_total",
	Help: "Background job executions by kind and outcome.",
}, []string{"kind", "outcome"})

// WebhookAuth counts inbound webhook authentication decisions.
var WebhookAuth = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "channelpulse_webhook_auth_total",
	Help: "Inbound webhook authentication results.",
}, []string{"result"})

// JobDuration tracks how long job executions take by kind.
var JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "channelpulse_job_duration_seconds",
	Help:    "Background job execution latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"kind"})

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// OpsHandler serves the worker's operational surface: the scrape endpoint
// plus a liveness probe. The API mounts Handler on its own router instead.
func OpsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/v1/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
