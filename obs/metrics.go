// Package obs exposes the engine's Prometheus metrics: simulation run
// outcomes and run durations, plus the /metrics handler.
package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_runs_submitted_total",
		Help: "Simulation runs accepted for processing.",
	})

	runsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_runs_completed_total",
		Help: "Simulation runs that finished successfully.",
	})

	runsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_runs_failed_total",
		Help: "Simulation runs that ended in Failed status.",
	})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_run_duration_seconds",
		Help:    "Wall time of one simulation run, submit to finalize.",
		Buckets: prometheus.DefBuckets,
	})
)

// Init registers the metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(runsSubmitted, runsCompleted, runsFailed, runDuration)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RunSubmitted() { runsSubmitted.Inc() }

func RunCompleted(elapsed time.Duration) {
	runsCompleted.Inc()
	runDuration.Observe(elapsed.Seconds())
}

func RunFailed(elapsed time.Duration) {
	runsFailed.Inc()
	runDuration.Observe(elapsed.Seconds())
}
