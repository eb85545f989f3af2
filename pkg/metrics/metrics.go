// Package metrics exposes Prometheus counters and gauges for the
// orchestrator's request traffic, build outcomes, and worker occupancy.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every Prometheus collector this process registers.
type Metrics struct {
	BuilderRequests *prometheus.CounterVec
	BuildsTriggered prometheus.Counter
	BuildOutcomes   *prometheus.CounterVec
	ActiveWorkers   prometheus.Gauge
}

// NewMetrics registers and returns the collectors. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		BuilderRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "radicle_ci_builder_requests_total",
			Help: "Total requests made to the Builder HTTP API, by operation and outcome.",
		}, []string{"op", "outcome"}),
		BuildsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radicle_ci_builds_triggered_total",
			Help: "Total builds triggered on the Builder.",
		}),
		BuildOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "radicle_ci_build_outcomes_total",
			Help: "Total terminal build outcomes, by status.",
		}, []string{"status"}),
		ActiveWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "radicle_ci_active_workers",
			Help: "Number of pool workers currently processing a job.",
		}),
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
