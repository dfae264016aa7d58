// Package metrics exposes crawl counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the crawl collectors. Each Metrics owns its registry, so
// several crawls in one process (or one test binary) do not collide.
//
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal       *prometheus.CounterVec
	FetchAttemptsTotal prometheus.Counter
	RobotsBlockedTotal prometheus.Counter
	ThrottleWait       prometheus.Histogram
	FrontierSize       prometheus.Gauge
}

// New registers the crawl collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkcrawler_fetches_total",
			Help: "Completed page fetches by final status class.",
		}, []string{"code_class"}),
		FetchAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkcrawler_fetch_attempts_total",
			Help: "HTTP requests sent for page fetches, retries included.",
		}),
		RobotsBlockedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkcrawler_robots_blocked_total",
			Help: "URLs skipped because robots.txt disallows them.",
		}),
		ThrottleWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkcrawler_throttle_wait_seconds",
			Help:    "Time spent waiting for the per-domain politeness delay.",
			Buckets: []float64{0, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		FrontierSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "linkcrawler_frontier_size",
			Help: "URLs waiting in the crawl queue.",
		}),
	}
}

// ObserveFetch records a finished fetch.
func (m *Metrics) ObserveFetch(codeClass string, attempts int) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(codeClass).Inc()
	m.FetchAttemptsTotal.Add(float64(attempts))
}

// IncBlocked records a robots-denied URL.
func (m *Metrics) IncBlocked() {
	if m == nil {
		return
	}
	m.RobotsBlockedTotal.Inc()
}

// ObserveThrottleWait records time spent in the throttle.
func (m *Metrics) ObserveThrottleWait(d time.Duration) {
	if m == nil {
		return
	}
	m.ThrottleWait.Observe(d.Seconds())
}

// SetFrontierSize records the current queue length.
func (m *Metrics) SetFrontierSize(n int) {
	if m == nil {
		return
	}
	m.FrontierSize.Set(float64(n))
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
