// Package metrics exposes Prometheus collectors for the swap engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

const namespace = "tokenswap"

// Collector holds the engine collectors on a private registry.
type Collector struct {
	registry *prometheus.Registry

	refreshes      *prometheus.CounterVec
	catalogTokens  prometheus.Gauge
	lastRefresh    prometheus.Gauge
	swaps          *prometheus.CounterVec
	swapLatency    prometheus.Histogram
	streamsClients *prometheus.GaugeVec
}

// NewCollector creates and registers all collectors.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "refreshes_total",
			Help:      "Price feed refreshes by result",
		},
		[]string{"result"},
	)
	c.catalogTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "tokens",
		Help:      "Tokens in the current catalog snapshot",
	})
	c.lastRefresh = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful refresh",
	})
	c.swaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "submissions_total",
			Help:      "Swap submissions by final status",
		},
		[]string{"status"},
	)
	c.swapLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "swap",
		Name:      "duration_seconds",
		Help:      "Time from submission to final status",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	c.streamsClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "stream_clients",
			Help:      "Open SSE connections by stream",
		},
		[]string{"stream"},
	)

	c.registry.MustRegister(
		c.refreshes,
		c.catalogTokens,
		c.lastRefresh,
		c.swaps,
		c.swapLatency,
		c.streamsClients,
		collectors.NewGoCollector(),
	)
	return c
}

// CatalogRefreshed records the outcome of a price feed refresh.
func (c *Collector) CatalogRefreshed(tokens int, err error) {
	if err != nil {
		c.refreshes.WithLabelValues("error").Inc()
		return
	}
	c.refreshes.WithLabelValues("ok").Inc()
	c.catalogTokens.Set(float64(tokens))
	c.lastRefresh.SetToCurrentTime()
}

// SwapFinished records a submission's final status and how long it took.
func (c *Collector) SwapFinished(status domain.SettlementStatus, elapsed time.Duration) {
	c.swaps.WithLabelValues(string(status)).Inc()
	c.swapLatency.Observe(elapsed.Seconds())
}

// StreamOpened tracks an SSE client; call the returned func when it disconnects.
func (c *Collector) StreamOpened(stream string) func() {
	g := c.streamsClients.WithLabelValues(stream)
	g.Inc()
	return g.Dec
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
