// Package metrics provides Prometheus metrics collection for docgraph.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docgraph"

// Collector holds all Prometheus metrics for docgraph.
type Collector struct {
	gatherer prometheus.Gatherer

	// Document metrics
	DocumentsBuilt *prometheus.CounterVec
	DocumentErrors *prometheus.CounterVec

	// Operation metrics
	OperationsTotal     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	ActiveSubscriptions prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered on a fresh registry, so several
// collectors can coexist in one process.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a new metrics collector on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,
		DocumentsBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_built_total",
				Help:      "Total number of documents built",
			},
			[]string{"document"},
		),
		DocumentErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_errors_total",
				Help:      "Total number of failed document builds by stage",
			},
			[]string{"document", "stage"},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of GraphQL operations executed",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "GraphQL operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		ActiveSubscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_subscriptions",
				Help:      "Number of subscriptions currently streaming",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// DocumentBuilt records a successful document build.
func (c *Collector) DocumentBuilt(name string) {
	c.DocumentsBuilt.WithLabelValues(name).Inc()
}

// DocumentFailed records a document build that failed at stage.
func (c *Collector) DocumentFailed(name, stage string) {
	c.DocumentErrors.WithLabelValues(name, stage).Inc()
}

// ObserveOperation records one executed GraphQL operation.
func (c *Collector) ObserveOperation(operation string, d time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	c.OperationsTotal.WithLabelValues(operation, status).Inc()
	c.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SubscriptionStarted increments the active subscription gauge.
func (c *Collector) SubscriptionStarted() {
	c.ActiveSubscriptions.Inc()
}

// SubscriptionEnded decrements the active subscription gauge.
func (c *Collector) SubscriptionEnded() {
	c.ActiveSubscriptions.Dec()
}

// ConfigReloaded records the outcome of a config reload.
func (c *Collector) ConfigReloaded(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
