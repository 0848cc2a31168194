// Package observability carries the Prometheus collector and the
// OpenTelemetry tracer provider shared by the stores, services and the
// HTTP surface.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperations   *prometheus.CounterVec
	StoreDuration     *prometheus.HistogramVec
	TransactionItems  prometheus.Histogram
	ConditionFailures *prometheus.CounterVec

	// Business metrics
	ResourceTransitions *prometheus.CounterVec
	TicketTransitions   *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

// NewCollector creates a collector on its own registry, so several
// collectors never clash on registration.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations by outcome",
			},
			[]string{"operation", "index", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "index"},
		),
		TransactionItems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_transaction_items",
				Help:      "Items per store transaction",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 100},
			},
		),
		ConditionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_condition_failures_total",
				Help:      "Writes rejected by a precondition, by error type",
			},
			[]string{"type"},
		),
		ResourceTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_transitions_total",
				Help:      "Committed resource lifecycle transitions",
			},
			[]string{"event"},
		),
		TicketTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticket_transitions_total",
				Help:      "Committed ticket status changes",
			},
			[]string{"ticket_type", "status"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events handed to the event bus",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.TransactionItems,
		c.ConditionFailures,
		c.ResourceTransitions,
		c.TicketTransitions,
		c.EventsPublished,
	)
	return c
}

// RecordStoreOperation records one store call
func (c *Collector) RecordStoreOperation(operation, index, status string, duration time.Duration) {
	c.StoreOperations.WithLabelValues(operation, index, status).Inc()
	c.StoreDuration.WithLabelValues(operation, index).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
