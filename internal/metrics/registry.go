// Package metrics exposes Prometheus instruments for the offline builders
// and the planner API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Walk router outcomes
const (
	WalkAccepted      = "accepted"
	WalkTooLong       = "too_long"
	WalkLowConfidence = "low_confidence"
	WalkTimeout       = "timeout"
	WalkFailure       = "failure"
)

// Registry holds every instrument on a private Prometheus registry
type Registry struct {
	WalkRequestsTotal   *prometheus.CounterVec
	WalkRequestDuration prometheus.Histogram
	TransferEdgesTotal  *prometheus.CounterVec
	BreakerFailures     prometheus.Gauge

	PlannerDuration    *prometheus.HistogramVec
	PlannerPaths       prometheus.Histogram
	IndexRebuildsTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all instruments initialized
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initTransferMetrics()
	r.initPlannerMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initTransferMetrics() {
	r.WalkRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "matatu_walk_requests_total",
			Help: "Foot router calls by outcome",
		},
		[]string{"outcome"},
	)

	r.WalkRequestDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matatu_walk_request_duration_seconds",
			Help:    "Foot router call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	r.TransferEdgesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "matatu_transfer_edges_created_total",
			Help: "Walking transfer edges written, by build phase",
		},
		[]string{"phase"},
	)

	r.BreakerFailures = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "matatu_walk_breaker_failures",
			Help: "Hard failures in the current circuit breaker window",
		},
	)
}

func (r *Registry) initPlannerMetrics() {
	r.PlannerDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matatu_planner_duration_seconds",
			Help:    "Planner operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation"}, // whitelist, search, expand
	)

	r.PlannerPaths = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matatu_planner_paths",
			Help:    "Station paths returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	r.IndexRebuildsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "matatu_planner_index_rebuilds_total",
			Help: "Search index rebuilds by reason",
		},
		[]string{"reason"}, // cold, expired, generation, invalidated
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "matatu_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matatu_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// Gatherer exposes the underlying registry, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordWalk records one foot router call
func (r *Registry) RecordWalk(outcome string, duration time.Duration) {
	r.WalkRequestsTotal.WithLabelValues(outcome).Inc()
	r.WalkRequestDuration.Observe(duration.Seconds())
}

// RecordTransferEdge counts an edge written in a phase
func (r *Registry) RecordTransferEdge(phase int) {
	r.TransferEdgesTotal.WithLabelValues(strconv.Itoa(phase)).Inc()
}

// RecordPlanner records a planner operation
func (r *Registry) RecordPlanner(operation string, duration time.Duration) {
	r.PlannerDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIndexRebuild counts a search index rebuild
func (r *Registry) RecordIndexRebuild(reason string) {
	r.IndexRebuildsTotal.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records a served request
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
