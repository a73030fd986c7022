package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route template, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// RunsStarted counts successful StartRun calls
	RunsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_runs_started_total", Help: "Runs started."},
	)
	// RunsCompleted counts successful FinalizeRun calls
	RunsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_runs_completed_total", Help: "Runs completed."},
	)
	// PositionsRecorded counts position ingestion outcomes
	PositionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_positions_total", Help: "Position ingestion attempts by outcome."},
		[]string{"outcome"},
	)
	// RoutesCreated counts routes by assembly mode
	RoutesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_routes_created_total", Help: "Routes created by mode."},
		[]string{"mode"},
	)

	// EventsPublished counts domain events by outcome
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_events_published_total", Help: "Domain events published by outcome."},
		[]string{"status"},
	)
	// EventsConnected is 1 while the event bus connection is up
	EventsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tracker_events_connected", Help: "Event bus connection state."},
	)

	// CacheLookups counts street cache hits and misses
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_cache_lookups_total", Help: "Street cache lookups by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the API registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RunsStarted)
		Registry.MustRegister(RunsCompleted)
		Registry.MustRegister(PositionsRecorded)
		Registry.MustRegister(RoutesCreated)
		Registry.MustRegister(EventsPublished)
		Registry.MustRegister(EventsConnected)
		Registry.MustRegister(CacheLookups)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes Registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
