package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPResponseSize      prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Realtime metrics
	RealtimeConnections  prometheus.Gauge
	RealtimeEventsTotal  prometheus.CounterVec
	RealtimeDroppedTotal prometheus.CounterVec
	RealtimeRelayErrors  prometheus.CounterVec
	RealtimeInboundTotal prometheus.CounterVec

	// Feed metrics
	FeedResolveDuration prometheus.HistogramVec
	FeedPageDuration    prometheus.HistogramVec

	// Interaction metrics
	LikeTogglesTotal prometheus.CounterVec
	CommentsTotal    prometheus.CounterVec
	FollowsTotal     prometheus.CounterVec
	ItemsCreated     prometheus.CounterVec
	ItemsDeleted     prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Repair job metrics
	RepairRunsTotal    prometheus.CounterVec
	RepairFixedRecords prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			// HTTP metrics
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			// Realtime metrics
			RealtimeConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "realtime_connections",
					Help: "Number of open realtime sockets",
				},
			),
			RealtimeEventsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_events_total",
					Help: "Events published by type and scope",
				},
				[]string{"type", "scope"},
			),
			RealtimeDroppedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_dropped_total",
					Help: "Messages dropped because a client send buffer was full",
				},
				[]string{"type"},
			),
			RealtimeRelayErrors: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_relay_errors_total",
					Help: "Relay publish or decode failures",
				},
				[]string{"relay", "op"},
			),
			RealtimeInboundTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_inbound_total",
					Help: "Client to server messages by type",
				},
				[]string{"type"},
			),

			// Feed metrics
			FeedResolveDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_resolve_duration_seconds",
					Help:    "Reel context resolution latency",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"mode", "strategy"},
			),
			FeedPageDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_page_duration_seconds",
					Help:    "Feed page latency",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"kind", "mode"},
			),

			// Interaction metrics
			LikeTogglesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "like_toggles_total",
					Help: "Like toggles by kind and resulting state",
				},
				[]string{"kind", "liked"},
			),
			CommentsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comments_total",
					Help: "Total number of comments",
				},
				[]string{"kind"},
			),
			FollowsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "follows_total",
					Help: "Follow graph changes",
				},
				[]string{"action"},
			),
			ItemsCreated: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "items_created_total",
					Help: "Posts and reels created",
				},
				[]string{"kind"},
			),
			ItemsDeleted: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "items_deleted_total",
					Help: "Posts and reels deleted",
				},
				[]string{"kind"},
			),

			// Cache metrics
			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			// Rate limiting metrics
			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			// Repair job metrics
			RepairRunsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repair_runs_total",
					Help: "Repair job runs by outcome",
				},
				[]string{"status"},
			),
			RepairFixedRecords: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repair_fixed_records_total",
					Help: "Records corrected by the repair job",
				},
				[]string{"kind"},
			),

			// Error metrics
			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
