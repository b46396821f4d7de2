package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest job outcomes.
const (
	IngestStored       = "stored"
	IngestDuplicate    = "duplicate"
	IngestRetried      = "retried"
	IngestDropped      = "dropped"
	IngestDeadLettered = "dead_lettered"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Feeds
	FeedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_build_duration_seconds",
			Help:    "Time to assemble one feed page, fetch and signing included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	FeedPageItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_page_items",
			Help:    "Items (groups or clips) returned per feed page",
			Buckets: []float64{0, 1, 2, 5, 10, 12, 20, 30, 50},
		},
		[]string{"feed"},
	)

	URLCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signed_url_cache_hits_total",
			Help: "Signed URLs served from cache",
		},
	)

	URLCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signed_url_cache_misses_total",
			Help: "Signed URLs that had to be presigned",
		},
	)

	// Ingest
	IngestJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_ingest_jobs_total",
			Help: "Clip ingest jobs by outcome",
		},
		[]string{"result"},
	)

	// Realtime
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Open WebSocket connections on this instance",
		},
	)
)

// ObserveRequest records one HTTP request.
func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveFeed records one feed page.
func ObserveFeed(feed string, items int, d time.Duration) {
	FeedDuration.WithLabelValues(feed).Observe(d.Seconds())
	FeedPageItems.WithLabelValues(feed).Observe(float64(items))
}

// RecordIngest counts one ingest job outcome.
func RecordIngest(result string) {
	IngestJobs.WithLabelValues(result).Inc()
}
