package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Client performance beacons (web vitals)
	WebVitals = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kolnoa_web_vitals",
			Help:    "Web vitals reported by browsers (milliseconds, CLS is unitless)",
			Buckets: []float64{0.05, 0.1, 0.25, 50, 100, 200, 500, 1000, 1800, 2500, 4000, 8000},
		},
		[]string{"name", "rating"},
	)

	BeaconsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolnoa_beacons_total",
			Help: "Total number of performance beacons received",
		},
		[]string{"name", "outcome"},
	)

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolnoa_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kolnoa_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolnoa_rate_limit_hits_total",
			Help: "Total number of requests rejected by a rate limiter",
		},
		[]string{"route"},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolnoa_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolnoa_cache_misses_total",
			Help: "Total number of cache misses, expired entries included",
		},
		[]string{"backend"},
	)

	// Movieshows sync
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolnoa_sync_runs_total",
			Help: "Total number of movieshows sync runs",
		},
		[]string{"status"},
	)

	SyncShowtimes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kolnoa_sync_showtimes",
			Help: "Number of showtimes imported by the last successful sync",
		},
	)
)
