package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Weather provider call rate per endpoint (search, forecast). Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Provider latency per request. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts against the provider. Only non-zero when retries are configured.
	WeatherAPIRetriesTotal prometheus.Counter

	// Provider failures by category (see client.CategorizeError).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Weather requests by outcome: skipped (fresh), fulfilled, rejected.
	// skipped/(total) is the effective staleness hit rate.
	WeatherRequestsTotal *prometheus.CounterVec

	// Fetches started while another fetch for the same key was already in flight.
	WeatherDuplicateFetchesTotal prometheus.Counter

	// Search requests by outcome.
	SearchRequestsTotal *prometheus.CounterVec

	// Cached entities currently held by the store.
	WeatherEntities prometheus.Gauge

	// Favorites currently held by the store.
	FavoritesCount prometheus.Gauge

	// Swallowed persistence failures by operation. Never surfaced to users.
	PersistenceErrorsTotal *prometheus.CounterVec

	// Favorites refresh sweeps and their failures.
	FavoritesRefreshTotal       prometheus.Counter
	FavoritesRefreshErrorsTotal prometheus.Counter
	FavoritesRefreshDuration    prometheus.Histogram

	// Circuit breaker state (0 closed, 1 open, 2 half-open) and transitions.
	CircuitBreakerState       *prometheus.GaugeVec
	CircuitBreakerTransitions *prometheus.CounterVec

	// Rate limit denials. Watch for: overload.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of weather provider calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weather provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather provider calls",
		},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Weather provider failures by error category",
		},
		[]string{"category"},
	)
	WeatherRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherRequestsTotal",
			Help: "Weather requests handled by the store, by outcome (skipped, fulfilled, rejected)",
		},
		[]string{"outcome"},
	)
	WeatherDuplicateFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherDuplicateFetchesTotal",
			Help: "Fetches dispatched while another fetch for the same location was in flight",
		},
	)
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchRequestsTotal",
			Help: "Place searches handled by the store, by outcome",
		},
		[]string{"outcome"},
	)
	WeatherEntities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherEntities",
			Help: "Number of cached weather entities",
		},
	)
	FavoritesCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "favoritesCount",
			Help: "Number of favorite locations",
		},
	)
	PersistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistenceErrorsTotal",
			Help: "Swallowed persistence failures by operation",
		},
		[]string{"op"},
	)
	FavoritesRefreshTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "favoritesRefreshTotal",
			Help: "Total number of favorites refresh sweeps",
		},
	)
	FavoritesRefreshErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "favoritesRefreshErrorsTotal",
			Help: "Favorites refresh sweeps with at least one rejected location",
		},
	)
	FavoritesRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "favoritesRefreshDurationSeconds",
			Help:    "Duration of a favorites refresh sweep",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30},
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal, WeatherAPIErrorsTotal,
		WeatherRequestsTotal, WeatherDuplicateFetchesTotal, SearchRequestsTotal,
		WeatherEntities, FavoritesCount,
		PersistenceErrorsTotal,
		FavoritesRefreshTotal, FavoritesRefreshErrorsTotal, FavoritesRefreshDuration,
		CircuitBreakerState, CircuitBreakerTransitions,
		RateLimitDeniedTotal,
	)
}

// RecordCircuitBreakerTransition counts a transition and updates the state gauge.
func RecordCircuitBreakerTransition(component, from, to string, toValue int) {
	CircuitBreakerTransitions.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(float64(toValue))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
