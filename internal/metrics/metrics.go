package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cirruslabs/catcache/internal/origin"
)

const namespace = "catcache"

type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	originFetches   *prometheus.CounterVec
}

// New creates a set of collectors registered in their own registry,
// so that multiple servers can co-exist within a single process.
func New() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"method", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests handled",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of images served from the cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of images not found in the cache",
		}),
		originFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "origin_fetches_total",
				Help:      "Total number of origin fetches by result",
			},
			[]string{"result"},
		),
	}

	metrics.registry.MustRegister(
		metrics.requestTotal,
		metrics.requestDuration,
		metrics.cacheHits,
		metrics.cacheMisses,
		metrics.originFetches,
	)

	return metrics
}

func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})
}

// Middleware records every request's outcome and duration.
func (metrics *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Let the error handler produce the response first,
			// otherwise we'll record the status code that wasn't sent
			if err != nil {
				c.Error(err)
			}

			metrics.ObserveRequest(c.Request().Method, c.Response().Status, time.Since(start))

			// Outer middleware (e.g. access log) still gets to see the error,
			// the already committed response won't be written twice
			return err
		}
	}
}

func (metrics *Metrics) ObserveRequest(method string, code int, duration time.Duration) {
	metrics.requestTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	metrics.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (metrics *Metrics) IncCacheHit() {
	metrics.cacheHits.Inc()
}

func (metrics *Metrics) IncCacheMiss() {
	metrics.cacheMisses.Inc()
}

// ObserveOriginFetch classifies the outcome of an origin fetch.
func (metrics *Metrics) ObserveOriginFetch(err error) {
	result := "success"

	switch {
	case err == nil:
	case errors.Is(err, origin.ErrFetch):
		result = "failure"
	default:
		result = "error"
	}

	metrics.originFetches.WithLabelValues(result).Inc()
}
