package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// Remote service calls
	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routerisk",
		Subsystem: "remote",
		Name:      "requests_total",
		Help:      "Calls issued to the route service by operation and outcome",
	}, []string{"operation", "outcome"})

	RemoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routerisk",
		Subsystem: "remote",
		Name:      "request_duration_seconds",
		Help:      "Route service call latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routerisk",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routerisk",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Superseded responses dropped by the generation check
	StaleDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routerisk",
		Subsystem: "query",
		Name:      "stale_responses_discarded_total",
		Help:      "Responses ignored because a newer request superseded them",
	}, []string{"slot"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routerisk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total bridge HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routerisk",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Bridge HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "path"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		code := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		} else if err != nil {
			code = fiber.StatusInternalServerError
		}
		status := strconv.Itoa(code)
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
