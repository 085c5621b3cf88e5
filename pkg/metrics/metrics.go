package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// TenantResolutions counts host lookups by outcome: subdomain, custom_domain, redirect, not_found, cache_hit.
	TenantResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolutions_total",
			Help: "Host header resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// LimitRejections counts creations blocked by a plan limit.
	LimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_limit_rejections_total",
			Help: "Creations rejected because the store reached its plan limit",
		},
		[]string{"kind"},
	)

	// Downgrades counts downgrade sweep results.
	Downgrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_downgrades_total",
			Help: "Stores processed by the downgrade sweep",
		},
		[]string{"result"},
	)
)

// Register registers every collector of this package on reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		RequestCounter,
		RequestDurationHistogram,
		TenantResolutions,
		LimitRejections,
		Downgrades,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Middleware records request count and duration per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := c.Route().Path
		statusStr := strconv.Itoa(status)

		RequestCounter.WithLabelValues(c.Method(), path, statusStr).Inc()
		RequestDurationHistogram.WithLabelValues(c.Method(), path, statusStr).Observe(time.Since(start).Seconds())

		return err
	}
}
