// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records HTTP and domain metrics.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	registrations prometheus.Counter
	logins        prometheus.Counter
	postsCreated  prometheus.Counter
	likeToggles   prometheus.Counter
	comments      prometheus.Counter
	followToggles prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vekonnect_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vekonnect_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vekonnect_registrations_total",
			Help: "Total number of successful registrations",
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vekonnect_logins_total",
			Help: "Total number of successful logins",
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vekonnect_posts_created_total",
			Help: "Total number of posts created",
		}),
		likeToggles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vekonnect_like_toggles_total",
			Help: "Total number of like toggle operations",
		}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vekonnect_comments_total",
			Help: "Total number of comments added",
		}),
		followToggles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vekonnect_follow_toggles_total",
			Help: "Total number of follow toggle operations",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.registrations,
		c.logins,
		c.postsCreated,
		c.likeToggles,
		c.comments,
		c.followToggles,
	)

	return c
}

// RecordRegistration increments the registration counter.
func (c *Collector) RecordRegistration() { c.registrations.Inc() }

// RecordLogin increments the login counter.
func (c *Collector) RecordLogin() { c.logins.Inc() }

// RecordPostCreated increments the post creation counter.
func (c *Collector) RecordPostCreated() { c.postsCreated.Inc() }

// RecordLikeToggle increments the like toggle counter.
func (c *Collector) RecordLikeToggle() { c.likeToggles.Inc() }

// RecordComment increments the comment counter.
func (c *Collector) RecordComment() { c.comments.Inc() }

// RecordFollowToggle increments the follow toggle counter.
func (c *Collector) RecordFollowToggle() { c.followToggles.Inc() }

// GinMiddleware records request counts and latency per route.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		c.httpRequests.WithLabelValues(
			ctx.Request.Method,
			route,
			strconv.Itoa(ctx.Writer.Status()),
		).Inc()
		c.httpLatency.WithLabelValues(ctx.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}

// Handler returns the /metrics endpoint handler for this collector's registry.
func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
