package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records latency and counts per route template, so
// /auth/activate/:token is one series however many tokens pass through.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPRequestsInFlight.Inc()
		start := time.Now()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start).Seconds()

		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(elapsed)
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
