package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"quicksell/internal/metrics"
)

// Metrics records request counts and latencies per route pattern.
// Requests that matched no route are labelled "unknown".
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		collector.HTTPRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		collector.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
