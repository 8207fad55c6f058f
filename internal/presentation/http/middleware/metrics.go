package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
)

// MetricsMiddleware records request counts and latency by route template so
// till ids do not explode label cardinality.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
