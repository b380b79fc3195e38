// File: internal/middleware/metrics.go
package middleware

import (
	"time"

	"fitcoach_backend/internal/platform/metrics"

	"github.com/gin-gonic/gin"
)

// RequestMetrics records every request under its route template.
func RequestMetrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
