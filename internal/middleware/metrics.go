package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certtrack-api/internal/service"
)

// Metrics records per-request counters and latency histograms. The route
// template is used as the label so /certifications/:id does not explode
// cardinality with one series per certification id.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// Unmatched routes (404s) have no template.
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
