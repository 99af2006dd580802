package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	ports "diamond-price-service/internal/core/ports/output"
)

// Metrics records one observation per request, labelled by the matched route
// template so unknown paths cannot blow up label cardinality.
func Metrics(rec ports.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
