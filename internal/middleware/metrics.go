package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes latency and status per route template. Requests that match
// no route share one label so unknown paths cannot grow the series set, and
// paths listed in skip (the scrape endpoint) are not observed at all.
func Metrics(metrics *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
