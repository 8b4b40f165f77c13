package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/spooky-finn/liquidity-bridge/infrastructure/prometheus"
)

// PrometheusMiddleware records request duration by method, route and status.
func PrometheusMiddleware(metrics *promclient.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
