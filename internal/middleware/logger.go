package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/metrics"
	"github.com/user/gunvortv/internal/utils"
)

// Logger request log and HTTP metrics
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// route template keeps metric cardinality bounded
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, route, status, latency)

		event := logging.Info()
		switch {
		case status >= 500:
			event = logging.Error()
		case status >= 400:
			event = logging.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("client", utils.HashIP(c.ClientIP())).
			Msg("[HTTP] request")
	}
}
