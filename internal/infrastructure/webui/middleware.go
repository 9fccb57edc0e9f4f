package webui

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bnema/touchicons/internal/infrastructure/metrics"
	"github.com/bnema/touchicons/internal/logging"
)

// requestLogger logs each request through the context logger and
// makes that logger available to handlers.
func requestLogger(ctx context.Context) gin.HandlerFunc {
	base := logging.FromContext(ctx)
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), *base))

		c.Next()

		status := c.Writer.Status()
		event := base.Debug()
		if status >= 500 {
			event = base.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// metricsMiddleware records request count and latency by route.
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
