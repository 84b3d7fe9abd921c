package middleware

import (
	"time"

	"Lee_Library/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const TraceHeader = "X-Trace-ID"

// RequestLogger 记录每个请求并上报耗时；沿用或生成 X-Trace-ID
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Header(TraceHeader, traceID)

		c.Next()

		status := c.Writer.Status()
		d := time.Since(start)
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), status, d)

		entry := log.WithFields(logrus.Fields{
			"trace":   traceID,
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": d.String(),
		})
		if uid := UserID(c); uid != 0 {
			entry = entry.WithField("user", uid)
		}
		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
