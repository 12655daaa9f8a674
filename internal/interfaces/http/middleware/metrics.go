package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campaign-ai-api/pkg/metrics"
)

// Metrics 采集 HTTP 指标；skipPath（通常是 /metrics 自身）不计入
func Metrics(skipPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipPath != "" && c.Request.URL.Path == skipPath {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method
		if size := c.Request.ContentLength; size > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, routeLabel(c)).Observe(float64(size))
		}

		c.Next()

		// 未匹配路由统一归为一个标签，避免高基数
		path := routeLabel(c)
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
