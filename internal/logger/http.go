package logger

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/metrics"
)

// 文档注释：gin 访问日志中间件
// 背景：统一记录方法、路由、状态、耗时、字节数与远端地址，并累计请求指标。
// 约束：不读取请求体；路由取 FullPath，未匹配的请求记为 "unmatched" 以免指标标签膨胀。
func AccessMiddleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
		metrics.RequestDurationMs.Observe(float64(dur.Milliseconds()))
		l.Debug("http_access",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", dur.Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}
