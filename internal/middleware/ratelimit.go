// 包 middleware：gin 中间件（令牌桶限流、JWT 鉴权）
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/logger"
)

// 文档注释：令牌桶（每秒补满）
// 背景：入口限速，避免地图会话与外部 REST 调用被突发流量压垮。
// 约束：不排队，超额请求直接 429；桶容量即每秒请求数。
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 200
	}
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

// Allow：取一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	sec := tb.now().Unix()
	if tb.lastSec != sec {
		tb.lastSec = sec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimit：gin 限流中间件
func RateLimit(tb *TokenBucket) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tb.Allow() {
			logger.L().Debug("rate_limited", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": http.StatusTooManyRequests, "message": "too many requests"})
			return
		}
		c.Next()
	}
}
