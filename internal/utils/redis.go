package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plutoqz/ruoyi-f/internal/config"
	"github.com/plutoqz/ruoyi-f/internal/logger"
)

// 文档注释：按配置打开 Redis 客户端
// 约束：未启用时返回 nil；Ping 失败只记录日志，客户端仍返回（go-redis 会自动重连）。
func OpenRedis(ctx context.Context, c config.Redis) *redis.Client {
	if !c.Enable {
		logger.L().Info("redis_disabled")
		return nil
	}
	rc := redis.NewClient(&redis.Options{Addr: c.Addr(), Password: c.Pass, DB: c.DB})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		logger.L().Error("redis_ping_error", "addr", c.Addr(), "err", err)
	} else {
		logger.L().Info("redis_ping_ok", "addr", c.Addr(), "db", c.DB)
	}
	return rc
}
