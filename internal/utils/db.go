// 包 utils：数据库、缓存与证书等外部资源的打开工具
package utils

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/plutoqz/ruoyi-f/internal/config"
	"github.com/plutoqz/ruoyi-f/internal/logger"
)

// 文档注释：按配置打开 PostgreSQL 连接池
// 约束：只建池并 Ping 一次；Ping 失败返回错误并关闭连接池。
func OpenPostgres(ctx context.Context, c config.Postgres) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", c.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(c.MaxOpen)
	db.SetMaxIdleConns(c.MaxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.L().Info("db_open_ok", "host", c.Host, "db", c.DB)
	return db, nil
}
