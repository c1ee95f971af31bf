// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/amap"
	"github.com/plutoqz/ruoyi-f/internal/api"
	"github.com/plutoqz/ruoyi-f/internal/cache"
	"github.com/plutoqz/ruoyi-f/internal/config"
	"github.com/plutoqz/ruoyi-f/internal/landuse"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/middleware"
	"github.com/plutoqz/ruoyi-f/internal/migrate"
	"github.com/plutoqz/ruoyi-f/internal/penalty"
	"github.com/plutoqz/ruoyi-f/internal/region"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
	"github.com/plutoqz/ruoyi-f/internal/session"
	"github.com/plutoqz/ruoyi-f/internal/store"
	"github.com/plutoqz/ruoyi-f/internal/utils"
	"github.com/plutoqz/ruoyi-f/internal/version"
)

func main() {
	cfg := config.Load()
	l := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	l.Info("starting", "commit", version.Commit, "addr", cfg.Addr, "base", cfg.APIBase)
	if err := penalty.Validate(); err != nil {
		l.Error("penalty_rules_invalid", "err", err)
		os.Exit(1)
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 背景：数据库与 Redis 均为可选；未启用时案件接口返回 503，处罚评估不缓存
	var st *store.Store
	if cfg.PG.Enable {
		db, err := utils.OpenPostgres(ctx, cfg.PG)
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
	} else {
		l.Info("db_disabled")
	}
	rc := utils.OpenRedis(ctx, cfg.Redis)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
	}

	sdkloader.SetDefault(sdkloader.New(nil, cfg.SDKFetchTimeout))
	sessions := session.NewManager(session.Config{
		Credentials: map[sdkloader.Provider]sdkloader.Credentials{
			sdkloader.AMap:       {Key: cfg.AMapKey, SecurityCode: cfg.AMapSecurityCode},
			sdkloader.Tencent:    {Key: cfg.TencentKey},
			sdkloader.OpenLayers: {Key: cfg.TiandituKey},
		},
		BaseMap: cfg.OLProvider,
		IdleTTL: cfg.SessionIdle,
	})
	sessions.Start(ctx)

	rs, err := region.Open(cfg.IP2RegionPath)
	if err != nil {
		l.Error("ip2region_error", "err", err)
	} else if rs != nil {
		l.Info("ip2region_ready", "path", cfg.IP2RegionPath)
		defer rs.Close()
	}

	d := api.Deps{
		Store:     st,
		Cache:     cache.New(rc, cfg.PenaltyCacheTTL),
		Sessions:  sessions,
		Landuse:   landuse.NewOverpass(cfg.OverpassURL, cfg.OverpassTimeout),
		AMap:      amap.New(cfg.AMapServerKey, &http.Client{Timeout: 4 * time.Second}),
		Region:    rs,
		JWTSecret: cfg.JWTSecret,
	}
	if cfg.RateLimitEnabled {
		d.Limiter = middleware.NewTokenBucket(cfg.RateLimitQPS)
	}
	allow, err := middleware.NewAllowlist(cfg.AllowList, cfg.RealIPHeader)
	if err != nil {
		l.Error("allowlist_error", "err", err)
		os.Exit(1)
	}
	d.Allow = allow
	if cfg.JWTSecret == "" {
		l.Warn("auth_disabled", "reason", "JWT_SECRET empty")
	}
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.BuildRoutes(cfg.APIBase, d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if cfg.TLSEnable {
			if err := utils.EnsureSelfSignedCert(cfg.TLSCert, cfg.TLSKey, "ruoyi-f.local"); err != nil {
				errc <- err
				return
			}
			l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCert)
			errc <- s.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			return
		}
		l.Info("listening", "addr", cfg.Addr, "api", strings.TrimSuffix(cfg.APIBase, "/")+"/health")
		errc <- s.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server_error", "err", err)
			sessions.Shutdown()
			os.Exit(1)
		}
	case <-ctx.Done():
		l.Info("shutting_down")
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		l.Error("shutdown_error", "err", err)
	}
	sessions.Shutdown()
	l.Info("stopped")
}
