// 包 api：gin 路由与处理器，挂载在 API_BASE 之下
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/amap"
	"github.com/plutoqz/ruoyi-f/internal/cache"
	"github.com/plutoqz/ruoyi-f/internal/landuse"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
	"github.com/plutoqz/ruoyi-f/internal/middleware"
	"github.com/plutoqz/ruoyi-f/internal/region"
	"github.com/plutoqz/ruoyi-f/internal/session"
	"github.com/plutoqz/ruoyi-f/internal/store"
)

// 文档注释：路由依赖
// 约束：Store、Landuse、AMap、Region、Cache 均可为空，对应接口返回 503 或跳过该步骤；Sessions 必填。
type Deps struct {
	Store     *store.Store
	Cache     *cache.Cache
	Sessions  *session.Manager
	Landuse   *landuse.Service
	AMap      *amap.Client
	Region    *region.Searcher
	JWTSecret string
	Limiter   *middleware.TokenBucket
	Allow     *middleware.Allowlist
	// UploadLimit 为 0 时取 50MB
	UploadLimit int64
}

type handlers struct {
	d       Deps
	started time.Time
}

// 文档注释：构建 gin 引擎
// 背景：/health 与 /metrics 不经鉴权；其余接口按 JWT_SECRET 决定是否校验 Bearer 令牌。
func BuildRoutes(base string, d Deps) *gin.Engine {
	if d.UploadLimit <= 0 {
		d.UploadLimit = 50 << 20
	}
	h := &handlers{d: d, started: time.Now()}
	r := gin.New()
	r.Use(gin.Recovery(), logger.AccessMiddleware(logger.L()), middleware.AllowOnly(d.Allow))
	if d.Limiter != nil {
		r.Use(middleware.RateLimit(d.Limiter))
	}
	g := r.Group(base)
	g.GET("/health", h.health)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))

	a := g.Group("", middleware.Auth(d.JWTSecret))
	a.GET("/penalty/rules", h.penaltyRules)
	a.POST("/penalty/evaluate", h.penaltyEvaluate)

	a.POST("/cases", h.createCase)
	a.GET("/cases", h.recentCases)
	a.GET("/cases/stats", h.caseStats)
	a.GET("/cases/:no", h.getCase)

	a.POST("/coord/transform", h.coordTransform)
	a.POST("/coord/point", h.coordPoint)

	a.POST("/landuse/suggest", h.landuseSuggest)
	a.POST("/layers/import", h.layerImport)

	s := a.Group("/sessions")
	s.POST("", h.createSession)
	s.GET("", h.listSessions)
	s.DELETE("/:id", h.closeSession)
	s.GET("/:id/view", h.sessionView)
	s.POST("/:id/layers", h.addLayer)
	s.GET("/:id/layers", h.listLayers)
	s.DELETE("/:id/layers/:layer", h.removeLayer)
	s.PATCH("/:id/layers/:layer", h.toggleLayer)
	s.POST("/:id/box-select", h.enableBoxSelect)
	s.DELETE("/:id/box-select", h.disableBoxSelect)
	s.POST("/:id/info-query", h.enableInfoQuery)
	s.DELETE("/:id/info-query", h.disableInfoQuery)
	s.POST("/:id/polygon-draw", h.enablePolygonDraw)
	s.DELETE("/:id/polygon-draw", h.disablePolygonDraw)
	s.POST("/:id/theme", h.setTheme)
	s.POST("/:id/gestures", h.gesture)
	s.GET("/:id/events", h.events)
	s.GET("/:id/popup", h.popup)

	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "not found") })
	return r
}

func (h *handlers) health(c *gin.Context) {
	ok(c, gin.H{
		"status":   "ok",
		"uptime_s": int64(time.Since(h.started).Seconds()),
		"sessions": h.d.Sessions.Len(),
		"db":       h.d.Store != nil,
		"landuse":  h.d.Landuse != nil,
		"regeo":    h.d.AMap.Enabled(),
	})
}
