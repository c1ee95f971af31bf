package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/eventloop"
	"github.com/plutoqz/ruoyi-f/internal/layerio"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/mapadapter"
	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
	"github.com/plutoqz/ruoyi-f/internal/session"
	"github.com/plutoqz/ruoyi-f/internal/store"
)

// Response：统一响应信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Message: "created", Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Code: status, Message: msg})
}

func badRequest(c *gin.Context, err error) { fail(c, http.StatusBadRequest, err.Error()) }

func unavailable(c *gin.Context, what string) {
	fail(c, http.StatusServiceUnavailable, what+" not configured")
}

// 文档注释：领域错误到 HTTP 状态的映射
// 约束：未识别的错误按 500 处理并记录日志，响应中不暴露细节。
func failErr(c *gin.Context, err error) {
	var sle *sdkloader.ScriptLoadError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrTooManySessions):
		fail(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, mapadapter.ErrUnknownProvider),
		errors.Is(err, mapadapter.ErrEmptyGeoJSON),
		errors.Is(err, mapadapter.ErrInvalidTheme),
		errors.Is(err, session.ErrBadGesture),
		errors.Is(err, session.ErrGestureUnsupported),
		errors.Is(err, session.ErrThemeUnsupported),
		errors.Is(err, layerio.ErrUnsupportedFile),
		errors.Is(err, layerio.ErrNoShapefile),
		errors.Is(err, layerio.ErrUnknownCRS),
		errors.Is(err, layerio.ErrTooManyFeatures):
		badRequest(c, err)
	case errors.Is(err, mapadapter.ErrNotReady),
		errors.Is(err, mapadapter.ErrDestroyed),
		errors.Is(err, mapadapter.ErrAlreadyInitialized),
		errors.Is(err, mapsdk.ErrNoActiveTool),
		errors.Is(err, mapsdk.ErrMapDestroyed),
		errors.Is(err, eventloop.ErrClosed):
		fail(c, http.StatusConflict, err.Error())
	case errors.As(err, &sle):
		fail(c, http.StatusBadGateway, err.Error())
	default:
		logger.L().Error("api_internal_error", "path", c.FullPath(), "err", err)
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
