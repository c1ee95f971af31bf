package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/mapadapter"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
	"github.com/plutoqz/ruoyi-f/internal/session"
)

type createSessionRequest struct {
	Provider sdkloader.Provider `json:"provider" binding:"required"`
	View     mapadapter.MapView `json:"view"`
}

func (h *handlers) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.d.Sessions.Create(c.Request.Context(), req.Provider, req.View)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, s.Info())
}

func (h *handlers) listSessions(c *gin.Context) {
	ok(c, gin.H{"sessions": h.d.Sessions.List()})
}

func (h *handlers) closeSession(c *gin.Context) {
	if err := h.d.Sessions.Close(c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"id": c.Param("id"), "closed": true})
}

// session：按路径参数取会话，失败时已写响应
func (h *handlers) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.d.Sessions.Get(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	return s, true
}

// do：在会话循环上执行 fn；出错时写错误响应
func (h *handlers) do(c *gin.Context, fn func(ctx context.Context, s *session.Session) error) bool {
	s, found := h.session(c)
	if !found {
		return false
	}
	if err := fn(c.Request.Context(), s); err != nil {
		failErr(c, err)
		return false
	}
	return true
}

func (h *handlers) sessionView(c *gin.Context) {
	var (
		view  *mapadapter.MapView
		state string
	)
	if !h.do(c, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error {
			view, state = a.MapView(), a.State().String()
			return nil
		})
	}) {
		return
	}
	ok(c, gin.H{"view": view, "state": state})
}

type addLayerRequest struct {
	mapadapter.LayerOptions
	// CRS 为 GeoJSON 的坐标系，空值按 wgs84
	CRS     string          `json:"crs"`
	GeoJSON json.RawMessage `json:"geojson" binding:"required"`
}

// 文档注释：添加 GeoJSON 图层
// 约束：非 WGS84 输入先转换再交给适配器；适配器只接受 WGS84。
func (h *handlers) addLayer(c *gin.Context) {
	var req addLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fn, found := coord.ByName(req.CRS, coord.WGS84)
	if !found {
		badRequest(c, fmt.Errorf("unknown crs %q", req.CRS))
		return
	}
	fc, err := coord.ParseFeatureCollection(req.GeoJSON)
	if err != nil {
		badRequest(c, err)
		return
	}
	fc = coord.TransformFeatureCollection(fc, fn)
	var id string
	if !h.do(c, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) (err error) {
			id, err = a.AddGeoJSONLayer(fc, req.LayerOptions)
			return err
		})
	}) {
		return
	}
	created(c, gin.H{"id": id, "features": len(fc.Features)})
}

func (h *handlers) listLayers(c *gin.Context) {
	var layers []mapadapter.LayerInfo
	if !h.do(c, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error {
			layers = a.Layers()
			return nil
		})
	}) {
		return
	}
	if layers == nil {
		layers = []mapadapter.LayerInfo{}
	}
	ok(c, gin.H{"layers": layers})
}

func (h *handlers) removeLayer(c *gin.Context) {
	id := c.Param("layer")
	if !h.do(c, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error {
			a.RemoveLayer(id)
			return nil
		})
	}) {
		return
	}
	ok(c, gin.H{"id": id, "removed": true})
}

type toggleRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (h *handlers) toggleLayer(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("layer")
	if !h.do(c, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error {
			a.ToggleLayerVisibility(id, *req.Visible)
			return nil
		})
	}) {
		return
	}
	ok(c, gin.H{"id": id, "visible": *req.Visible})
}

// tool：开关类接口的统一处理
func (h *handlers) tool(c *gin.Context, name string, enabled bool, fn func(ctx context.Context, s *session.Session) error) {
	if !h.do(c, fn) {
		return
	}
	ok(c, gin.H{"tool": name, "enabled": enabled})
}

func (h *handlers) enableBoxSelect(c *gin.Context) {
	h.tool(c, "box_select", true, func(ctx context.Context, s *session.Session) error {
		return s.EnableBoxSelect(ctx)
	})
}

func (h *handlers) disableBoxSelect(c *gin.Context) {
	h.tool(c, "box_select", false, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error {
			a.DisableBoxSelect()
			return nil
		})
	})
}

func (h *handlers) enableInfoQuery(c *gin.Context) {
	h.tool(c, "info_query", true, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error { return a.EnableInfoQuery() })
	})
}

func (h *handlers) disableInfoQuery(c *gin.Context) {
	h.tool(c, "info_query", false, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error {
			a.DisableInfoQuery()
			return nil
		})
	})
}

func (h *handlers) enablePolygonDraw(c *gin.Context) {
	h.tool(c, "polygon_draw", true, func(ctx context.Context, s *session.Session) error {
		return s.EnablePolygonDraw(ctx)
	})
}

func (h *handlers) disablePolygonDraw(c *gin.Context) {
	h.tool(c, "polygon_draw", false, func(ctx context.Context, s *session.Session) error {
		return s.Do(ctx, func(a mapadapter.Adapter) error {
			a.DisablePolygonDraw()
			return nil
		})
	})
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

func (h *handlers) setTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.do(c, func(ctx context.Context, s *session.Session) error {
		return s.SetTheme(ctx, req.Theme)
	}) {
		return
	}
	ok(c, gin.H{"theme": req.Theme})
}

func (h *handlers) gesture(c *gin.Context) {
	var g session.Gesture
	if err := c.ShouldBindJSON(&g); err != nil {
		badRequest(c, err)
		return
	}
	if !h.do(c, func(ctx context.Context, s *session.Session) error {
		return s.Gesture(ctx, g)
	}) {
		return
	}
	ok(c, gin.H{"kind": g.Kind})
}

// 文档注释：拉取会话事件
// 参数：after 为上次收到的最大序号；drain=true 时返回后清空收件箱。
func (h *handlers) events(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	after, _ := strconv.ParseInt(c.Query("after"), 10, 64)
	evs := s.Events(after, c.Query("drain") == "true")
	if evs == nil {
		evs = []session.Event{}
	}
	ok(c, gin.H{"events": evs})
}

func (h *handlers) popup(c *gin.Context) {
	var p *mapadapter.Popup
	if !h.do(c, func(ctx context.Context, s *session.Session) (err error) {
		p, err = s.Popup(ctx)
		return err
	}) {
		return
	}
	ok(c, gin.H{"popup": p})
}
