package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/coord"
)

type transformRequest struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	GeoJSON json.RawMessage `json:"geojson" binding:"required"`
}

// 文档注释：GeoJSON 坐标系转换
// 约束：只改写 coordinates，其余成员原样保留；未知坐标系返回 400。
func (h *handlers) coordTransform(c *gin.Context) {
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fn, found := coord.ByName(req.From, req.To)
	if !found {
		badRequest(c, fmt.Errorf("unknown crs pair %q -> %q", req.From, req.To))
		return
	}
	out, err := coord.TransformGeoJSONBytes(req.GeoJSON, fn)
	if err != nil {
		badRequest(c, err)
		return
	}
	ok(c, gin.H{"from": coord.NormalizeName(req.From), "to": coord.NormalizeName(req.To), "geojson": json.RawMessage(out)})
}

type pointRequest struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Lng  float64 `json:"lng"`
	Lat  float64 `json:"lat"`
}

func (h *handlers) coordPoint(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fn, found := coord.ByName(req.From, req.To)
	if !found {
		badRequest(c, fmt.Errorf("unknown crs pair %q -> %q", req.From, req.To))
		return
	}
	lng, lat := fn(req.Lng, req.Lat)
	ok(c, gin.H{"lng": lng, "lat": lat, "outOfChina": coord.OutOfChina(req.Lng, req.Lat)})
}
