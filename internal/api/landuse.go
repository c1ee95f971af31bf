package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/landuse"
)

var errNoPolygon = errors.New("geojson or bbox with a polygon is required")

type landuseRequest struct {
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
	// BBox 为 [minLng, minLat, maxLng, maxLat]，WGS84
	BBox []float64 `json:"bbox,omitempty"`
}

// 文档注释：取请求中的图斑
// 约束：GeoJSON 优先，取第一个面要素；多面取面积最大的部分。
func (r landuseRequest) polygon() (orb.Polygon, error) {
	if len(r.GeoJSON) > 0 {
		fc, err := coord.ParseFeatureCollection(r.GeoJSON)
		if err != nil {
			return nil, err
		}
		for _, f := range fc.Features {
			switch g := f.Geometry.(type) {
			case orb.Polygon:
				return g, nil
			case orb.MultiPolygon:
				var best orb.Polygon
				var bestArea float64
				for _, p := range g {
					if a := planar.Area(p); best == nil || a > bestArea {
						best, bestArea = p, a
					}
				}
				if best != nil {
					return best, nil
				}
			}
		}
		return nil, errNoPolygon
	}
	if len(r.BBox) == 4 && r.BBox[0] < r.BBox[2] && r.BBox[1] < r.BBox[3] {
		return orb.Bound{Min: orb.Point{r.BBox[0], r.BBox[1]}, Max: orb.Point{r.BBox[2], r.BBox[3]}}.ToPolygon(), nil
	}
	return nil, errNoPolygon
}

func (h *handlers) landuseSuggest(c *gin.Context) {
	if h.d.Landuse == nil {
		unavailable(c, "landuse")
		return
	}
	var req landuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	poly, err := req.polygon()
	if err != nil {
		badRequest(c, err)
		return
	}
	sg, err := h.d.Landuse.Suggest(c.Request.Context(), poly)
	if err != nil {
		if errors.Is(err, landuse.ErrEmptyPolygon) {
			badRequest(c, err)
			return
		}
		fail(c, http.StatusBadGateway, err.Error())
		return
	}
	ok(c, sg)
}
