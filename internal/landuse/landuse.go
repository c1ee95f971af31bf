// 包 landuse：依据 OSM 的 landuse / leisure 标注为图斑建议土地类型
package landuse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/serjvanilla/go-overpass"

	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
	"github.com/plutoqz/ruoyi-f/internal/penalty"
)

var ErrEmptyPolygon = errors.New("polygon has no ring")

// 归入耕地的 landuse 取值
var cultivatedTags = map[string]bool{
	"farmland":                true,
	"orchard":                 true,
	"greenhouse_horticulture": true,
	"paddy":                   true,
}

const (
	noteBasicFarmland = "基本农田无法由 OSM 标注判定，请以永久基本农田划定成果核实"
	noteNoData        = "范围内没有 OSM 用地标注"
	sourceOSM         = "osm"
	samplesPerSide    = 24
	cellPrecision     = 6
)

// Suggestion：土地类型建议
type Suggestion struct {
	LandType string  `json:"landType"`
	Tag      string  `json:"tag,omitempty"`
	Coverage float64 `json:"coverage"`
	Ways     int     `json:"ways"`
	Source   string  `json:"source"`
	Note     string  `json:"note,omitempty"`
	Cached   bool    `json:"cached"`
}

// Querier：Overpass 查询接口，*overpass.Client 满足
type Querier interface {
	Query(query string) (overpass.Result, error)
}

// Service：Overpass 客户端与网格缓存
type Service struct {
	q       Querier
	cache   *LRU[Suggestion]
	timeout time.Duration
}

// NewOverpass：按端点构造使用 go-overpass 的服务
func NewOverpass(endpoint string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	c := overpass.NewWithSettings(endpoint, 2, &http.Client{Timeout: timeout})
	return New(&c, timeout)
}

func New(q Querier, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Service{q: q, cache: NewLRU[Suggestion](4096, 30*time.Minute), timeout: timeout}
}

// 文档注释：为 WGS84 多边形建议土地类型
// 背景：以外包框查询 landuse/leisure 闭合路径，在图斑内规则取样统计各标注的覆盖比例，取覆盖最大者。
// 约束：结果按质心 geohash(6) 缓存；没有标注时返回其他土地且覆盖为 0。
func (s *Service) Suggest(ctx context.Context, poly orb.Polygon) (Suggestion, error) {
	if len(poly) == 0 || len(poly[0]) < 3 {
		return Suggestion{}, ErrEmptyPolygon
	}
	c, _ := planar.CentroidArea(poly)
	key := geohash(c.Lat(), c.Lon(), cellPrecision)
	if v, ok := s.cache.Get(key); ok {
		v.Cached = true
		return v, nil
	}
	b := poly.Bound()
	res, err := s.query(ctx, buildQuery(b))
	if err != nil {
		return Suggestion{}, err
	}
	sg := classify(poly, areasOf(res))
	s.cache.Set(key, sg)
	logger.L().Debug("landuse_suggest", "cell", key, "land_type", sg.LandType, "tag", sg.Tag, "coverage", sg.Coverage)
	return sg, nil
}

// SuggestBound：以矩形范围为图斑
func (s *Service) SuggestBound(ctx context.Context, b orb.Bound) (Suggestion, error) {
	return s.Suggest(ctx, b.ToPolygon())
}

func buildQuery(b orb.Bound) string {
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	return fmt.Sprintf(`[out:json][timeout:25];
(
	way["landuse"](%s);
	way["leisure"](%s);
);
out body;
>;
out skel qt;`, bbox, bbox)
}

// go-overpass 不接受 ctx，查询放在独立 goroutine 中以便按 ctx 放弃等待
func (s *Service) query(ctx context.Context, q string) (overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	type out struct {
		r   overpass.Result
		err error
	}
	ch := make(chan out, 1)
	t0 := time.Now()
	go func() {
		r, err := s.q.Query(q)
		ch <- out{r, err}
	}()
	select {
	case o := <-ch:
		metrics.OverpassDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
		if o.err != nil {
			metrics.OverpassRequestsTotal.WithLabelValues("error").Inc()
			logger.L().Error("overpass_error", "err", o.err)
			return overpass.Result{}, fmt.Errorf("overpass query: %w", o.err)
		}
		metrics.OverpassRequestsTotal.WithLabelValues("ok").Inc()
		return o.r, nil
	case <-ctx.Done():
		metrics.OverpassRequestsTotal.WithLabelValues("timeout").Inc()
		return overpass.Result{}, fmt.Errorf("overpass query: %w", ctx.Err())
	}
}

type taggedArea struct {
	tag   string
	ring  orb.Ring
	bound orb.Bound
}

// areasOf：把闭合路径转为带标注的环；缺节点坐标或未闭合的路径跳过
func areasOf(r overpass.Result) []taggedArea {
	ids := make([]int64, 0, len(r.Ways))
	for id := range r.Ways {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []taggedArea
	for _, id := range ids {
		w := r.Ways[id]
		tag := w.Tags["landuse"]
		if tag == "" {
			tag = "leisure=" + w.Tags["leisure"]
		}
		if len(w.Nodes) < 4 || w.Nodes[0] != w.Nodes[len(w.Nodes)-1] {
			continue
		}
		ring := make(orb.Ring, 0, len(w.Nodes))
		for _, n := range w.Nodes {
			if n == nil {
				ring = nil
				break
			}
			ring = append(ring, orb.Point{n.Lon, n.Lat})
		}
		if ring == nil {
			continue
		}
		out = append(out, taggedArea{tag: tag, ring: ring, bound: ring.Bound()})
	}
	return out
}

// 文档注释：在图斑内规则取样，统计各标注覆盖比例
// 约束：同一取样点落入多个路径时计入最先出现（编号最小）的路径。
func classify(poly orb.Polygon, areas []taggedArea) Suggestion {
	sg := Suggestion{LandType: penalty.LandOther, Source: sourceOSM, Ways: len(areas)}
	if len(areas) == 0 {
		sg.Note = noteNoData
		return sg
	}
	b := poly.Bound()
	dx := (b.Max.X() - b.Min.X()) / samplesPerSide
	dy := (b.Max.Y() - b.Min.Y()) / samplesPerSide
	hits := map[string]int{}
	inside := 0
	for i := 0; i < samplesPerSide; i++ {
		for j := 0; j < samplesPerSide; j++ {
			p := orb.Point{b.Min.X() + (float64(i)+0.5)*dx, b.Min.Y() + (float64(j)+0.5)*dy}
			if !planar.PolygonContains(poly, p) {
				continue
			}
			inside++
			for _, a := range areas {
				if a.bound.Contains(p) && planar.RingContains(a.ring, p) {
					hits[a.tag]++
					break
				}
			}
		}
	}
	if inside == 0 {
		sg.Note = noteNoData
		return sg
	}
	best, bestN := "", 0
	for tag, n := range hits {
		if n > bestN || (n == bestN && tag < best) {
			best, bestN = tag, n
		}
	}
	if bestN == 0 {
		sg.Note = noteNoData
		return sg
	}
	sg.Tag = best
	sg.Coverage = float64(bestN) / float64(inside)
	if cultivatedTags[best] {
		sg.LandType = penalty.LandCultivated
		sg.Note = noteBasicFarmland
	}
	return sg
}
