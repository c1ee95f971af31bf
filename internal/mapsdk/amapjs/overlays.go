package amapjs

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
)

// PolygonOptions：多边形样式与附加数据
type PolygonOptions struct {
	Path         []LngLat
	Holes        [][]LngLat
	FillColor    string
	FillOpacity  float64
	StrokeColor  string
	StrokeWeight float64
	ExtData      any
}

// ClickEvent：覆盖物点击事件
type ClickEvent struct {
	Target *Polygon
	LngLat LngLat
}

// 文档注释：多边形覆盖物
// 约束：Path 为外环，可不闭合；Holes 为内环。
type Polygon struct {
	opts    PolygonOptions
	visible bool
	m       *Map
	ev      mapsdk.Emitter
}

func NewPolygon(o PolygonOptions) *Polygon {
	return &Polygon{opts: o, visible: true}
}

// GetPath：外环路径副本
func (p *Polygon) GetPath() []LngLat {
	return append([]LngLat(nil), p.opts.Path...)
}

func (p *Polygon) GetExtData() any            { return p.opts.ExtData }
func (p *Polygon) SetExtData(v any)           { p.opts.ExtData = v }
func (p *Polygon) GetOptions() PolygonOptions { return p.opts }
func (p *Polygon) GetMap() *Map               { return p.m }
func (p *Polygon) Show()                      { p.visible = true }
func (p *Polygon) Hide()                      { p.visible = false }
func (p *Polygon) Visible() bool              { return p.visible }
func (p *Polygon) attach(m *Map)              { p.m = m }

func (p *Polygon) GetBounds() orb.Bound {
	pts := make([]orb.Point, len(p.opts.Path))
	for i, x := range p.opts.Path {
		pts[i] = x.point()
	}
	return mapsdk.PathBound(pts)
}

// On / Off：多边形事件（click）
func (p *Polygon) On(name string, fn mapsdk.Handler) int { return p.ev.On(name, fn) }
func (p *Polygon) Off(name string, id int)               { p.ev.Off(name, id) }

// Listeners：事件监听数量
func (p *Polygon) Listeners(name string) int { return p.ev.Listeners(name) }

// Contains：点是否落在多边形内（扣除内环）
func (p *Polygon) Contains(pt LngLat) bool {
	rings := []orb.Ring{toRing(p.opts.Path)}
	for _, h := range p.opts.Holes {
		rings = append(rings, toRing(h))
	}
	return mapsdk.PolygonContains(rings, pt.point())
}

func toRing(path []LngLat) orb.Ring {
	r := make(orb.Ring, len(path))
	for i, x := range path {
		r[i] = x.point()
	}
	return mapsdk.CloseRing(r)
}

// Marker：点覆盖物
type Marker struct {
	Position LngLat
	ExtData  any
	visible  bool
	m        *Map
}

func NewMarker(pos LngLat, ext any) *Marker { return &Marker{Position: pos, ExtData: ext, visible: true} }

func (k *Marker) GetBounds() orb.Bound { return k.Position.point().Bound() }
func (k *Marker) GetExtData() any      { return k.ExtData }
func (k *Marker) Show()                { k.visible = true }
func (k *Marker) Hide()                { k.visible = false }
func (k *Marker) Visible() bool        { return k.visible }
func (k *Marker) attach(m *Map)        { k.m = m }

// Rectangle：框选工具绘制出的矩形
type Rectangle struct {
	bounds  orb.Bound
	visible bool
	m       *Map
}

func (r *Rectangle) GetBounds() orb.Bound { return r.bounds }
func (r *Rectangle) Show()                { r.visible = true }
func (r *Rectangle) Hide()                { r.visible = false }
func (r *Rectangle) Visible() bool        { return r.visible }
func (r *Rectangle) attach(m *Map)        { r.m = m }

// GetMap：所在地图，卸载后为 nil
func (r *Rectangle) GetMap() *Map { return r.m }

// GeoJSONOptions：GeoJSON 图层构造参数
type GeoJSONOptions struct {
	GeoJSON *geojson.FeatureCollection
	// GetPolygon 为每个面（MultiPolygon 的每个部分）构造覆盖物；为空时使用默认样式
	GetPolygon func(f *geojson.Feature, path []LngLat, holes [][]LngLat) *Polygon
	GetMarker  func(f *geojson.Feature, pos LngLat) *Marker
}

// 文档注释：GeoJSON 覆盖物组
// 背景：按要素展开为 Polygon / Marker 子覆盖物；线要素不生成覆盖物。
type GeoJSON struct {
	children []Overlay
	visible  bool
	m        *Map
}

func NewGeoJSON(o GeoJSONOptions) *GeoJSON {
	g := &GeoJSON{visible: true}
	if o.GeoJSON == nil {
		return g
	}
	for _, f := range o.GeoJSON.Features {
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			g.addPolygon(o, f, geom)
		case orb.MultiPolygon:
			for _, part := range geom {
				g.addPolygon(o, f, part)
			}
		case orb.Point:
			pos := fromPoint(geom)
			var mk *Marker
			if o.GetMarker != nil {
				mk = o.GetMarker(f, pos)
			} else {
				mk = NewMarker(pos, f)
			}
			if mk != nil {
				g.children = append(g.children, mk)
			}
		}
	}
	return g
}

func (g *GeoJSON) addPolygon(o GeoJSONOptions, f *geojson.Feature, poly orb.Polygon) {
	if len(poly) == 0 {
		return
	}
	path := toPath(poly[0])
	var holes [][]LngLat
	for _, h := range poly[1:] {
		holes = append(holes, toPath(h))
	}
	var pg *Polygon
	if o.GetPolygon != nil {
		pg = o.GetPolygon(f, path, holes)
	} else {
		pg = NewPolygon(PolygonOptions{Path: path, Holes: holes, ExtData: f})
	}
	if pg != nil {
		g.children = append(g.children, pg)
	}
}

func toPath(r orb.Ring) []LngLat {
	out := make([]LngLat, len(r))
	for i, p := range r {
		out[i] = fromPoint(p)
	}
	return out
}

// EachOverlay：遍历子覆盖物
func (g *GeoJSON) EachOverlay(fn func(o Overlay)) {
	for _, c := range g.children {
		fn(c)
	}
}

func (g *GeoJSON) GetBounds() orb.Bound {
	var b orb.Bound
	for i, c := range g.children {
		if i == 0 {
			b = c.GetBounds()
		} else {
			b = b.Union(c.GetBounds())
		}
	}
	return b
}

// Show / Hide：作用于组内全部覆盖物
func (g *GeoJSON) Show() {
	g.visible = true
	for _, c := range g.children {
		c.Show()
	}
}

func (g *GeoJSON) Hide() {
	g.visible = false
	for _, c := range g.children {
		c.Hide()
	}
}

func (g *GeoJSON) Visible() bool { return g.visible }

func (g *GeoJSON) attach(m *Map) {
	g.m = m
	for _, c := range g.children {
		c.attach(m)
	}
}

// RingArea：球面环面积（平方米），对应 AMap.GeometryUtil.ringArea
func RingArea(path []LngLat) float64 {
	if len(path) < 3 {
		return 0
	}
	return math.Abs(geo.Area(toRing(path)))
}

// InfoWindowOptions：信息窗体参数
type InfoWindowOptions struct {
	IsCustom bool
	Content  string
	Offset   [2]float64
}

// 文档注释：信息窗体
// 约束：同一地图同时只有一个打开的信息窗体，打开新窗体会关闭旧窗体。
type InfoWindow struct {
	opts InfoWindowOptions
	pos  LngLat
	open bool
	m    *Map
}

func NewInfoWindow(o InfoWindowOptions) *InfoWindow { return &InfoWindow{opts: o} }

func (w *InfoWindow) Open(m *Map, pos LngLat) {
	if m == nil || m.destroyed {
		return
	}
	if m.info != nil && m.info != w {
		m.info.Close()
	}
	w.m, w.pos, w.open = m, pos, true
	m.info = w
}

func (w *InfoWindow) Close() {
	if !w.open {
		return
	}
	w.open = false
	if w.m != nil && w.m.info == w {
		w.m.info = nil
	}
}

func (w *InfoWindow) GetIsOpen() bool     { return w.open }
func (w *InfoWindow) GetContent() string  { return w.opts.Content }
func (w *InfoWindow) GetPosition() LngLat { return w.pos }
