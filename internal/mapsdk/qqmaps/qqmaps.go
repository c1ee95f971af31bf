// 包 qqmaps：腾讯地图 JS API v2 能力契约的进程内实现
// 背景：坐标为 GCJ-02，LatLng 构造参数纬度在前；覆盖物通过 SetMap 挂载，事件经由 event 函数绑定。
package qqmaps

import (
	"errors"

	"github.com/paulmach/orb"

	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
)

// LatLng：纬度在前的 GCJ-02 坐标
type LatLng struct {
	lat float64
	lng float64
}

func NewLatLng(lat, lng float64) LatLng { return LatLng{lat: lat, lng: lng} }

func (p LatLng) GetLat() float64 { return p.lat }
func (p LatLng) GetLng() float64 { return p.lng }

func (p LatLng) point() orb.Point { return orb.Point{p.lng, p.lat} }

// LatLngBounds：经纬度范围
type LatLngBounds struct {
	b     orb.Bound
	empty bool
}

func NewLatLngBounds() *LatLngBounds { return &LatLngBounds{empty: true} }

func (lb *LatLngBounds) Extend(p LatLng) {
	if lb.empty {
		lb.b = p.point().Bound()
		lb.empty = false
		return
	}
	lb.b = lb.b.Extend(p.point())
}

func (lb *LatLngBounds) IsEmpty() bool { return lb.empty }

func (lb *LatLngBounds) Contains(p LatLng) bool { return !lb.empty && lb.b.Contains(p.point()) }

func (lb *LatLngBounds) Intersects(o *LatLngBounds) bool {
	return !lb.empty && !o.empty && lb.b.Intersects(o.b)
}

// Color：RGBA 颜色
type Color struct {
	R, G, B uint8
	A       float64
}

func NewColor(r, g, b uint8, a float64) Color { return Color{R: r, G: g, B: b, A: a} }

// MapOptions：地图构造参数
type MapOptions struct {
	Center         LatLng
	Zoom           float64
	MapTypeControl bool
	PanControl     bool
	ZoomControl    bool
	Viewport       mapsdk.Viewport
}

// MouseEvent：点击事件
type MouseEvent struct {
	LatLng LatLng
	Target any
}

// 文档注释：地图实例
// 约束：非并发安全；Destroy 后覆盖物全部脱离地图。
type Map struct {
	container string
	opts      MapOptions
	center    LatLng
	zoom      float64
	polygons  []*Polygon
	managers  []*DrawingManager
	info      *InfoWindow
	ev        mapsdk.Emitter
	destroyed bool
}

// NewMap：在容器上创建地图
func NewMap(container string, o MapOptions) (*Map, error) {
	if container == "" {
		return nil, mapsdk.ErrEmptyContainer
	}
	if o.Zoom == 0 {
		o.Zoom = 10
	}
	if o.Viewport.Width == 0 {
		o.Viewport = mapsdk.DefaultViewport
	}
	return &Map{container: container, opts: o, center: o.Center, zoom: o.Zoom}, nil
}

func (m *Map) GetCenter() LatLng  { return m.center }
func (m *Map) GetZoom() float64   { return m.zoom }
func (m *Map) SetCenter(c LatLng) { m.center = c }
func (m *Map) SetZoom(z float64)  { m.zoom = z }

// FitBounds：调整视野以容纳范围（SDK 默认无内边距，最大级别 18）
func (m *Map) FitBounds(lb *LatLngBounds) {
	if m.destroyed || lb == nil || lb.empty {
		return
	}
	c, z := mapsdk.FitLonLat(lb.b, m.opts.Viewport, mapsdk.Padding{}, 18)
	m.center = NewLatLng(c[1], c[0])
	m.zoom = z
}

// Overlays：当前挂载的多边形
func (m *Map) Overlays() []*Polygon { return append([]*Polygon(nil), m.polygons...) }

func (m *Map) attach(p *Polygon) {
	for _, x := range m.polygons {
		if x == p {
			return
		}
	}
	m.polygons = append(m.polygons, p)
}

func (m *Map) detach(p *Polygon) {
	for i, x := range m.polygons {
		if x == p {
			m.polygons = append(m.polygons[:i], m.polygons[i+1:]...)
			return
		}
	}
}

// 文档注释：模拟一次点击
// 背景：自顶向下命中第一个可见多边形时触发其 click，否则触发地图 click。
func (m *Map) Click(p LatLng) error {
	if m.destroyed {
		return mapsdk.ErrMapDestroyed
	}
	for i := len(m.polygons) - 1; i >= 0; i-- {
		pg := m.polygons[i]
		if pg.visible && pg.contains(p) {
			pg.ev.Emit("click", MouseEvent{LatLng: p, Target: pg})
			return nil
		}
	}
	m.ev.Emit("click", MouseEvent{LatLng: p})
	return nil
}

// Destroy：清空容器，所有覆盖物脱离地图，幂等
func (m *Map) Destroy() {
	if m.destroyed {
		return
	}
	for _, p := range append([]*Polygon(nil), m.polygons...) {
		p.SetMap(nil)
	}
	for _, d := range append([]*DrawingManager(nil), m.managers...) {
		d.SetMap(nil)
	}
	if m.info != nil {
		m.info.Close()
	}
	m.ev.OffAll("")
	m.destroyed = true
}

func (m *Map) Destroyed() bool { return m.destroyed }

// PolygonOptions：多边形参数
type PolygonOptions struct {
	Path         []LatLng
	Map          *Map
	FillColor    Color
	StrokeColor  Color
	StrokeWeight float64
	Visible      *bool
}

// Polygon：多边形覆盖物
type Polygon struct {
	path    []LatLng
	opts    PolygonOptions
	m       *Map
	visible bool
	ev      mapsdk.Emitter
}

func NewPolygon(o PolygonOptions) *Polygon {
	p := &Polygon{path: append([]LatLng(nil), o.Path...), opts: o, visible: true}
	if o.Visible != nil {
		p.visible = *o.Visible
	}
	if o.Map != nil {
		p.SetMap(o.Map)
	}
	return p
}

// GetPath：路径副本
func (p *Polygon) GetPath() []LatLng { return append([]LatLng(nil), p.path...) }

// SetMap：挂载到地图，nil 表示移除
func (p *Polygon) SetMap(m *Map) {
	if p.m == m {
		return
	}
	if p.m != nil {
		p.m.detach(p)
	}
	p.m = m
	if m != nil && !m.destroyed {
		m.attach(p)
	}
}

func (p *Polygon) GetMap() *Map               { return p.m }
func (p *Polygon) SetVisible(v bool)          { p.visible = v }
func (p *Polygon) GetVisible() bool           { return p.visible }
func (p *Polygon) GetOptions() PolygonOptions { return p.opts }

// GetBounds：路径范围
func (p *Polygon) GetBounds() *LatLngBounds {
	lb := NewLatLngBounds()
	for _, x := range p.path {
		lb.Extend(x)
	}
	return lb
}

func (p *Polygon) contains(pt LatLng) bool {
	r := make(orb.Ring, len(p.path))
	for i, x := range p.path {
		r[i] = x.point()
	}
	return mapsdk.PolygonContains([]orb.Ring{mapsdk.CloseRing(r)}, pt.point())
}

// InfoWindowOptions：信息窗体参数；Map 非空时构造即打开
type InfoWindowOptions struct {
	Map      *Map
	Content  string
	Position LatLng
}

// InfoWindow：信息窗体，同一地图只保留一个打开的窗体
type InfoWindow struct {
	opts InfoWindowOptions
	open bool
}

func NewInfoWindow(o InfoWindowOptions) *InfoWindow {
	w := &InfoWindow{opts: o}
	if o.Map != nil {
		w.Open()
	}
	return w
}

func (w *InfoWindow) Open() {
	m := w.opts.Map
	if m == nil || m.destroyed {
		return
	}
	if m.info != nil && m.info != w {
		m.info.Close()
	}
	m.info = w
	w.open = true
}

func (w *InfoWindow) Close() {
	if !w.open {
		return
	}
	w.open = false
	if m := w.opts.Map; m != nil && m.info == w {
		m.info = nil
	}
}

func (w *InfoWindow) IsOpen() bool        { return w.open }
func (w *InfoWindow) GetContent() string  { return w.opts.Content }
func (w *InfoWindow) GetPosition() LatLng { return w.opts.Position }

// ErrUnsupportedTarget：该对象不支持事件绑定
var ErrUnsupportedTarget = errors.New("event target not supported")
