// 包 amapjs：高德 JS API 2.0 能力契约的进程内实现
// 背景：坐标为 GCJ-02，顺序 [lng, lat]；覆盖物通过 Map.Add/Remove 挂载，交互工具为 MouseTool。
package amapjs

import (
	"github.com/paulmach/orb"

	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
)

// LngLat：GCJ-02 经纬度
type LngLat struct {
	Lng float64
	Lat float64
}

func (p LngLat) GetLng() float64 { return p.Lng }
func (p LngLat) GetLat() float64 { return p.Lat }

func (p LngLat) point() orb.Point { return orb.Point{p.Lng, p.Lat} }

func fromPoint(p orb.Point) LngLat { return LngLat{Lng: p[0], Lat: p[1]} }

// MapOptions：地图构造参数
type MapOptions struct {
	Center       LngLat
	Zoom         float64
	ViewMode     string
	ResizeEnable bool
	Viewport     mapsdk.Viewport
}

// MapEvent：地图级点击事件
type MapEvent struct {
	LngLat LngLat
}

// Overlay：可挂载到地图的覆盖物
type Overlay interface {
	GetBounds() orb.Bound
	Show()
	Hide()
	Visible() bool
	attach(m *Map)
}

// 文档注释：地图实例
// 约束：非并发安全；Destroy 后除查询外的调用均返回 ErrMapDestroyed 或忽略。
type Map struct {
	container string
	opts      MapOptions
	center    LngLat
	zoom      float64
	cursor    string
	overlays  []Overlay
	tools     []*MouseTool
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
	return &Map{container: container, opts: o, center: o.Center, zoom: o.Zoom, cursor: "grab"}, nil
}

func (m *Map) GetCenter() LngLat { return m.center }
func (m *Map) GetZoom() float64  { return m.zoom }

// GetContainer：容器标识
func (m *Map) GetContainer() string { return m.container }

// SetCursor / Cursor：容器鼠标样式
func (m *Map) SetCursor(c string) { m.cursor = c }
func (m *Map) Cursor() string     { return m.cursor }

func (m *Map) SetZoomAndCenter(z float64, c LngLat) {
	m.zoom = z
	m.center = c
}

// Add：挂载覆盖物，重复挂载忽略
func (m *Map) Add(os ...Overlay) {
	if m.destroyed {
		return
	}
	for _, o := range os {
		if o == nil || m.indexOf(o) >= 0 {
			continue
		}
		o.attach(m)
		m.overlays = append(m.overlays, o)
	}
}

// Remove：卸载覆盖物，未挂载的忽略
func (m *Map) Remove(os ...Overlay) {
	for _, o := range os {
		if i := m.indexOf(o); i >= 0 {
			m.overlays = append(m.overlays[:i], m.overlays[i+1:]...)
			o.attach(nil)
		}
	}
}

// GetAllOverlays：当前挂载的覆盖物
func (m *Map) GetAllOverlays() []Overlay {
	return append([]Overlay(nil), m.overlays...)
}

func (m *Map) indexOf(o Overlay) int {
	for i, x := range m.overlays {
		if x == o {
			return i
		}
	}
	return -1
}

// 文档注释：调整视野以容纳覆盖物
// 约束：只统计可见覆盖物；全部不可见或为空时视图不变。
func (m *Map) SetFitView(os []Overlay, immediately bool, pad mapsdk.Padding, maxZoom float64) {
	if m.destroyed {
		return
	}
	var b orb.Bound
	have := false
	for _, o := range os {
		if o == nil || !o.Visible() {
			continue
		}
		ob := o.GetBounds()
		if ob.IsZero() {
			continue
		}
		if !have {
			b, have = ob, true
		} else {
			b = b.Union(ob)
		}
	}
	if !have {
		return
	}
	c, z := mapsdk.FitLonLat(b, m.opts.Viewport, pad, maxZoom)
	m.center = fromPoint(c)
	m.zoom = z
}

// On / Off：地图级事件
func (m *Map) On(name string, fn mapsdk.Handler) int { return m.ev.On(name, fn) }
func (m *Map) Off(name string, id int)               { m.ev.Off(name, id) }

// 文档注释：模拟一次点击
// 背景：自顶向下命中第一个可见多边形时只触发其 click；未命中时触发地图 click。
func (m *Map) Click(p LngLat) error {
	if m.destroyed {
		return mapsdk.ErrMapDestroyed
	}
	for i := len(m.overlays) - 1; i >= 0; i-- {
		for _, pg := range polygonsOf(m.overlays[i]) {
			if pg.Visible() && pg.Contains(p) {
				pg.ev.Emit("click", ClickEvent{Target: pg, LngLat: p})
				return nil
			}
		}
	}
	m.ev.Emit("click", MapEvent{LngLat: p})
	return nil
}

// Destroy：释放地图，幂等
func (m *Map) Destroy() {
	if m.destroyed {
		return
	}
	for _, t := range append([]*MouseTool(nil), m.tools...) {
		t.release()
	}
	if m.info != nil {
		m.info.Close()
	}
	for _, o := range m.overlays {
		o.attach(nil)
	}
	m.overlays = nil
	m.tools = nil
	m.ev.OffAll("")
	m.destroyed = true
}

func (m *Map) Destroyed() bool { return m.destroyed }

func polygonsOf(o Overlay) []*Polygon {
	switch x := o.(type) {
	case *Polygon:
		return []*Polygon{x}
	case *GeoJSON:
		var out []*Polygon
		x.EachOverlay(func(o Overlay) {
			if p, ok := o.(*Polygon); ok {
				out = append(out, p)
			}
		})
		return out
	}
	return nil
}
