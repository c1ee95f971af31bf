package olmap

import (
	"errors"

	"github.com/paulmach/orb"

	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
)

// MapOptions：地图构造参数
type MapOptions struct {
	Target string
	Layers []Layer
	View   *View
}

// MapBrowserEvent：地图点击事件
type MapBrowserEvent struct {
	Coordinate Coordinate
}

// 文档注释：地图实例
// 约束：SetTarget("") 后地图与容器解绑，手势不再派发。
type Map struct {
	target       string
	layers       []Layer
	view         *View
	interactions []*Draw
	overlays     []*Overlay
	ev           mapsdk.Emitter
}

func NewMap(o MapOptions) (*Map, error) {
	if o.Target == "" {
		return nil, mapsdk.ErrEmptyContainer
	}
	v := o.View
	if v == nil {
		v = NewView(ViewOptions{})
	}
	return &Map{target: o.Target, layers: append([]Layer(nil), o.Layers...), view: v}, nil
}

func (m *Map) GetView() *View    { return m.view }
func (m *Map) GetTarget() string { return m.target }

// SetTarget：更换容器；空字符串表示解绑
func (m *Map) SetTarget(t string) {
	m.target = t
	if t == "" {
		m.ev.OffAll("")
	}
}

func (m *Map) AddLayer(l Layer) {
	if l == nil {
		return
	}
	for _, x := range m.layers {
		if x == l {
			return
		}
	}
	m.layers = append(m.layers, l)
}

// RemoveLayer：移除图层，不存在时返回 ErrLayerNotFound
func (m *Map) RemoveLayer(l Layer) error {
	for i, x := range m.layers {
		if x == l {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			return nil
		}
	}
	return ErrLayerNotFound
}

func (m *Map) GetLayers() []Layer { return append([]Layer(nil), m.layers...) }

func (m *Map) AddInteraction(d *Draw) {
	if d == nil {
		return
	}
	d.active = true
	m.interactions = append(m.interactions, d)
}

func (m *Map) RemoveInteraction(d *Draw) {
	for i, x := range m.interactions {
		if x == d {
			m.interactions = append(m.interactions[:i], m.interactions[i+1:]...)
			d.active = false
			return
		}
	}
}

func (m *Map) AddOverlay(o *Overlay) { m.overlays = append(m.overlays, o) }

// On / Un：地图事件
func (m *Map) On(name string, fn mapsdk.Handler) int { return m.ev.On(name, fn) }
func (m *Map) Un(name string, id int)                { m.ev.Off(name, id) }

// 文档注释：返回命中坐标的第一个要素（自顶向下）
// 约束：只检查可见矢量图层中的面要素。
func (m *Map) ForEachFeatureAtCoordinate(c Coordinate, fn func(f *Feature, l *VectorLayer) bool) {
	for i := len(m.layers) - 1; i >= 0; i-- {
		vl, ok := m.layers[i].(*VectorLayer)
		if !ok || !vl.GetVisible() {
			continue
		}
		fs := vl.source.features
		for j := len(fs) - 1; j >= 0; j-- {
			if hit(fs[j].Geometry, c) && fn(fs[j], vl) {
				return
			}
		}
	}
}

func hit(g orb.Geometry, c Coordinate) bool {
	switch x := g.(type) {
	case orb.Polygon:
		return mapsdk.PolygonContains(x, c)
	case orb.MultiPolygon:
		for _, p := range x {
			if mapsdk.PolygonContains(p, c) {
				return true
			}
		}
	}
	return false
}

// Click：模拟点击，派发地图 click
func (m *Map) Click(c Coordinate) error {
	if m.target == "" {
		return mapsdk.ErrMapDestroyed
	}
	m.ev.Emit("click", MapBrowserEvent{Coordinate: c})
	return nil
}

// DrawType：Draw 交互类型
type DrawType string

const (
	DrawPolygon DrawType = "Polygon"
	DrawBox     DrawType = "Box"
)

// DrawEvent：drawend 事件
type DrawEvent struct {
	Feature *Feature
}

// DrawOptions：Draw 交互参数
type DrawOptions struct {
	Source *VectorSource
	Type   DrawType
}

// 文档注释：绘制交互
// 背景：完成手势后把要素写入 Source，再派发 drawend；交互保持激活直到被移除。
type Draw struct {
	opts   DrawOptions
	active bool
	ev     mapsdk.Emitter
}

func NewDraw(o DrawOptions) *Draw { return &Draw{opts: o} }

func (d *Draw) On(name string, fn mapsdk.Handler) int { return d.ev.On(name, fn) }
func (d *Draw) Un(name string, id int)                { d.ev.Off(name, id) }
func (d *Draw) GetActive() bool                       { return d.active }

func (m *Map) drawFor(t DrawType) (*Draw, error) {
	if m.target == "" {
		return nil, mapsdk.ErrMapDestroyed
	}
	for i := len(m.interactions) - 1; i >= 0; i-- {
		if d := m.interactions[i]; d.active && d.opts.Type == t {
			return d, nil
		}
	}
	return nil, mapsdk.ErrNoActiveTool
}

// DragBox：模拟拖拽矩形（createBox 几何函数）
func (m *Map) DragBox(a, b Coordinate) error {
	d, err := m.drawFor(DrawBox)
	if err != nil {
		return err
	}
	bd := orb.MultiPoint{a, b}.Bound()
	f := &Feature{Geometry: bd.ToPolygon(), Properties: map[string]any{}}
	d.finish(f)
	return nil
}

// DrawPolygonRing：模拟绘制多边形，交付的外环总是闭合的
func (m *Map) DrawPolygonRing(ring []Coordinate) error {
	if len(ring) < 3 {
		return errors.New("polygon needs at least 3 vertices")
	}
	d, err := m.drawFor(DrawPolygon)
	if err != nil {
		return err
	}
	r := mapsdk.CloseRing(append(orb.Ring(nil), ring...))
	d.finish(&Feature{Geometry: orb.Polygon{r}, Properties: map[string]any{}})
	return nil
}

func (d *Draw) finish(f *Feature) {
	if d.opts.Source != nil {
		d.opts.Source.AddFeature(f)
	}
	d.ev.Emit("drawend", DrawEvent{Feature: f})
}

// Overlay：弹窗承载层，Position 为 nil 表示隐藏
type Overlay struct {
	Content  string
	position *Coordinate
}

func NewOverlay() *Overlay { return &Overlay{} }

func (o *Overlay) SetPosition(c *Coordinate) {
	if c == nil {
		o.position = nil
		return
	}
	p := *c
	o.position = &p
}

func (o *Overlay) GetPosition() *Coordinate { return o.position }
