// 包 olmap：OpenLayers 能力契约的进程内实现
// 背景：视图坐标为 EPSG:3857 米制；图层分为瓦片底图与矢量图层，交互通过 Draw interaction 完成。
package olmap

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
)

// Coordinate：EPSG:3857 坐标
type Coordinate = orb.Point

// Extent：EPSG:3857 范围
type Extent = orb.Bound

// ErrLayerNotFound：移除不存在的图层
var ErrLayerNotFound = errors.New("layer not found on map")

// Layer：图层公共能力
type Layer interface {
	SetVisible(v bool)
	GetVisible() bool
	Get(key string) any
	Set(key string, v any)
}

type props struct {
	visible bool
	kv      map[string]any
	zIndex  int
}

func (p *props) SetVisible(v bool) { p.visible = v }
func (p *props) GetVisible() bool  { return p.visible }
func (p *props) Get(k string) any  { return p.kv[k] }
func (p *props) Set(k string, v any) {
	if p.kv == nil {
		p.kv = make(map[string]any)
	}
	p.kv[k] = v
}

// TileLayer：瓦片底图，只记录来源与可见性
type TileLayer struct {
	props
	URL string
}

// TileLayerOptions：瓦片图层参数
type TileLayerOptions struct {
	URL     string
	Visible bool
	ZIndex  int
}

func NewTileLayer(o TileLayerOptions) *TileLayer {
	return &TileLayer{props: props{visible: o.Visible, zIndex: o.ZIndex}, URL: o.URL}
}

// Feature：矢量要素，几何为 EPSG:3857
type Feature struct {
	Geometry   orb.Geometry
	Properties map[string]any
	ID         any
}

// GetArea：平面面积（平方米），对应 geometry.getArea()
func (f *Feature) GetArea() float64 {
	if f.Geometry == nil {
		return 0
	}
	return planar.Area(f.Geometry)
}

// GetExtent：几何范围
func (f *Feature) GetExtent() Extent {
	if f.Geometry == nil {
		return Extent{}
	}
	return f.Geometry.Bound()
}

// VectorSource：要素集合
type VectorSource struct {
	features []*Feature
}

func NewVectorSource(fs ...*Feature) *VectorSource {
	return &VectorSource{features: append([]*Feature(nil), fs...)}
}

func (s *VectorSource) AddFeature(f *Feature)   { s.features = append(s.features, f) }
func (s *VectorSource) GetFeatures() []*Feature { return append([]*Feature(nil), s.features...) }
func (s *VectorSource) Clear()                  { s.features = nil }

// GetExtent：全部要素范围，空集合返回零值
func (s *VectorSource) GetExtent() Extent {
	var b Extent
	first := true
	for _, f := range s.features {
		if f.Geometry == nil {
			continue
		}
		if first {
			b, first = f.GetExtent(), false
		} else {
			b = b.Union(f.GetExtent())
		}
	}
	return b
}

// ForEachFeatureInExtent：要素范围与给定范围相交即回调
func (s *VectorSource) ForEachFeatureInExtent(ext Extent, fn func(f *Feature)) {
	for _, f := range s.features {
		if f.Geometry != nil && f.GetExtent().Intersects(ext) {
			fn(f)
		}
	}
}

// VectorLayerOptions：矢量图层参数
type VectorLayerOptions struct {
	Source *VectorSource
	ZIndex int
	Style  *Style
}

// Style：只记录样式参数
type Style struct {
	FillColor   string
	StrokeColor string
	StrokeWidth float64
}

// VectorLayer：矢量图层
type VectorLayer struct {
	props
	source *VectorSource
	Style  *Style
}

func NewVectorLayer(o VectorLayerOptions) *VectorLayer {
	src := o.Source
	if src == nil {
		src = NewVectorSource()
	}
	return &VectorLayer{props: props{visible: true, zIndex: o.ZIndex}, source: src, Style: o.Style}
}

func (l *VectorLayer) GetSource() *VectorSource { return l.source }

// View：视图状态
type View struct {
	center Coordinate
	zoom   float64
	vp     mapsdk.Viewport
}

// ViewOptions：视图参数
type ViewOptions struct {
	Center   Coordinate
	Zoom     float64
	Viewport mapsdk.Viewport
}

func NewView(o ViewOptions) *View {
	if o.Viewport.Width == 0 {
		o.Viewport = mapsdk.DefaultViewport
	}
	return &View{center: o.Center, zoom: o.Zoom, vp: o.Viewport}
}

func (v *View) GetCenter() Coordinate  { return v.center }
func (v *View) GetZoom() float64       { return v.zoom }
func (v *View) SetCenter(c Coordinate) { v.center = c }
func (v *View) SetZoom(z float64)      { v.zoom = z }

// FitOptions：适配参数
type FitOptions struct {
	Padding mapsdk.Padding
	MaxZoom float64
}

// Fit：适配范围
func (v *View) Fit(ext Extent, o FitOptions) {
	maxZoom := o.MaxZoom
	if maxZoom == 0 {
		maxZoom = 28
	}
	v.center, v.zoom = mapsdk.FitMercator(ext, v.vp, o.Padding, maxZoom)
}
