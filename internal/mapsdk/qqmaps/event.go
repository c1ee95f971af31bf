package qqmaps

import (
	"errors"

	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
)

// MapsEventListener：AddListener 返回的句柄
type MapsEventListener struct {
	em   *mapsdk.Emitter
	name string
	id   int
}

func emitterOf(target any) *mapsdk.Emitter {
	switch t := target.(type) {
	case *Map:
		return &t.ev
	case *Polygon:
		return &t.ev
	case *DrawingManager:
		return &t.ev
	}
	return nil
}

// AddListener：对应 qq.maps.event.addListener
func AddListener(target any, name string, fn func(ev any)) (*MapsEventListener, error) {
	em := emitterOf(target)
	if em == nil {
		return nil, ErrUnsupportedTarget
	}
	id := em.On(name, mapsdk.Handler(fn))
	return &MapsEventListener{em: em, name: name, id: id}, nil
}

// RemoveListener：解绑，重复调用忽略
func RemoveListener(l *MapsEventListener) {
	if l == nil || l.em == nil {
		return
	}
	l.em.Off(l.name, l.id)
	l.em = nil
}

// ClearListeners：解绑对象某事件的全部监听
func ClearListeners(target any, name string) {
	if em := emitterOf(target); em != nil {
		em.OffAll(name)
	}
}

// OverlayType：绘制模式
type OverlayType string

const OverlayPolygon OverlayType = "polygon"

// DrawingManagerOptions：绘制管理器参数
type DrawingManagerOptions struct {
	DrawingMode    OverlayType
	DrawingControl bool
	PolygonOptions PolygonOptions
}

// 文档注释：绘制管理器
// 背景：挂到地图后接收绘制手势，完成时分发 polygoncomplete，事件值为 *Polygon（路径未闭合）。
type DrawingManager struct {
	opts DrawingManagerOptions
	m    *Map
	ev   mapsdk.Emitter
}

func NewDrawingManager(o DrawingManagerOptions) *DrawingManager {
	return &DrawingManager{opts: o}
}

// SetMap：挂载或卸载（nil）
func (d *DrawingManager) SetMap(m *Map) {
	if d.m == m {
		return
	}
	if old := d.m; old != nil {
		for i, x := range old.managers {
			if x == d {
				old.managers = append(old.managers[:i], old.managers[i+1:]...)
				break
			}
		}
	}
	d.m = m
	if m != nil && !m.destroyed {
		m.managers = append(m.managers, d)
	}
}

func (d *DrawingManager) GetMap() *Map { return d.m }

// 文档注释：模拟绘制一个多边形
// 约束：由最近挂载且处于多边形模式的管理器接收；路径至少 3 个点，首尾重合时去掉末点。
func (m *Map) DrawPolygon(path []LatLng) error {
	if m.destroyed {
		return mapsdk.ErrMapDestroyed
	}
	if len(path) < 3 {
		return errors.New("polygon needs at least 3 vertices")
	}
	var d *DrawingManager
	for i := len(m.managers) - 1; i >= 0; i-- {
		if m.managers[i].opts.DrawingMode == OverlayPolygon {
			d = m.managers[i]
			break
		}
	}
	if d == nil {
		return mapsdk.ErrNoActiveTool
	}
	p := append([]LatLng(nil), path...)
	if n := len(p); p[0] == p[n-1] {
		p = p[:n-1]
	}
	o := d.opts.PolygonOptions
	o.Path = p
	o.Map = m
	pg := NewPolygon(o)
	d.ev.Emit("polygoncomplete", pg)
	return nil
}
