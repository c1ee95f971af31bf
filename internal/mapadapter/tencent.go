package mapadapter

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
	"github.com/plutoqz/ruoyi-f/internal/mapsdk/qqmaps"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

// qqOverlay：单个多边形及其点击监听
type qqOverlay struct {
	polygon  *qqmaps.Polygon
	listener *qqmaps.MapsEventListener
	feature  *geojson.Feature
}

// 文档注释：腾讯实现
// 背景：原生坐标 GCJ-02，LatLng 纬度在前；GeoJSON 需手工解析为多边形（Polygon / MultiPolygon 外环）。
// 约束：框选为显式未实现，回调立即收到空集合；点击监听在创建多边形时绑定，由查询模式开关放行。
type TencentAdapter struct {
	base
	m          *qqmaps.Map
	layers     registry[[]*qqOverlay]
	infoActive bool
	info       *qqmaps.InfoWindow
	popup      *Popup
	drawMgr    *qqmaps.DrawingManager
	drawL      *qqmaps.MapsEventListener
	drawCB     func(*geojson.FeatureCollection)
	drawing    bool
}

func NewTencent(container string, o Options) *TencentAdapter {
	return &TencentAdapter{base: newBase(sdkloader.Tencent, container, o)}
}

// Native：原生地图实例，未就绪时为 nil
func (q *TencentAdapter) Native() *qqmaps.Map { return q.m }

func (q *TencentAdapter) Init(ctx context.Context, v MapView) (Adapter, error) {
	if err := q.beginInit(ctx); err != nil {
		return q, err
	}
	lng, lat := coord.WGS84ToGCJ02(v.Center[0], v.Center[1])
	m, err := qqmaps.NewMap(q.container, qqmaps.MapOptions{
		Center:   qqmaps.NewLatLng(lat, lng),
		Zoom:     v.Zoom,
		Viewport: q.opts.Viewport,
	})
	if err != nil {
		return q, q.fail(err)
	}
	q.m = m
	q.markReady()
	return q, nil
}

func (q *TencentAdapter) Destroy() {
	if q.state == Destroyed {
		return
	}
	q.DisablePolygonDraw()
	q.layers.each(func(rec *record[[]*qqOverlay]) {
		for _, o := range rec.Native {
			qqmaps.RemoveListener(o.listener)
			o.polygon.SetMap(nil)
		}
	})
	q.layers.clear()
	if q.info != nil {
		q.info.Close()
		q.info = nil
	}
	q.popup = nil
	if q.m != nil {
		q.m.Destroy()
		q.m = nil
	}
	q.state = Destroyed
	q.count("destroy")
}

func (q *TencentAdapter) MapView() *MapView {
	if q.state != Ready || q.m == nil {
		return nil
	}
	c := q.m.GetCenter()
	lng, lat := coord.GCJ02ToWGS84(c.GetLng(), c.GetLat())
	return &MapView{Center: [2]float64{lng, lat}, Zoom: q.m.GetZoom()}
}

func (q *TencentAdapter) AddGeoJSONLayer(fc *geojson.FeatureCollection, o LayerOptions) (string, error) {
	if err := q.ready(); err != nil {
		return "", err
	}
	if fc == nil {
		return "", ErrEmptyGeoJSON
	}
	id := newID(o.ID)
	q.RemoveLayer(id)
	var overlays []*qqOverlay
	for _, f := range fc.Features {
		var rings []orb.Ring
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				rings = append(rings, g[0])
			}
		case orb.MultiPolygon:
			for _, part := range g {
				if len(part) > 0 {
					rings = append(rings, part[0])
				}
			}
		}
		for _, r := range rings {
			overlays = append(overlays, q.newPolygon(id, f, r))
		}
	}
	q.layers.put(&record[[]*qqOverlay]{ID: id, Name: o.Name, Visible: true, Data: fc, Native: overlays})
	lb := qqmaps.NewLatLngBounds()
	for _, ov := range overlays {
		for _, p := range ov.polygon.GetPath() {
			lb.Extend(p)
		}
	}
	if !lb.IsEmpty() {
		q.m.FitBounds(lb)
	}
	q.log.Debug("layer_added", "layer", id, "features", len(fc.Features))
	q.count("add_layer")
	return id, nil
}

func (q *TencentAdapter) newPolygon(layerID string, f *geojson.Feature, r orb.Ring) *qqOverlay {
	path := make([]qqmaps.LatLng, len(r))
	for i, p := range r {
		lng, lat := coord.WGS84ToGCJ02(p[0], p[1])
		path[i] = qqmaps.NewLatLng(lat, lng)
	}
	pg := qqmaps.NewPolygon(qqmaps.PolygonOptions{
		Path:         path,
		Map:          q.m,
		FillColor:    qqmaps.NewColor(237, 106, 69, fillOpacity),
		StrokeColor:  qqmaps.NewColor(255, 255, 255, 1),
		StrokeWeight: strokeWeight,
	})
	ov := &qqOverlay{polygon: pg, feature: f}
	ov.listener, _ = qqmaps.AddListener(pg, "click", func(ev any) {
		me, _ := ev.(qqmaps.MouseEvent)
		q.handleClick(layerID, ov, me)
	})
	return ov
}

func (q *TencentAdapter) RemoveLayer(id string) {
	rec, ok := q.layers.get(id)
	if !ok {
		return
	}
	for _, o := range rec.Native {
		qqmaps.RemoveListener(o.listener)
		o.polygon.SetMap(nil)
	}
	q.layers.remove(id)
	q.count("remove_layer")
}

func (q *TencentAdapter) ToggleLayerVisibility(id string, visible bool) {
	rec, ok := q.layers.get(id)
	if !ok {
		return
	}
	for _, o := range rec.Native {
		o.polygon.SetVisible(visible)
	}
	rec.Visible = visible
}

func (q *TencentAdapter) Layers() []LayerInfo { return q.layers.infos() }

// EnableBoxSelect：未实现，立即以空集合回调
func (q *TencentAdapter) EnableBoxSelect(onSelect func([]SelectedFeature)) error {
	if err := q.ready(); err != nil {
		return err
	}
	q.log.Warn("box_select_not_implemented")
	q.count("box_select")
	if onSelect != nil {
		q.safeCall("box_select", func() { onSelect([]SelectedFeature{}) })
	}
	return nil
}

func (q *TencentAdapter) DisableBoxSelect() {}

func (q *TencentAdapter) EnableInfoQuery() error {
	if err := q.ready(); err != nil {
		return err
	}
	q.infoActive = true
	return nil
}

func (q *TencentAdapter) DisableInfoQuery() {
	q.infoActive = false
	if q.info != nil {
		q.info.Close()
		q.info = nil
	}
	q.popup = nil
}

func (q *TencentAdapter) handleClick(layerID string, ov *qqOverlay, ev qqmaps.MouseEvent) {
	if !q.infoActive {
		return
	}
	if q.info != nil {
		q.info.Close()
	}
	var props map[string]any
	if ov.feature != nil {
		props = ov.feature.Properties
	}
	title := featureName(props)
	ring := make(orb.Ring, 0, len(ov.polygon.GetPath())+1)
	for _, p := range ov.polygon.GetPath() {
		ring = append(ring, orb.Point{p.GetLng(), p.GetLat()})
	}
	area := math.Abs(geo.Area(mapsdk.CloseRing(ring)))
	lines := []string{fmt.Sprintf("面积: %.2f m²", area)}
	q.info = qqmaps.NewInfoWindow(qqmaps.InfoWindowOptions{Map: q.m, Content: title, Position: ev.LatLng})
	lng, lat := coord.GCJ02ToWGS84(ev.LatLng.GetLng(), ev.LatLng.GetLat())
	q.popup = &Popup{Title: title, Lines: lines, Area: area, AreaUnit: "m²", Position: [2]float64{lng, lat}, LayerID: layerID}
	q.count("info_query")
}

func (q *TencentAdapter) Popup() *Popup {
	if q.popup == nil || q.info == nil || !q.info.IsOpen() {
		return nil
	}
	p := *q.popup
	return &p
}

// 文档注释：进入连续多边形绘制
// 背景：DrawingManager 交付未闭合路径，由这里补齐；回调后在下一轮卸载管理器与草图并重新挂载新管理器。
func (q *TencentAdapter) EnablePolygonDraw(onDrawEnd func(*geojson.FeatureCollection)) error {
	if err := q.ready(); err != nil {
		return err
	}
	q.DisablePolygonDraw()
	q.drawCB = onDrawEnd
	q.drawing = true
	q.armDraw()
	return nil
}

func (q *TencentAdapter) armDraw() {
	if !q.drawing || q.state != Ready {
		return
	}
	dm := qqmaps.NewDrawingManager(qqmaps.DrawingManagerOptions{
		DrawingMode: qqmaps.OverlayPolygon,
		PolygonOptions: qqmaps.PolygonOptions{
			StrokeColor: qqmaps.NewColor(0, 123, 255, 1),
			FillColor:   qqmaps.NewColor(0, 123, 255, 0.3),
		},
	})
	dm.SetMap(q.m)
	q.drawMgr = dm
	var l *qqmaps.MapsEventListener
	l, _ = qqmaps.AddListener(dm, "polygoncomplete", func(ev any) {
		pg, ok := ev.(*qqmaps.Polygon)
		if !ok {
			return
		}
		ring := make(orb.Ring, 0, len(pg.GetPath())+1)
		for _, p := range pg.GetPath() {
			lng, lat := coord.GCJ02ToWGS84(p.GetLng(), p.GetLat())
			ring = append(ring, orb.Point{lng, lat})
		}
		f := geojson.NewFeature(orb.Polygon{mapsdk.CloseRing(ring)})
		q.count("polygon_draw")
		if cb := q.drawCB; cb != nil {
			q.safeCall("polygon_draw", func() { cb(singleFeature(f)) })
		}
		q.loop.Post(func() {
			pg.SetMap(nil)
			qqmaps.RemoveListener(l)
			dm.SetMap(nil)
			if q.drawMgr == dm {
				q.drawMgr = nil
				q.drawL = nil
				q.armDraw()
			}
		})
	})
	q.drawL = l
}

func (q *TencentAdapter) DisablePolygonDraw() {
	q.drawing = false
	q.drawCB = nil
	if q.drawMgr != nil {
		qqmaps.RemoveListener(q.drawL)
		q.drawMgr.SetMap(nil)
		q.drawMgr = nil
		q.drawL = nil
	}
}

// PolygonDrawArmed：是否有挂载中的绘制管理器
func (q *TencentAdapter) PolygonDrawArmed() bool { return q.drawMgr != nil && q.drawMgr.GetMap() != nil }

func (q *TencentAdapter) SimulateRectangle(a, b [2]float64) error {
	if err := q.ready(); err != nil {
		return err
	}
	// 框选为空实现，没有可接收矩形的工具
	return mapsdk.ErrNoActiveTool
}

func (q *TencentAdapter) SimulatePolygon(ring [][2]float64) error {
	if err := q.ready(); err != nil {
		return err
	}
	path := make([]qqmaps.LatLng, len(ring))
	for i, p := range ring {
		path[i] = toQQ(p)
	}
	return q.m.DrawPolygon(path)
}

func (q *TencentAdapter) SimulateClick(p [2]float64) error {
	if err := q.ready(); err != nil {
		return err
	}
	return q.m.Click(toQQ(p))
}

func toQQ(p [2]float64) qqmaps.LatLng {
	lng, lat := coord.WGS84ToGCJ02(p[0], p[1])
	return qqmaps.NewLatLng(lat, lng)
}
