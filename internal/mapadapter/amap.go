package mapadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
	"github.com/plutoqz/ruoyi-f/internal/mapsdk/amapjs"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

// polygonExt：多边形覆盖物携带的附加数据
type polygonExt struct {
	LayerID string
	Feature *geojson.Feature
}

// 文档注释：高德实现
// 背景：原生坐标 GCJ-02 [lng, lat]；图层为 GeoJSON 覆盖物组；框选与绘制都基于 MouseTool。
// 约束：MouseTool 不能在自身 draw 回调中关闭，绘制后的清理与重建一律推迟到下一轮。
type AMapAdapter struct {
	base
	m          *amapjs.Map
	layers     registry[*amapjs.GeoJSON]
	boxTool    *amapjs.MouseTool
	drawTool   *amapjs.MouseTool
	drawCB     func(*geojson.FeatureCollection)
	drawing    bool
	infoActive bool
	clickIDs   map[*amapjs.Polygon]int
	info       *amapjs.InfoWindow
	popup      *Popup
}

func NewAMap(container string, o Options) *AMapAdapter {
	return &AMapAdapter{base: newBase(sdkloader.AMap, container, o), clickIDs: map[*amapjs.Polygon]int{}}
}

// Native：原生地图实例，未就绪时为 nil
func (a *AMapAdapter) Native() *amapjs.Map { return a.m }

func (a *AMapAdapter) Init(ctx context.Context, v MapView) (Adapter, error) {
	if err := a.beginInit(ctx); err != nil {
		return a, err
	}
	lng, lat := coord.WGS84ToGCJ02(v.Center[0], v.Center[1])
	m, err := amapjs.NewMap(a.container, amapjs.MapOptions{
		Center:       amapjs.LngLat{Lng: lng, Lat: lat},
		Zoom:         v.Zoom,
		ViewMode:     "2D",
		ResizeEnable: true,
		Viewport:     a.opts.Viewport,
	})
	if err != nil {
		return a, a.fail(err)
	}
	a.m = m
	a.markReady()
	return a, nil
}

func (a *AMapAdapter) Destroy() {
	if a.state == Destroyed {
		return
	}
	if a.boxTool != nil {
		a.closeTool(a.boxTool)
		a.boxTool = nil
	}
	a.drawing = false
	if a.drawTool != nil {
		a.closeTool(a.drawTool)
		a.drawTool = nil
	}
	a.drawCB = nil
	if a.info != nil {
		a.info.Close()
		a.info = nil
	}
	a.popup = nil
	if a.m != nil {
		a.m.Destroy()
		a.m = nil
	}
	a.layers.clear()
	a.clickIDs = map[*amapjs.Polygon]int{}
	a.state = Destroyed
	a.count("destroy")
}

func (a *AMapAdapter) MapView() *MapView {
	if a.state != Ready || a.m == nil {
		return nil
	}
	c := a.m.GetCenter()
	lng, lat := coord.GCJ02ToWGS84(c.Lng, c.Lat)
	return &MapView{Center: [2]float64{lng, lat}, Zoom: a.m.GetZoom()}
}

func (a *AMapAdapter) AddGeoJSONLayer(fc *geojson.FeatureCollection, o LayerOptions) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	if fc == nil {
		return "", ErrEmptyGeoJSON
	}
	id := newID(o.ID)
	a.RemoveLayer(id)
	native := coord.TransformFeatureCollection(fc, coord.WGS84ToGCJ02)
	g := amapjs.NewGeoJSON(amapjs.GeoJSONOptions{
		GeoJSON: native,
		GetPolygon: func(f *geojson.Feature, path []amapjs.LngLat, holes [][]amapjs.LngLat) *amapjs.Polygon {
			pg := amapjs.NewPolygon(amapjs.PolygonOptions{
				Path:         path,
				Holes:        holes,
				FillColor:    fillColor,
				FillOpacity:  fillOpacity,
				StrokeColor:  strokeColor,
				StrokeWeight: strokeWeight,
				ExtData:      polygonExt{LayerID: id, Feature: f},
			})
			if a.infoActive {
				a.bindClick(pg)
			}
			return pg
		},
		GetMarker: func(f *geojson.Feature, pos amapjs.LngLat) *amapjs.Marker {
			return amapjs.NewMarker(pos, polygonExt{LayerID: id, Feature: f})
		},
	})
	a.m.Add(g)
	a.layers.put(&record[*amapjs.GeoJSON]{ID: id, Name: o.Name, Visible: true, Data: fc, Native: g})
	a.m.SetFitView([]amapjs.Overlay{g}, false, fitPad, fitMaxZoom)
	a.log.Debug("layer_added", "layer", id, "features", len(fc.Features))
	a.count("add_layer")
	return id, nil
}

func (a *AMapAdapter) RemoveLayer(id string) {
	rec, ok := a.layers.get(id)
	if !ok || a.m == nil {
		return
	}
	rec.Native.EachOverlay(func(o amapjs.Overlay) {
		if pg, ok := o.(*amapjs.Polygon); ok {
			a.unbindClick(pg)
		}
	})
	a.m.Remove(rec.Native)
	a.layers.remove(id)
	a.count("remove_layer")
}

func (a *AMapAdapter) ToggleLayerVisibility(id string, visible bool) {
	rec, ok := a.layers.get(id)
	if !ok {
		return
	}
	if visible {
		rec.Native.Show()
	} else {
		rec.Native.Hide()
	}
	rec.Visible = visible
}

func (a *AMapAdapter) Layers() []LayerInfo { return a.layers.infos() }

// 文档注释：进入一次性框选
// 背景：矩形完成后立即回调并退出模式；矩形移除与工具关闭在下一轮执行。
// 约束：同一要素的多个面只报告一次。
func (a *AMapAdapter) EnableBoxSelect(onSelect func([]SelectedFeature)) error {
	if err := a.ready(); err != nil {
		return err
	}
	a.DisableBoxSelect()
	t := amapjs.NewMouseTool(a.m)
	a.boxTool = t
	done := false
	t.On("draw", func(ev any) {
		de, ok := ev.(amapjs.DrawEvent)
		if !ok || done {
			return
		}
		done = true
		bounds := de.Obj.GetBounds()
		sel := []SelectedFeature{}
		a.layers.each(func(rec *record[*amapjs.GeoJSON]) {
			if !rec.Visible {
				return
			}
			seen := map[*geojson.Feature]bool{}
			rec.Native.EachOverlay(func(o amapjs.Overlay) {
				ext, ok := extOf(o)
				if !ok || seen[ext.Feature] || !bounds.Intersects(o.GetBounds()) {
					return
				}
				seen[ext.Feature] = true
				sel = append(sel, SelectedFeature{LayerID: rec.ID, LayerName: rec.Name, Properties: cloneProps(ext.Feature.Properties)})
			})
		})
		a.count("box_select")
		if onSelect != nil {
			a.safeCall("box_select", func() { onSelect(sel) })
		}
		a.loop.Post(func() {
			if a.m != nil {
				a.m.Remove(de.Obj)
			}
			if a.boxTool == t {
				a.DisableBoxSelect()
			} else {
				a.closeTool(t)
			}
		})
	})
	t.Rectangle(amapjs.PolygonOptions{StrokeColor: toolColor, FillColor: toolColor, FillOpacity: 0.1})
	return nil
}

func extOf(o amapjs.Overlay) (polygonExt, bool) {
	var v any
	switch x := o.(type) {
	case *amapjs.Polygon:
		v = x.GetExtData()
	case *amapjs.Marker:
		v = x.GetExtData()
	}
	ext, ok := v.(polygonExt)
	return ext, ok && ext.Feature != nil
}

func (a *AMapAdapter) DisableBoxSelect() {
	if a.boxTool == nil {
		return
	}
	a.closeTool(a.boxTool)
	a.boxTool = nil
}

// BoxSelectActive：框选模式是否仍在等待手势
func (a *AMapAdapter) BoxSelectActive() bool { return a.boxTool != nil && a.boxTool.Active() }

func (a *AMapAdapter) EnableInfoQuery() error {
	if err := a.ready(); err != nil {
		return err
	}
	a.infoActive = true
	a.m.SetCursor("pointer")
	a.eachPolygon(a.bindClick)
	return nil
}

func (a *AMapAdapter) DisableInfoQuery() {
	a.infoActive = false
	if a.m != nil {
		a.m.SetCursor("grab")
	}
	if a.info != nil {
		a.info.Close()
		a.info = nil
	}
	a.popup = nil
	a.eachPolygon(a.unbindClick)
}

func (a *AMapAdapter) eachPolygon(fn func(*amapjs.Polygon)) {
	a.layers.each(func(rec *record[*amapjs.GeoJSON]) {
		rec.Native.EachOverlay(func(o amapjs.Overlay) {
			if pg, ok := o.(*amapjs.Polygon); ok {
				fn(pg)
			}
		})
	})
}

func (a *AMapAdapter) bindClick(pg *amapjs.Polygon) {
	if _, ok := a.clickIDs[pg]; ok {
		return
	}
	a.clickIDs[pg] = pg.On("click", a.handleClick)
}

func (a *AMapAdapter) unbindClick(pg *amapjs.Polygon) {
	if id, ok := a.clickIDs[pg]; ok {
		pg.Off("click", id)
		delete(a.clickIDs, pg)
	}
}

func (a *AMapAdapter) handleClick(ev any) {
	ce, ok := ev.(amapjs.ClickEvent)
	if !ok || ce.Target == nil {
		return
	}
	if a.info != nil {
		a.info.Close()
	}
	ext, _ := ce.Target.GetExtData().(polygonExt)
	var props map[string]any
	if ext.Feature != nil {
		props = ext.Feature.Properties
	}
	area := amapjs.RingArea(ce.Target.GetPath())
	title := featureName(props)
	lines := []string{fmt.Sprintf("面积: %.2f m²", area), "疑似推土区域"}
	a.info = amapjs.NewInfoWindow(amapjs.InfoWindowOptions{IsCustom: true, Content: title + "\n" + lines[0] + "\n" + lines[1], Offset: [2]float64{0, -30}})
	a.info.Open(a.m, ce.LngLat)
	lng, lat := coord.GCJ02ToWGS84(ce.LngLat.Lng, ce.LngLat.Lat)
	a.popup = &Popup{Title: title, Lines: lines, Area: area, AreaUnit: "m²", Position: [2]float64{lng, lat}, LayerID: ext.LayerID}
	a.count("info_query")
}

func (a *AMapAdapter) Popup() *Popup {
	if a.popup == nil || a.info == nil || !a.info.GetIsOpen() {
		return nil
	}
	p := *a.popup
	return &p
}

// 文档注释：进入连续多边形绘制
// 背景：每次完成绘制：回调 → 下一轮关闭旧工具并新建工具，保持连续绘制。
func (a *AMapAdapter) EnablePolygonDraw(onDrawEnd func(*geojson.FeatureCollection)) error {
	if err := a.ready(); err != nil {
		return err
	}
	a.DisablePolygonDraw()
	a.drawCB = onDrawEnd
	a.drawing = true
	a.startDraw()
	return nil
}

func (a *AMapAdapter) startDraw() {
	if !a.drawing || a.state != Ready {
		return
	}
	t := amapjs.NewMouseTool(a.m)
	a.drawTool = t
	t.On("draw", func(ev any) {
		de, ok := ev.(amapjs.DrawEvent)
		if !ok {
			return
		}
		pg, ok := de.Obj.(*amapjs.Polygon)
		if !ok {
			return
		}
		path := pg.GetPath()
		ring := make(orb.Ring, 0, len(path)+1)
		for _, p := range path {
			lng, lat := coord.GCJ02ToWGS84(p.Lng, p.Lat)
			ring = append(ring, orb.Point{lng, lat})
		}
		f := geojson.NewFeature(orb.Polygon{mapsdk.CloseRing(ring)})
		f.Properties["area"] = amapjs.RingArea(path)
		a.count("polygon_draw")
		if cb := a.drawCB; cb != nil {
			a.safeCall("polygon_draw", func() { cb(singleFeature(f)) })
		}
		a.loop.Post(func() {
			if a.m != nil {
				a.m.Remove(pg)
			}
			a.closeTool(t)
			if a.drawTool == t {
				a.drawTool = nil
				a.startDraw()
			}
		})
	})
	t.Polygon(amapjs.PolygonOptions{StrokeColor: toolColor, FillColor: fillColor, FillOpacity: fillOpacity})
}

func (a *AMapAdapter) DisablePolygonDraw() {
	a.drawing = false
	a.drawCB = nil
	if a.drawTool != nil {
		a.closeTool(a.drawTool)
		a.drawTool = nil
	}
}

// PolygonDrawArmed：当前是否有可接收手势的绘制工具
func (a *AMapAdapter) PolygonDrawArmed() bool { return a.drawTool != nil && a.drawTool.Active() }

// 文档注释：关闭工具并吞掉错误
// 背景：在 draw 分发中关闭会返回 ErrToolReentrant，此时把关闭再推迟一轮。
func (a *AMapAdapter) closeTool(t *amapjs.MouseTool) {
	err := t.Close(true)
	if err == nil {
		return
	}
	a.log.Warn("draw_cleanup_error", "err", err)
	if errors.Is(err, amapjs.ErrToolReentrant) {
		a.loop.Post(func() {
			if err := t.Close(true); err != nil {
				a.log.Warn("draw_cleanup_error", "err", err, "retry", true)
			}
		})
	}
}

func (a *AMapAdapter) SimulateRectangle(p1, p2 [2]float64) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.m.DragRectangle(toGCJ(p1), toGCJ(p2))
}

func (a *AMapAdapter) SimulatePolygon(ring [][2]float64) error {
	if err := a.ready(); err != nil {
		return err
	}
	path := make([]amapjs.LngLat, len(ring))
	for i, p := range ring {
		path[i] = toGCJ(p)
	}
	return a.m.DrawPolygon(path)
}

func (a *AMapAdapter) SimulateClick(p [2]float64) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.m.Click(toGCJ(p))
}

func toGCJ(p [2]float64) amapjs.LngLat {
	lng, lat := coord.WGS84ToGCJ02(p[0], p[1])
	return amapjs.LngLat{Lng: lng, Lat: lat}
}
