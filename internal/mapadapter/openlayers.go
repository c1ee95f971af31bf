package mapadapter

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/mapsdk/olmap"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

const (
	BaseMapTianditu = "tianditu"
	BaseMapOSM      = "osm"

	ThemeNormal    = "normal"
	ThemeSatellite = "satellite"
)

const tiandituTemplate = "https://t{0-7}.tianditu.gov.cn/DataServer?T=%s&x={x}&y={y}&l={z}&tk=%s"

// 文档注释：OpenLayers 实现
// 背景：视图为 EPSG:3857 米制；天地图底图分“矢量+注记”与“影像+注记”两组，通过可见性切换主题。
// 约束：信息弹窗面积为墨卡托平面面积，以 km² 显示 4 位小数；绘制交互常驻，草图在下一轮清空。
type OpenLayersAdapter struct {
	base
	m          *olmap.Map
	layers     registry[*olmap.VectorLayer]
	normal     []*olmap.TileLayer
	satellite  []*olmap.TileLayer
	theme      string
	boxDraw    *olmap.Draw
	boxLayer   *olmap.VectorLayer
	infoID     int
	infoActive bool
	overlay    *olmap.Overlay
	popup      *Popup
	polyDraw   *olmap.Draw
	polyLayer  *olmap.VectorLayer
	polySource *olmap.VectorSource
	drawCB     func(*geojson.FeatureCollection)
}

func NewOpenLayers(container string, o Options) *OpenLayersAdapter {
	if o.BaseMap == "" {
		o.BaseMap = BaseMapTianditu
	}
	return &OpenLayersAdapter{base: newBase(sdkloader.OpenLayers, container, o), theme: ThemeNormal}
}

// Native：原生地图实例，未就绪时为 nil
func (ol *OpenLayersAdapter) Native() *olmap.Map { return ol.m }

func (ol *OpenLayersAdapter) Init(ctx context.Context, v MapView) (Adapter, error) {
	if err := ol.beginInit(ctx); err != nil {
		return ol, err
	}
	var base []olmap.Layer
	if ol.opts.BaseMap == BaseMapTianditu {
		key := ol.opts.Credentials.Key
		vec := olmap.NewTileLayer(olmap.TileLayerOptions{URL: fmt.Sprintf(tiandituTemplate, "vec_w", key), Visible: true})
		cva := olmap.NewTileLayer(olmap.TileLayerOptions{URL: fmt.Sprintf(tiandituTemplate, "cva_w", key), Visible: true, ZIndex: 1})
		img := olmap.NewTileLayer(olmap.TileLayerOptions{URL: fmt.Sprintf(tiandituTemplate, "img_w", key)})
		cia := olmap.NewTileLayer(olmap.TileLayerOptions{URL: fmt.Sprintf(tiandituTemplate, "cia_w", key), ZIndex: 1})
		ol.normal = []*olmap.TileLayer{vec, cva}
		ol.satellite = []*olmap.TileLayer{img, cia}
		base = []olmap.Layer{vec, cva, img, cia}
	} else {
		base = []olmap.Layer{olmap.NewTileLayer(olmap.TileLayerOptions{URL: "https://{a-c}.tile.openstreetmap.org/{z}/{x}/{y}.png", Visible: true})}
	}
	x, y := coord.LonLatToMercator(v.Center[0], v.Center[1])
	m, err := olmap.NewMap(olmap.MapOptions{
		Target: ol.container,
		Layers: base,
		View:   olmap.NewView(olmap.ViewOptions{Center: olmap.Coordinate{x, y}, Zoom: v.Zoom, Viewport: ol.opts.Viewport}),
	})
	if err != nil {
		return ol, ol.fail(err)
	}
	ol.m = m
	ol.overlay = olmap.NewOverlay()
	m.AddOverlay(ol.overlay)
	ol.markReady()
	return ol, nil
}

// 文档注释：切换底图主题
// 约束：仅天地图底图生效；osm 或主题未变化时为空操作。
func (ol *OpenLayersAdapter) SetTheme(theme string) error {
	if err := ol.ready(); err != nil {
		return err
	}
	if theme != ThemeNormal && theme != ThemeSatellite {
		return ErrInvalidTheme
	}
	if ol.theme == theme || ol.opts.BaseMap != BaseMapTianditu {
		return nil
	}
	sat := theme == ThemeSatellite
	for _, l := range ol.normal {
		l.SetVisible(!sat)
	}
	for _, l := range ol.satellite {
		l.SetVisible(sat)
	}
	ol.theme = theme
	ol.log.Info("theme_switched", "theme", theme)
	return nil
}

func (ol *OpenLayersAdapter) Theme() string { return ol.theme }

func (ol *OpenLayersAdapter) Destroy() {
	if ol.state == Destroyed {
		return
	}
	ol.DisableBoxSelect()
	ol.DisableInfoQuery()
	ol.DisablePolygonDraw()
	if ol.m != nil {
		ol.m.SetTarget("")
		ol.m = nil
	}
	ol.layers.clear()
	ol.normal, ol.satellite = nil, nil
	ol.overlay = nil
	ol.state = Destroyed
	ol.count("destroy")
}

func (ol *OpenLayersAdapter) MapView() *MapView {
	if ol.state != Ready || ol.m == nil {
		return nil
	}
	v := ol.m.GetView()
	c := v.GetCenter()
	lng, lat := coord.MercatorToLonLat(c[0], c[1])
	return &MapView{Center: [2]float64{lng, lat}, Zoom: v.GetZoom()}
}

func (ol *OpenLayersAdapter) AddGeoJSONLayer(fc *geojson.FeatureCollection, o LayerOptions) (string, error) {
	if err := ol.ready(); err != nil {
		return "", err
	}
	if fc == nil {
		return "", ErrEmptyGeoJSON
	}
	id := newID(o.ID)
	ol.RemoveLayer(id)
	src := olmap.NewVectorSource(olmap.GeoJSONFormat{}.ReadFeatures(fc)...)
	vl := olmap.NewVectorLayer(olmap.VectorLayerOptions{
		Source: src,
		Style:  &olmap.Style{FillColor: "rgba(237, 106, 69, 0.6)", StrokeColor: strokeColor, StrokeWidth: strokeWeight},
	})
	vl.Set("id", id)
	vl.Set("name", o.Name)
	ol.m.AddLayer(vl)
	ol.layers.put(&record[*olmap.VectorLayer]{ID: id, Name: o.Name, Visible: true, Data: fc, Native: vl})
	if len(src.GetFeatures()) > 0 {
		ol.m.GetView().Fit(src.GetExtent(), olmap.FitOptions{Padding: fitPad, MaxZoom: fitMaxZoom})
	}
	ol.log.Debug("layer_added", "layer", id, "features", len(fc.Features))
	ol.count("add_layer")
	return id, nil
}

func (ol *OpenLayersAdapter) RemoveLayer(id string) {
	rec, ok := ol.layers.get(id)
	if !ok || ol.m == nil {
		return
	}
	if err := ol.m.RemoveLayer(rec.Native); err != nil {
		ol.log.Error("layer_remove_error", "layer", id, "err", err)
	}
	ol.layers.remove(id)
	ol.count("remove_layer")
}

func (ol *OpenLayersAdapter) ToggleLayerVisibility(id string, visible bool) {
	rec, ok := ol.layers.get(id)
	if !ok {
		return
	}
	rec.Native.SetVisible(visible)
	rec.Visible = visible
}

func (ol *OpenLayersAdapter) Layers() []LayerInfo { return ol.layers.infos() }

// 文档注释：进入一次性框选
// 背景：Box 绘制完成后按范围相交收集可见图层要素；回调后立即退出模式，交互与草图层在下一轮移除。
func (ol *OpenLayersAdapter) EnableBoxSelect(onSelect func([]SelectedFeature)) error {
	if err := ol.ready(); err != nil {
		return err
	}
	ol.DisableBoxSelect()
	dl := olmap.NewVectorLayer(olmap.VectorLayerOptions{ZIndex: 1000, Style: &olmap.Style{FillColor: "rgba(0,123,255,0.1)", StrokeColor: toolColor, StrokeWidth: 2}})
	ol.m.AddLayer(dl)
	d := olmap.NewDraw(olmap.DrawOptions{Source: dl.GetSource(), Type: olmap.DrawBox})
	ol.m.AddInteraction(d)
	ol.boxLayer, ol.boxDraw = dl, d
	done := false
	d.On("drawend", func(ev any) {
		de, ok := ev.(olmap.DrawEvent)
		if !ok || done {
			return
		}
		done = true
		ext := de.Feature.GetExtent()
		sel := []SelectedFeature{}
		ol.layers.each(func(rec *record[*olmap.VectorLayer]) {
			if !rec.Native.GetVisible() {
				return
			}
			rec.Native.GetSource().ForEachFeatureInExtent(ext, func(f *olmap.Feature) {
				props := make(map[string]any, len(f.Properties))
				for k, v := range f.Properties {
					if k != "geometry" {
						props[k] = v
					}
				}
				sel = append(sel, SelectedFeature{LayerID: rec.ID, LayerName: rec.Name, Properties: props})
			})
		})
		ol.count("box_select")
		if onSelect != nil {
			ol.safeCall("box_select", func() { onSelect(sel) })
		}
		if ol.boxDraw == d {
			ol.m.RemoveInteraction(d)
		}
		ol.loop.Post(func() {
			if ol.boxDraw == d {
				ol.DisableBoxSelect()
			}
		})
	})
	return nil
}

func (ol *OpenLayersAdapter) DisableBoxSelect() {
	if ol.m == nil {
		ol.boxDraw, ol.boxLayer = nil, nil
		return
	}
	if ol.boxDraw != nil {
		ol.m.RemoveInteraction(ol.boxDraw)
		ol.boxDraw = nil
	}
	if ol.boxLayer != nil {
		_ = ol.m.RemoveLayer(ol.boxLayer)
		ol.boxLayer = nil
	}
}

// BoxSelectActive：框选交互是否仍可接收手势
func (ol *OpenLayersAdapter) BoxSelectActive() bool { return ol.boxDraw != nil && ol.boxDraw.GetActive() }

func (ol *OpenLayersAdapter) EnableInfoQuery() error {
	if err := ol.ready(); err != nil {
		return err
	}
	if ol.infoActive {
		return nil
	}
	ol.infoID = ol.m.On("click", ol.handleClick)
	ol.infoActive = true
	return nil
}

func (ol *OpenLayersAdapter) DisableInfoQuery() {
	if ol.infoActive && ol.m != nil {
		ol.m.Un("click", ol.infoID)
	}
	ol.infoActive = false
	if ol.overlay != nil {
		ol.overlay.SetPosition(nil)
	}
	ol.popup = nil
}

func (ol *OpenLayersAdapter) handleClick(ev any) {
	be, ok := ev.(olmap.MapBrowserEvent)
	if !ok {
		return
	}
	ol.overlay.SetPosition(nil)
	ol.popup = nil
	ol.m.ForEachFeatureAtCoordinate(be.Coordinate, func(f *olmap.Feature, vl *olmap.VectorLayer) bool {
		title := featureName(f.Properties)
		km2 := f.GetArea() / 1e6
		lines := []string{fmt.Sprintf("面积: %.4f km²", km2)}
		ol.overlay.Content = title + "\n" + lines[0]
		c := be.Coordinate
		ol.overlay.SetPosition(&c)
		lng, lat := coord.MercatorToLonLat(c[0], c[1])
		layerID, _ := vl.Get("id").(string)
		ol.popup = &Popup{Title: title, Lines: lines, Area: km2, AreaUnit: "km²", Position: [2]float64{lng, lat}, LayerID: layerID}
		ol.count("info_query")
		return true
	})
}

func (ol *OpenLayersAdapter) Popup() *Popup {
	if ol.popup == nil || ol.overlay == nil || ol.overlay.GetPosition() == nil {
		return nil
	}
	p := *ol.popup
	return &p
}

// 文档注释：进入连续多边形绘制
// 约束：已启用时只替换回调并清空草图，不重复创建交互。
func (ol *OpenLayersAdapter) EnablePolygonDraw(onDrawEnd func(*geojson.FeatureCollection)) error {
	if err := ol.ready(); err != nil {
		return err
	}
	ol.drawCB = onDrawEnd
	if ol.polyDraw != nil {
		ol.polySource.Clear()
		return nil
	}
	ol.polySource = olmap.NewVectorSource()
	ol.polyLayer = olmap.NewVectorLayer(olmap.VectorLayerOptions{
		Source: ol.polySource,
		Style:  &olmap.Style{FillColor: "rgba(0,153,255,0.2)", StrokeColor: "rgba(0,153,255,0.7)", StrokeWidth: 3},
	})
	ol.m.AddLayer(ol.polyLayer)
	d := olmap.NewDraw(olmap.DrawOptions{Source: ol.polySource, Type: olmap.DrawPolygon})
	ol.m.AddInteraction(d)
	ol.polyDraw = d
	d.On("drawend", ol.handleDrawEnd)
	return nil
}

func (ol *OpenLayersAdapter) handleDrawEnd(ev any) {
	de, ok := ev.(olmap.DrawEvent)
	if !ok {
		return
	}
	f := olmap.GeoJSONFormat{}.WriteFeatureObject(de.Feature)
	ol.count("polygon_draw")
	if cb := ol.drawCB; cb != nil {
		ol.safeCall("polygon_draw", func() { cb(singleFeature(f)) })
	}
	src := ol.polySource
	ol.loop.Post(func() {
		if src != nil && src == ol.polySource {
			src.Clear()
		}
	})
}

func (ol *OpenLayersAdapter) DisablePolygonDraw() {
	if ol.polyDraw != nil && ol.m != nil {
		ol.m.RemoveInteraction(ol.polyDraw)
	}
	ol.polyDraw = nil
	if ol.polyLayer != nil && ol.m != nil {
		_ = ol.m.RemoveLayer(ol.polyLayer)
	}
	ol.polyLayer = nil
	if ol.polySource != nil {
		ol.polySource.Clear()
		ol.polySource = nil
	}
	ol.drawCB = nil
}

// PolygonDrawArmed：绘制交互是否激活
func (ol *OpenLayersAdapter) PolygonDrawArmed() bool { return ol.polyDraw != nil && ol.polyDraw.GetActive() }

// SketchCount：草图层中的要素数量
func (ol *OpenLayersAdapter) SketchCount() int {
	if ol.polySource == nil {
		return 0
	}
	return len(ol.polySource.GetFeatures())
}

func (ol *OpenLayersAdapter) SimulateRectangle(a, b [2]float64) error {
	if err := ol.ready(); err != nil {
		return err
	}
	return ol.m.DragBox(toMercator(a), toMercator(b))
}

func (ol *OpenLayersAdapter) SimulatePolygon(ring [][2]float64) error {
	if err := ol.ready(); err != nil {
		return err
	}
	cs := make([]olmap.Coordinate, len(ring))
	for i, p := range ring {
		cs[i] = toMercator(p)
	}
	return ol.m.DrawPolygonRing(cs)
}

func (ol *OpenLayersAdapter) SimulateClick(p [2]float64) error {
	if err := ol.ready(); err != nil {
		return err
	}
	return ol.m.Click(toMercator(p))
}

func toMercator(p [2]float64) olmap.Coordinate {
	x, y := coord.LonLatToMercator(p[0], p[1])
	return olmap.Coordinate{x, y}
}
