package mapadapter

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/eventloop"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

type stubFetcher struct {
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, u string) error {
	f.calls++
	return f.err
}

func square(name string, minLng, minLat, size float64) *geojson.Feature {
	r := orb.Ring{
		{minLng, minLat}, {minLng + size, minLat}, {minLng + size, minLat + size},
		{minLng, minLat + size}, {minLng, minLat},
	}
	f := geojson.NewFeature(orb.Polygon{r})
	f.Properties["name"] = name
	return f
}

// 两个相距约 8km 的方块：A 在西，B 在东
func sampleLayer() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(square("A", 116.30, 39.90, 0.02))
	fc.Append(square("B", 116.40, 39.90, 0.02))
	return fc
}

type harness struct {
	a    Adapter
	sim  Simulator
	loop *eventloop.Loop
}

func newHarness(t *testing.T, p sdkloader.Provider) *harness {
	t.Helper()
	lp := eventloop.New()
	a, err := New(p, "map-container", Options{
		Credentials: sdkloader.Credentials{Key: "test-key"},
		Loader:      sdkloader.New(&stubFetcher{}, time.Second),
		Loop:        lp,
	})
	if err != nil {
		t.Fatalf("New(%s): %v", p, err)
	}
	if _, err := a.Init(context.Background(), MapView{Center: [2]float64{116.35, 39.91}, Zoom: 12}); err != nil {
		t.Fatalf("Init(%s): %v", p, err)
	}
	return &harness{a: a, sim: a.(Simulator), loop: lp}
}

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestInitReportsViewInWGS84(t *testing.T) {
	for _, p := range Providers() {
		t.Run(string(p), func(t *testing.T) {
			h := newHarness(t, p)
			if h.a.State() != Ready {
				t.Fatalf("state = %s", h.a.State())
			}
			v := h.a.MapView()
			if v == nil {
				t.Fatal("nil map view after init")
			}
			if !approxEqual(v.Center[0], 116.35, 1e-4) || !approxEqual(v.Center[1], 39.91, 1e-4) {
				t.Fatalf("center = %v", v.Center)
			}
			if v.Zoom != 12 {
				t.Fatalf("zoom = %v", v.Zoom)
			}
		})
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := New("baidu", "c", Options{}); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v", err)
	}
	if _, err := New("AMap", "c", Options{}); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("names are case sensitive, err = %v", err)
	}
}

func TestInitFailureLeavesAdapterFailed(t *testing.T) {
	for _, p := range []sdkloader.Provider{sdkloader.AMap, sdkloader.Tencent} {
		t.Run(string(p), func(t *testing.T) {
			boom := errors.New("network down")
			a, _ := New(p, "c", Options{Loader: sdkloader.New(&stubFetcher{err: boom}, time.Second)})
			_, err := a.Init(context.Background(), MapView{Center: [2]float64{116, 39}, Zoom: 10})
			var sle *sdkloader.ScriptLoadError
			if !errors.As(err, &sle) || !errors.Is(err, boom) {
				t.Fatalf("err = %v", err)
			}
			if a.State() != Failed || a.Err() == nil {
				t.Fatalf("state = %s err = %v", a.State(), a.Err())
			}
			if a.MapView() != nil {
				t.Fatal("map view must be nil when init failed")
			}
			if _, err := a.AddGeoJSONLayer(sampleLayer(), LayerOptions{}); !errors.Is(err, ErrNotReady) {
				t.Fatalf("add layer err = %v", err)
			}
		})
	}
}

func TestInitRetriesAfterFailure(t *testing.T) {
	f := &stubFetcher{err: errors.New("timeout")}
	a := NewAMap("c", Options{Loader: sdkloader.New(f, time.Second)})
	if _, err := a.Init(context.Background(), MapView{Zoom: 10}); err == nil {
		t.Fatal("expected failure")
	}
	f.err = nil
	if _, err := a.Init(context.Background(), MapView{Zoom: 10}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if f.calls != 2 || a.State() != Ready {
		t.Fatalf("calls = %d state = %s", f.calls, a.State())
	}
}

func TestEmptyContainerFailsInit(t *testing.T) {
	for _, p := range Providers() {
		a, _ := New(p, "", Options{Loader: sdkloader.New(&stubFetcher{}, time.Second)})
		if _, err := a.Init(context.Background(), MapView{Zoom: 3}); err == nil {
			t.Fatalf("%s: expected error", p)
		}
		if a.State() != Failed {
			t.Fatalf("%s: state = %s", p, a.State())
		}
	}
}

func TestDoubleInitRejected(t *testing.T) {
	h := newHarness(t, sdkloader.OpenLayers)
	if _, err := h.a.Init(context.Background(), MapView{}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("err = %v", err)
	}
}

func TestLayerLifecycle(t *testing.T) {
	for _, p := range Providers() {
		t.Run(string(p), func(t *testing.T) {
			h := newHarness(t, p)
			id, err := h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{Name: "图斑"})
			if err != nil || id == "" {
				t.Fatalf("add: id=%q err=%v", id, err)
			}
			ls := h.a.Layers()
			if len(ls) != 1 || ls[0].ID != id || ls[0].Name != "图斑" || !ls[0].Visible || ls[0].Features != 2 {
				t.Fatalf("layers = %+v", ls)
			}
			v := h.a.MapView()
			if !approxEqual(v.Center[0], 116.36, 0.01) || !approxEqual(v.Center[1], 39.91, 0.01) {
				t.Fatalf("view not fitted to layer: %v", v.Center)
			}
			if v.Zoom > fitMaxZoom {
				t.Fatalf("zoom %v above cap", v.Zoom)
			}

			fixed, err := h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{ID: "fixed", Name: "x"})
			if err != nil || fixed != "fixed" {
				t.Fatalf("explicit id: %q %v", fixed, err)
			}
			if _, err := h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{ID: "fixed", Name: "y"}); err != nil {
				t.Fatal(err)
			}
			if n := len(h.a.Layers()); n != 2 {
				t.Fatalf("re-adding same id must replace, got %d layers", n)
			}

			h.a.ToggleLayerVisibility(id, false)
			if h.a.Layers()[0].Visible {
				t.Fatal("layer still visible")
			}
			h.a.ToggleLayerVisibility("missing", false)

			h.a.RemoveLayer(id)
			h.a.RemoveLayer(id)
			h.a.RemoveLayer("missing")
			ls = h.a.Layers()
			if len(ls) != 1 || ls[0].ID != "fixed" || ls[0].Name != "y" {
				t.Fatalf("after remove = %+v", ls)
			}
			if _, err := h.a.AddGeoJSONLayer(nil, LayerOptions{}); !errors.Is(err, ErrEmptyGeoJSON) {
				t.Fatalf("nil fc err = %v", err)
			}
		})
	}
}

func TestBoxSelectVisibleLayersOnly(t *testing.T) {
	for _, p := range []sdkloader.Provider{sdkloader.AMap, sdkloader.OpenLayers} {
		t.Run(string(p), func(t *testing.T) {
			h := newHarness(t, p)
			visible, _ := h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{Name: "visible"})
			hidden, _ := h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{Name: "hidden"})
			h.a.ToggleLayerVisibility(hidden, false)

			var calls int
			var got []SelectedFeature
			if err := h.a.EnableBoxSelect(func(s []SelectedFeature) { calls++; got = s }); err != nil {
				t.Fatal(err)
			}
			// 只覆盖 A
			if err := h.sim.SimulateRectangle([2]float64{116.295, 39.895}, [2]float64{116.325, 39.925}); err != nil {
				t.Fatal(err)
			}
			if calls != 1 {
				t.Fatalf("callback calls = %d", calls)
			}
			if len(got) != 1 || got[0].LayerID != visible || got[0].LayerName != "visible" || got[0].Properties["name"] != "A" {
				t.Fatalf("selected = %+v", got)
			}
			h.loop.Flush()
			if err := h.sim.SimulateRectangle([2]float64{116.2, 39.8}, [2]float64{116.5, 40.0}); err == nil {
				t.Fatal("box select must exit after one selection")
			}
			if calls != 1 {
				t.Fatalf("callback fired again: %d", calls)
			}
		})
	}
}

func TestBoxSelectCoversBothFeatures(t *testing.T) {
	h := newHarness(t, sdkloader.AMap)
	h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{Name: "l"})
	var got []SelectedFeature
	h.a.EnableBoxSelect(func(s []SelectedFeature) { got = s })
	h.sim.SimulateRectangle([2]float64{116.2, 39.8}, [2]float64{116.5, 40.0})
	if len(got) != 2 {
		t.Fatalf("selected = %d", len(got))
	}
	h.loop.Flush()
	if n := len(h.a.(*AMapAdapter).Native().GetAllOverlays()); n != 1 {
		t.Fatalf("selection rectangle not removed, overlays = %d", n)
	}
}

func TestBoxSelectMultiPolygonReportedOnce(t *testing.T) {
	h := newHarness(t, sdkloader.AMap)
	a := square("A", 116.30, 39.90, 0.01).Geometry.(orb.Polygon)
	b := square("B", 116.32, 39.90, 0.01).Geometry.(orb.Polygon)
	f := geojson.NewFeature(orb.MultiPolygon{a, b})
	f.Properties["name"] = "multi"
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	h.a.AddGeoJSONLayer(fc, LayerOptions{})
	var got []SelectedFeature
	h.a.EnableBoxSelect(func(s []SelectedFeature) { got = s })
	h.sim.SimulateRectangle([2]float64{116.2, 39.8}, [2]float64{116.5, 40.0})
	if len(got) != 1 {
		t.Fatalf("selected = %+v", got)
	}
}

func TestTencentBoxSelectIsEmpty(t *testing.T) {
	h := newHarness(t, sdkloader.Tencent)
	h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{})
	var got []SelectedFeature
	called := false
	if err := h.a.EnableBoxSelect(func(s []SelectedFeature) { called, got = true, s }); err != nil {
		t.Fatal(err)
	}
	if !called || got == nil || len(got) != 0 {
		t.Fatalf("called=%v got=%v", called, got)
	}
	h.a.DisableBoxSelect()
}

func TestInfoQueryReplacesPopup(t *testing.T) {
	units := map[sdkloader.Provider]string{sdkloader.AMap: "m²", sdkloader.Tencent: "m²", sdkloader.OpenLayers: "km²"}
	for _, p := range Providers() {
		t.Run(string(p), func(t *testing.T) {
			h := newHarness(t, p)
			id, _ := h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{Name: "l"})

			h.sim.SimulateClick([2]float64{116.31, 39.91})
			if h.a.Popup() != nil {
				t.Fatal("popup opened while info query disabled")
			}

			if err := h.a.EnableInfoQuery(); err != nil {
				t.Fatal(err)
			}
			h.sim.SimulateClick([2]float64{116.31, 39.91})
			pp := h.a.Popup()
			if pp == nil || pp.Title != "A" || pp.LayerID != id || pp.AreaUnit != units[p] {
				t.Fatalf("popup = %+v", pp)
			}
			if !approxEqual(pp.Position[0], 116.31, 1e-4) || !approxEqual(pp.Position[1], 39.91, 1e-4) {
				t.Fatalf("popup position = %v", pp.Position)
			}
			// 约 1.7km × 2.2km
			m2 := pp.Area
			if pp.AreaUnit == "km²" {
				m2 *= 1e6
			}
			if m2 < 3e6 || m2 > 7e6 {
				t.Fatalf("area = %v %s", pp.Area, pp.AreaUnit)
			}

			h.sim.SimulateClick([2]float64{116.41, 39.91})
			if pp := h.a.Popup(); pp == nil || pp.Title != "B" {
				t.Fatalf("second popup = %+v", pp)
			}

			h.a.DisableInfoQuery()
			if h.a.Popup() != nil {
				t.Fatal("popup survives disable")
			}
			h.sim.SimulateClick([2]float64{116.31, 39.91})
			if h.a.Popup() != nil {
				t.Fatal("click handled after disable")
			}
		})
	}
}

func TestInfoQueryDefaultTitle(t *testing.T) {
	h := newHarness(t, sdkloader.AMap)
	f := square("", 116.30, 39.90, 0.02)
	delete(f.Properties, "name")
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	h.a.EnableInfoQuery()
	h.a.AddGeoJSONLayer(fc, LayerOptions{})
	h.sim.SimulateClick([2]float64{116.31, 39.91})
	pp := h.a.Popup()
	if pp == nil || pp.Title != defaultTitle || len(pp.Lines) != 2 || pp.Lines[1] != "疑似推土区域" {
		t.Fatalf("popup = %+v", pp)
	}
}

func TestInfoQueryMissesEmptySpace(t *testing.T) {
	h := newHarness(t, sdkloader.OpenLayers)
	h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{})
	h.a.EnableInfoQuery()
	h.sim.SimulateClick([2]float64{116.31, 39.91})
	h.sim.SimulateClick([2]float64{116.36, 39.91})
	if h.a.Popup() != nil {
		t.Fatal("click on empty space must close popup")
	}
}

type armer interface{ PolygonDrawArmed() bool }

func TestContinuousPolygonDraw(t *testing.T) {
	for _, p := range Providers() {
		t.Run(string(p), func(t *testing.T) {
			h := newHarness(t, p)
			var got []*geojson.FeatureCollection
			if err := h.a.EnablePolygonDraw(func(fc *geojson.FeatureCollection) { got = append(got, fc) }); err != nil {
				t.Fatal(err)
			}
			rings := [][][2]float64{
				{{116.30, 39.90}, {116.31, 39.90}, {116.31, 39.91}},
				{{116.40, 39.90}, {116.41, 39.90}, {116.41, 39.91}, {116.40, 39.91}},
			}
			for i, r := range rings {
				if err := h.sim.SimulatePolygon(r); err != nil {
					t.Fatalf("draw %d: %v", i, err)
				}
				if len(got) != i+1 {
					t.Fatalf("after draw %d callbacks = %d", i, len(got))
				}
				h.loop.Flush()
				if !h.a.(armer).PolygonDrawArmed() {
					t.Fatalf("draw %d: not re-armed", i)
				}
			}
			for i, fc := range got {
				if len(fc.Features) != 1 {
					t.Fatalf("fc %d features = %d", i, len(fc.Features))
				}
				poly, ok := fc.Features[0].Geometry.(orb.Polygon)
				if !ok {
					t.Fatalf("fc %d geometry = %T", i, fc.Features[0].Geometry)
				}
				ring := poly[0]
				if ring[0] != ring[len(ring)-1] || len(ring) != len(rings[i])+1 {
					t.Fatalf("fc %d ring not closed: %v", i, ring)
				}
				if !approxEqual(ring[0][0], rings[i][0][0], 1e-4) || !approxEqual(ring[0][1], rings[i][0][1], 1e-4) {
					t.Fatalf("fc %d not in WGS84: %v", i, ring[0])
				}
			}
			h.a.DisablePolygonDraw()
			if h.a.(armer).PolygonDrawArmed() {
				t.Fatal("still armed after disable")
			}
			if err := h.sim.SimulatePolygon(rings[0]); err == nil {
				t.Fatal("draw accepted after disable")
			}
			if len(got) != 2 {
				t.Fatalf("callbacks = %d", len(got))
			}
		})
	}
}

func TestPolygonDrawCallbackPanicKeepsDrawing(t *testing.T) {
	h := newHarness(t, sdkloader.AMap)
	n := 0
	h.a.EnablePolygonDraw(func(*geojson.FeatureCollection) {
		n++
		panic("boom")
	})
	ring := [][2]float64{{116.30, 39.90}, {116.31, 39.90}, {116.31, 39.91}}
	h.sim.SimulatePolygon(ring)
	h.loop.Flush()
	if err := h.sim.SimulatePolygon(ring); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("calls = %d", n)
	}
}

func TestOpenLayersSketchClearedNextTurn(t *testing.T) {
	h := newHarness(t, sdkloader.OpenLayers)
	ol := h.a.(*OpenLayersAdapter)
	ol.EnablePolygonDraw(nil)
	h.sim.SimulatePolygon([][2]float64{{116.30, 39.90}, {116.31, 39.90}, {116.31, 39.91}})
	if ol.SketchCount() != 1 {
		t.Fatalf("sketch = %d", ol.SketchCount())
	}
	h.loop.Flush()
	if ol.SketchCount() != 0 {
		t.Fatalf("sketch not cleared: %d", ol.SketchCount())
	}
}

func TestOpenLayersTheme(t *testing.T) {
	h := newHarness(t, sdkloader.OpenLayers)
	ol := h.a.(*OpenLayersAdapter)
	if ol.Theme() != ThemeNormal {
		t.Fatalf("theme = %s", ol.Theme())
	}
	if err := ol.SetTheme(ThemeSatellite); err != nil {
		t.Fatal(err)
	}
	if ol.normal[0].GetVisible() || !ol.satellite[0].GetVisible() || !ol.satellite[1].GetVisible() {
		t.Fatal("satellite layers not switched on")
	}
	if err := ol.SetTheme("terrain"); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("err = %v", err)
	}
	if ol.Theme() != ThemeSatellite {
		t.Fatal("invalid theme changed state")
	}
}

func TestOpenLayersOSMThemeNoop(t *testing.T) {
	a := NewOpenLayers("c", Options{BaseMap: BaseMapOSM})
	a.Init(context.Background(), MapView{Zoom: 5})
	if err := a.SetTheme(ThemeSatellite); err != nil {
		t.Fatal(err)
	}
	if a.Theme() != ThemeNormal {
		t.Fatalf("theme = %s", a.Theme())
	}
	if n := len(a.Native().GetLayers()); n != 1 {
		t.Fatalf("osm base layers = %d", n)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	for _, p := range Providers() {
		t.Run(string(p), func(t *testing.T) {
			fresh, _ := New(p, "c", Options{})
			fresh.DisableBoxSelect()
			fresh.DisableInfoQuery()
			fresh.DisablePolygonDraw()
			fresh.Destroy()
			fresh.Destroy()
			if fresh.State() != Destroyed {
				t.Fatalf("state = %s", fresh.State())
			}
			if _, err := fresh.Init(context.Background(), MapView{}); !errors.Is(err, ErrDestroyed) {
				t.Fatalf("init after destroy err = %v", err)
			}

			h := newHarness(t, p)
			h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{})
			h.a.EnableInfoQuery()
			h.a.EnablePolygonDraw(func(*geojson.FeatureCollection) {})
			h.a.Destroy()
			h.a.Destroy()
			h.loop.Flush()
			if h.a.MapView() != nil || len(h.a.Layers()) != 0 {
				t.Fatal("destroyed adapter still reports state")
			}
			if _, err := h.a.AddGeoJSONLayer(sampleLayer(), LayerOptions{}); !errors.Is(err, ErrDestroyed) {
				t.Fatalf("add after destroy err = %v", err)
			}
			if err := h.sim.SimulateClick([2]float64{116.31, 39.91}); !errors.Is(err, ErrDestroyed) {
				t.Fatalf("click after destroy err = %v", err)
			}
		})
	}
}

func TestOperationsBeforeInit(t *testing.T) {
	a := NewTencent("c", Options{})
	if err := a.EnableInfoQuery(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v", err)
	}
	if err := a.EnablePolygonDraw(nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v", err)
	}
	if a.MapView() != nil || a.Popup() != nil {
		t.Fatal("uninitialized adapter reports view or popup")
	}
}
