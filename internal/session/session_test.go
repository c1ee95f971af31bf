package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/mapadapter"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

type okFetcher struct{}

func (okFetcher) Fetch(ctx context.Context, u string) error { return nil }

func newManager() *Manager {
	return NewManager(Config{Loader: sdkloader.New(okFetcher{}, time.Second), IdleTTL: time.Minute})
}

func view() mapadapter.MapView {
	return mapadapter.MapView{Center: [2]float64{116.35, 39.91}, Zoom: 12}
}

func parcel() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Polygon{{{116.30, 39.90}, {116.32, 39.90}, {116.32, 39.92}, {116.30, 39.92}, {116.30, 39.90}}})
	f.Properties["name"] = "A"
	fc.Append(f)
	return fc
}

func TestCreateGetClose(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	s, err := m.Create(ctx, sdkloader.OpenLayers, view())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()
	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if info := s.Info(); info.State != "ready" || info.Provider != sdkloader.OpenLayers {
		t.Fatalf("info = %+v", info)
	}
	if m.Len() != 1 || len(m.List()) != 1 {
		t.Fatalf("len = %d", m.Len())
	}
	if err := m.Close(s.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after close err = %v", err)
	}
	if err := m.Close(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second close err = %v", err)
	}
}

func TestCreateUnknownProvider(t *testing.T) {
	m := newManager()
	if _, err := m.Create(context.Background(), "baidu", view()); !errors.Is(err, mapadapter.ErrUnknownProvider) {
		t.Fatalf("err = %v", err)
	}
	if m.Len() != 0 {
		t.Fatal("failed session registered")
	}
}

func TestCreateInitFailureNotRegistered(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(Config{Loader: sdkloader.New(failFetcher{boom}, time.Second)})
	_, err := m.Create(context.Background(), sdkloader.AMap, view())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if m.Len() != 0 {
		t.Fatal("failed session registered")
	}
}

type failFetcher struct{ err error }

func (f failFetcher) Fetch(ctx context.Context, u string) error { return f.err }

func TestSessionLimit(t *testing.T) {
	m := NewManager(Config{Loader: sdkloader.New(okFetcher{}, time.Second), MaxSessions: 1})
	defer m.Shutdown()
	if _, err := m.Create(context.Background(), sdkloader.OpenLayers, view()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(context.Background(), sdkloader.OpenLayers, view()); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("err = %v", err)
	}
}

func TestInboxCollectsSelectionsAndDrawings(t *testing.T) {
	for _, p := range []sdkloader.Provider{sdkloader.AMap, sdkloader.OpenLayers} {
		t.Run(string(p), func(t *testing.T) {
			m := newManager()
			defer m.Shutdown()
			ctx := context.Background()
			s, err := m.Create(ctx, p, view())
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Do(ctx, func(a mapadapter.Adapter) error {
				_, err := a.AddGeoJSONLayer(parcel(), mapadapter.LayerOptions{ID: "L1", Name: "parcels"})
				return err
			}); err != nil {
				t.Fatal(err)
			}
			if err := s.EnableBoxSelect(ctx); err != nil {
				t.Fatal(err)
			}
			if err := s.Gesture(ctx, Gesture{Kind: "rectangle", Coordinates: [][2]float64{{116.29, 39.89}, {116.33, 39.93}}}); err != nil {
				t.Fatal(err)
			}
			if err := s.EnablePolygonDraw(ctx); err != nil {
				t.Fatal(err)
			}
			ring := [][2]float64{{116.4, 39.9}, {116.41, 39.9}, {116.41, 39.91}}
			if err := s.Gesture(ctx, Gesture{Kind: "polygon", Coordinates: ring}); err != nil {
				t.Fatal(err)
			}
			evs := s.Events(0, false)
			if len(evs) != 2 {
				t.Fatalf("events = %+v", evs)
			}
			if evs[0].Kind != EventBoxSelect || len(evs[0].Features) != 1 || evs[0].Features[0].LayerID != "L1" {
				t.Fatalf("box event = %+v", evs[0])
			}
			if evs[1].Kind != EventPolygonDraw || evs[1].Geometry == nil || len(evs[1].Geometry.Features) != 1 {
				t.Fatalf("draw event = %+v", evs[1])
			}
			if got := s.Events(evs[0].Seq, true); len(got) != 1 || got[0].Seq != evs[1].Seq {
				t.Fatalf("events after %d = %+v", evs[0].Seq, got)
			}
			if got := s.Events(0, false); len(got) != 0 {
				t.Fatalf("inbox not drained: %+v", got)
			}
		})
	}
}

func TestPopupAfterClick(t *testing.T) {
	m := newManager()
	defer m.Shutdown()
	ctx := context.Background()
	s, _ := m.Create(ctx, sdkloader.OpenLayers, view())
	s.Do(ctx, func(a mapadapter.Adapter) error {
		_, err := a.AddGeoJSONLayer(parcel(), mapadapter.LayerOptions{ID: "L1"})
		if err != nil {
			return err
		}
		return a.EnableInfoQuery()
	})
	if p, err := s.Popup(ctx); err != nil || p != nil {
		t.Fatalf("popup before click = %+v, %v", p, err)
	}
	if err := s.Gesture(ctx, Gesture{Kind: "click", Coordinates: [][2]float64{{116.31, 39.91}}}); err != nil {
		t.Fatal(err)
	}
	p, err := s.Popup(ctx)
	if err != nil || p == nil || p.Title != "A" || p.LayerID != "L1" {
		t.Fatalf("popup = %+v, %v", p, err)
	}
}

func TestGestureValidation(t *testing.T) {
	m := newManager()
	defer m.Shutdown()
	ctx := context.Background()
	s, _ := m.Create(ctx, sdkloader.OpenLayers, view())
	bad := []Gesture{
		{Kind: "rectangle", Coordinates: [][2]float64{{1, 1}}},
		{Kind: "polygon", Coordinates: [][2]float64{{1, 1}, {2, 2}}},
		{Kind: "click"},
		{Kind: "pinch", Coordinates: [][2]float64{{1, 1}}},
	}
	for _, g := range bad {
		if err := s.Gesture(ctx, g); !errors.Is(err, ErrBadGesture) {
			t.Errorf("%s: err = %v", g.Kind, err)
		}
	}
}

func TestThemeSupport(t *testing.T) {
	m := newManager()
	defer m.Shutdown()
	ctx := context.Background()
	ol, _ := m.Create(ctx, sdkloader.OpenLayers, view())
	if err := ol.SetTheme(ctx, "satellite"); err != nil {
		t.Fatal(err)
	}
	am, err := m.Create(ctx, sdkloader.AMap, view())
	if err != nil {
		t.Fatal(err)
	}
	if err := am.SetTheme(ctx, "satellite"); !errors.Is(err, ErrThemeUnsupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestSweepClosesIdleSessions(t *testing.T) {
	m := newManager()
	defer m.Shutdown()
	s, err := m.Create(context.Background(), sdkloader.OpenLayers, view())
	if err != nil {
		t.Fatal(err)
	}
	if n := m.sweep(); n != 0 {
		t.Fatalf("fresh session swept: %d", n)
	}
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if n := m.sweep(); n != 1 {
		t.Fatalf("swept = %d", n)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestInfoStateTracksLoop(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	s, err := m.Create(ctx, sdkloader.OpenLayers, view())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = s.Info()
		}
	}()
	for i := 0; i < 100; i++ {
		if err := s.Do(ctx, func(a mapadapter.Adapter) error {
			_, err := a.AddGeoJSONLayer(parcel(), mapadapter.LayerOptions{})
			return err
		}); err != nil {
			t.Fatal(err)
		}
	}
	<-done
	if st := s.Info().State; st != "ready" {
		t.Fatalf("state = %s", st)
	}
	if err := m.Close(s.ID()); err != nil {
		t.Fatal(err)
	}
	if st := s.Info().State; st != "destroyed" {
		t.Fatalf("state after close = %s", st)
	}
}
