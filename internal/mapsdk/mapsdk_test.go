package mapsdk

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestFitMercatorClampsZoom(t *testing.T) {
	pt := orb.Bound{Min: orb.Point{100, 100}, Max: orb.Point{100, 100}}
	c, z := FitMercator(pt, DefaultViewport, Padding{}, 17)
	if z != 17 || c != (orb.Point{100, 100}) {
		t.Fatalf("point fit = %v %v", c, z)
	}
	world := orb.Bound{Min: orb.Point{-worldMeters, -worldMeters}, Max: orb.Point{worldMeters, worldMeters}}
	if _, z := FitMercator(world, DefaultViewport, Padding{}, 17); z != 0 {
		t.Fatalf("world fit zoom = %v", z)
	}
}

func TestFitMercatorPaddingLowersZoom(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{5000, 5000}}
	_, loose := FitMercator(b, DefaultViewport, Padding{}, 28)
	_, tight := FitMercator(b, DefaultViewport, Padding{300, 300, 300, 300}, 28)
	if tight >= loose {
		t.Fatalf("padding did not lower zoom: %v >= %v", tight, loose)
	}
	if loose != float64(int(loose)) {
		t.Fatalf("zoom not floored: %v", loose)
	}
}

func TestFitLonLatCenter(t *testing.T) {
	b := orb.Bound{Min: orb.Point{116.3, 39.9}, Max: orb.Point{116.5, 40.1}}
	c, z := FitLonLat(b, DefaultViewport, Padding{60, 60, 60, 60}, 17)
	if c[0] < 116.39 || c[0] > 116.41 || c[1] < 39.99 || c[1] > 40.01 {
		t.Fatalf("center = %v", c)
	}
	if z < 8 || z > 13 {
		t.Fatalf("zoom = %v", z)
	}
}

func TestPolygonContainsHole(t *testing.T) {
	outer := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := orb.Ring{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}}
	rings := []orb.Ring{outer, hole}
	tests := []struct {
		p    orb.Point
		want bool
	}{
		{orb.Point{1, 1}, true},
		{orb.Point{5, 5}, false},
		{orb.Point{11, 5}, false},
	}
	for _, tt := range tests {
		if got := PolygonContains(rings, tt.p); got != tt.want {
			t.Errorf("contains(%v) = %v", tt.p, got)
		}
	}
	if PolygonContains(nil, orb.Point{1, 1}) {
		t.Error("empty polygon contains point")
	}
}

func TestCloseRing(t *testing.T) {
	open := orb.Ring{{0, 0}, {1, 0}, {1, 1}}
	closed := CloseRing(open)
	if len(closed) != 4 || closed[3] != closed[0] {
		t.Fatalf("closed = %v", closed)
	}
	if len(open) != 3 {
		t.Fatal("input mutated")
	}
	if again := CloseRing(closed); len(again) != 4 {
		t.Fatalf("closed twice = %v", again)
	}
}

func TestEmitterSnapshotAndDispatching(t *testing.T) {
	var e Emitter
	var order []string
	var second int
	e.On("draw", func(any) {
		order = append(order, "first")
		if !e.Dispatching("draw") {
			t.Error("not dispatching inside handler")
		}
		e.Off("draw", second)
		e.On("draw", func(any) { order = append(order, "late") })
	})
	second = e.On("draw", func(any) { order = append(order, "second") })

	if n := e.Emit("draw", nil); n != 2 {
		t.Fatalf("emit count = %d", n)
	}
	if len(order) != 2 || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
	if e.Dispatching("draw") {
		t.Fatal("still dispatching")
	}
	if e.Listeners("draw") != 2 {
		t.Fatalf("listeners = %d", e.Listeners("draw"))
	}
	e.OffAll("")
	if e.Emit("draw", nil) != 0 {
		t.Fatal("handlers survive OffAll")
	}
}
