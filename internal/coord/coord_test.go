package coord

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestRoundTripWithinTolerance(t *testing.T) {
	for lng := 72.5; lng <= 137.5; lng += 2.5 {
		for lat := 1.0; lat <= 55.5; lat += 2.5 {
			gLng, gLat := WGS84ToGCJ02(lng, lat)
			wLng, wLat := GCJ02ToWGS84(gLng, gLat)
			if !approxEqual(wLng, lng, 1e-3) || !approxEqual(wLat, lat, 1e-3) {
				t.Fatalf("round trip (%v,%v) -> (%v,%v)", lng, lat, wLng, wLat)
			}
		}
	}
}

func TestOutsideChinaPassthrough(t *testing.T) {
	cases := []struct{ lng, lat float64 }{
		{200, 10},
		{-122.4194, 37.7749},
		{2.3522, 48.8566},
		{110, 60},
	}
	for _, c := range cases {
		if lng, lat := WGS84ToGCJ02(c.lng, c.lat); lng != c.lng || lat != c.lat {
			t.Errorf("WGS84ToGCJ02(%v,%v) = (%v,%v)", c.lng, c.lat, lng, lat)
		}
		if lng, lat := GCJ02ToWGS84(c.lng, c.lat); lng != c.lng || lat != c.lat {
			t.Errorf("GCJ02ToWGS84(%v,%v) = (%v,%v)", c.lng, c.lat, lng, lat)
		}
	}
}

func TestForwardOffsetMagnitude(t *testing.T) {
	// 西安附近偏移约数百米
	lng, lat := WGS84ToGCJ02(108.948024, 34.263161)
	dLng, dLat := lng-108.948024, lat-34.263161
	if math.Abs(dLng) < 1e-4 || math.Abs(dLng) > 1e-2 || math.Abs(dLat) < 1e-4 || math.Abs(dLat) > 1e-2 {
		t.Fatalf("unexpected offset (%v,%v)", dLng, dLat)
	}
}

func TestBD09RoundTrip(t *testing.T) {
	lng, lat := 116.404, 39.915
	bLng, bLat := GCJ02ToBD09(lng, lat)
	gLng, gLat := BD09ToGCJ02(bLng, bLat)
	if !approxEqual(gLng, lng, 1e-5) || !approxEqual(gLat, lat, 1e-5) {
		t.Fatalf("bd09 round trip (%v,%v)", gLng, gLat)
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	x, y := LonLatToMercator(108.9, 34.3)
	lng, lat := MercatorToLonLat(x, y)
	if !approxEqual(lng, 108.9, 1e-9) || !approxEqual(lat, 34.3, 1e-9) {
		t.Fatalf("mercator round trip (%v,%v)", lng, lat)
	}
	if x0, y0 := LonLatToMercator(0, 0); !approxEqual(x0, 0, 1e-9) || !approxEqual(y0, 0, 1e-9) {
		t.Fatalf("origin -> (%v,%v)", x0, y0)
	}
}

func TestByName(t *testing.T) {
	fn, ok := ByName("WGS-84", "GCJ-02")
	if !ok {
		t.Fatal("expected wgs84 -> gcj02")
	}
	a, b := fn(108.9, 34.3)
	c, d := WGS84ToGCJ02(108.9, 34.3)
	if a != c || b != d {
		t.Fatalf("ByName mismatch")
	}
	id, ok := ByName("gcj02", "gcj02")
	if !ok {
		t.Fatal("identity expected")
	}
	if x, y := id(1, 2); x != 1 || y != 2 {
		t.Fatalf("identity changed input")
	}
	if _, ok := ByName("utm50n", "wgs84"); ok {
		t.Fatal("unknown crs accepted")
	}
}

const sampleFC = `{
  "type": "FeatureCollection",
  "name": "sample",
  "features": [
    {"type": "Feature", "properties": {"name": "A", "code": 1},
     "geometry": {"type": "Polygon", "coordinates": [[[108.9,34.2],[108.91,34.2],[108.91,34.21],[108.9,34.2]]]}},
    {"type": "Feature", "properties": {"name": "B"},
     "geometry": {"type": "Point", "coordinates": [108.95, 34.25, 400]}},
    {"type": "Feature", "properties": {"name": "C"},
     "geometry": {"type": "MultiLineString", "coordinates": [[[108.9,34.2],[109,34.3]],[[109.1,34.1],[109.2,34.2]]]}},
    {"type": "Feature", "properties": {"name": "D"}, "geometry": null}
  ]
}`

const typedFC = `{"type":"FeatureCollection","features":[
  {"type":"Feature","id":"a","properties":{"name":"A"},
   "geometry":{"type":"Polygon","coordinates":[[[108.9,34.2],[108.91,34.2],[108.91,34.21],[108.9,34.2]]]}},
  {"type":"Feature","properties":{"name":"B"},"geometry":{"type":"Point","coordinates":[108.95,34.25]}}
]}`

func TestTransformGeoJSONPreservesStructure(t *testing.T) {
	var in any
	if err := json.Unmarshal([]byte(sampleFC), &in); err != nil {
		t.Fatal(err)
	}
	var pristine any
	_ = json.Unmarshal([]byte(sampleFC), &pristine)

	out := TransformGeoJSON(in, WGS84ToGCJ02)

	if !reflect.DeepEqual(in, pristine) {
		t.Fatal("input mutated")
	}
	inFeats := in.(map[string]any)["features"].([]any)
	outObj := out.(map[string]any)
	outFeats := outObj["features"].([]any)
	if len(outFeats) != len(inFeats) {
		t.Fatalf("feature count %d != %d", len(outFeats), len(inFeats))
	}
	if outObj["name"] != "sample" {
		t.Fatal("foreign member dropped")
	}
	for i := range inFeats {
		fi := inFeats[i].(map[string]any)
		fo := outFeats[i].(map[string]any)
		if !reflect.DeepEqual(fi["properties"], fo["properties"]) {
			t.Errorf("feature %d properties changed", i)
		}
	}
	pt := outFeats[1].(map[string]any)["geometry"].(map[string]any)["coordinates"].([]any)
	if len(pt) != 3 || pt[2].(float64) != 400 {
		t.Fatalf("altitude lost: %v", pt)
	}
	wantLng, wantLat := WGS84ToGCJ02(108.95, 34.25)
	if pt[0].(float64) != wantLng || pt[1].(float64) != wantLat {
		t.Fatalf("point not transformed: %v", pt)
	}
	ring := outFeats[0].(map[string]any)["geometry"].(map[string]any)["coordinates"].([]any)[0].([]any)
	first := ring[0].([]any)
	last := ring[len(ring)-1].([]any)
	if first[0] != last[0] || first[1] != last[1] {
		t.Fatal("ring no longer closed")
	}
	if outFeats[3].(map[string]any)["geometry"] != nil {
		t.Fatal("null geometry changed")
	}
}

func TestTransformGeoJSONBareGeometry(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"feature", `{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[108.9,34.2],[109,34.3]]}}`},
		{"geometry", `{"type":"MultiPolygon","coordinates":[[[[108.9,34.2],[109,34.2],[109,34.3],[108.9,34.2]]]]}`},
		{"collection", `{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[108.9,34.2]}]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := TransformGeoJSONBytes([]byte(c.in), WGS84ToGCJ02)
			if err != nil {
				t.Fatal(err)
			}
			if string(out) == c.in {
				t.Fatal("coordinates unchanged")
			}
			back, err := TransformGeoJSONBytes(out, GCJ02ToWGS84)
			if err != nil {
				t.Fatal(err)
			}
			var v any
			_ = json.Unmarshal(back, &v)
			walkPairs(v, func(lng, lat float64) {
				if lng < 108.8 || lng > 109.1 || lat < 34.1 || lat > 34.4 {
					t.Errorf("pair drifted: %v,%v", lng, lat)
				}
			})
		})
	}
}

func walkPairs(v any, fn func(lng, lat float64)) {
	switch x := v.(type) {
	case map[string]any:
		for _, e := range x {
			walkPairs(e, fn)
		}
	case []any:
		if len(x) >= 2 {
			a, ok1 := x[0].(float64)
			b, ok2 := x[1].(float64)
			if ok1 && ok2 {
				fn(a, b)
				return
			}
		}
		for _, e := range x {
			walkPairs(e, fn)
		}
	}
}

func TestTransformFeatureCollectionTyped(t *testing.T) {
	fc, err := ParseFeatureCollection([]byte(typedFC))
	if err != nil {
		t.Fatal(err)
	}
	orig := fc.Features[0].Geometry.(orb.Polygon)[0][0]

	out := TransformFeatureCollection(fc, WGS84ToGCJ02)
	if len(out.Features) != len(fc.Features) {
		t.Fatalf("feature count %d", len(out.Features))
	}
	if fc.Features[0].Geometry.(orb.Polygon)[0][0] != orig {
		t.Fatal("input geometry mutated")
	}
	got := out.Features[0].Geometry.(orb.Polygon)[0][0]
	wantLng, wantLat := WGS84ToGCJ02(orig[0], orig[1])
	if got[0] != wantLng || got[1] != wantLat {
		t.Fatalf("got %v", got)
	}
	if out.Features[0].Properties.MustString("name", "") != "A" {
		t.Fatal("properties lost")
	}
	out.Features[0].Properties["name"] = "changed"
	if fc.Features[0].Properties["name"] != "A" {
		t.Fatal("properties shared with input")
	}
}

func TestParseFeatureCollectionWraps(t *testing.T) {
	fc, err := ParseFeatureCollection([]byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features %d", len(fc.Features))
	}
	if _, ok := fc.Features[0].Geometry.(orb.Polygon); !ok {
		t.Fatalf("geometry %T", fc.Features[0].Geometry)
	}
	if _, err := ParseFeatureCollection([]byte(`{"type":"Topology"}`)); err != ErrNotGeoJSON {
		t.Fatalf("err %v", err)
	}
}

func TestTransformFeatureKeepsIDDropsBBox(t *testing.T) {
	fc, err := ParseFeatureCollection([]byte(`{"type":"Feature","id":"p1","bbox":[116.3,39.9,116.32,39.92],"properties":{"name":"A"},"geometry":{"type":"Point","coordinates":[116.31,39.91]}}`))
	if err != nil {
		t.Fatal(err)
	}
	out := TransformFeature(fc.Features[0], WGS84ToGCJ02)
	if out.ID != "p1" || out.BBox != nil {
		t.Fatalf("id = %v, bbox = %v", out.ID, out.BBox)
	}
	p := out.Geometry.(orb.Point)
	if wantLng, wantLat := WGS84ToGCJ02(116.31, 39.91); p[0] != wantLng || p[1] != wantLat {
		t.Fatalf("point = %v", p)
	}
	if TransformFeature(nil, WGS84ToGCJ02) != nil {
		t.Fatal("nil feature not passed through")
	}
}
