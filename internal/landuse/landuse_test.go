package landuse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"

	"github.com/plutoqz/ruoyi-f/internal/penalty"
)

type fakeQuerier struct {
	res   overpass.Result
	err   error
	calls int
	last  string
	delay time.Duration
}

func (f *fakeQuerier) Query(q string) (overpass.Result, error) {
	f.calls++
	f.last = q
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.res, f.err
}

func closedWay(id int64, tags map[string]string, minLon, minLat, maxLon, maxLat float64) *overpass.Way {
	first := &overpass.Node{Lat: minLat, Lon: minLon}
	return &overpass.Way{
		Meta: overpass.Meta{ID: id, Tags: tags},
		Nodes: []*overpass.Node{
			first,
			{Lat: minLat, Lon: maxLon},
			{Lat: maxLat, Lon: maxLon},
			{Lat: maxLat, Lon: minLon},
			first,
		},
	}
}

var parcel = orb.Bound{Min: orb.Point{108.90, 34.30}, Max: orb.Point{108.91, 34.31}}.ToPolygon()

func TestSuggestLargestOverlap(t *testing.T) {
	fq := &fakeQuerier{res: overpass.Result{Ways: map[int64]*overpass.Way{
		1: closedWay(1, map[string]string{"landuse": "farmland"}, 108.89, 34.29, 108.906, 34.32),
		2: closedWay(2, map[string]string{"landuse": "residential"}, 108.906, 34.29, 108.92, 34.32),
		3: {Meta: overpass.Meta{ID: 3, Tags: map[string]string{"landuse": "forest"}}},
	}}}
	s := New(fq, time.Second)
	sg, err := s.Suggest(context.Background(), parcel)
	if err != nil {
		t.Fatal(err)
	}
	if sg.LandType != penalty.LandCultivated || sg.Tag != "farmland" || sg.Ways != 2 {
		t.Fatalf("suggestion = %+v", sg)
	}
	if sg.Coverage < 0.55 || sg.Coverage > 0.65 || sg.Note != noteBasicFarmland {
		t.Fatalf("suggestion = %+v", sg)
	}
	if !strings.Contains(fq.last, `way["landuse"](34.300000,108.900000,34.310000,108.910000)`) {
		t.Fatalf("query = %s", fq.last)
	}
	again, _ := s.Suggest(context.Background(), parcel)
	if !again.Cached || fq.calls != 1 {
		t.Fatalf("second call cached=%v calls=%d", again.Cached, fq.calls)
	}
}

func TestSuggestNoData(t *testing.T) {
	s := New(&fakeQuerier{}, time.Second)
	sg, err := s.SuggestBound(context.Background(), parcel.Bound())
	if err != nil {
		t.Fatal(err)
	}
	if sg.LandType != penalty.LandOther || sg.Coverage != 0 || sg.Note != noteNoData {
		t.Fatalf("suggestion = %+v", sg)
	}
}

func TestSuggestErrors(t *testing.T) {
	boom := errors.New("boom")
	s := New(&fakeQuerier{err: boom}, time.Second)
	if _, err := s.Suggest(context.Background(), parcel); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.Suggest(context.Background(), orb.Polygon{}); !errors.Is(err, ErrEmptyPolygon) {
		t.Fatalf("err = %v", err)
	}
	slow := New(&fakeQuerier{delay: 200 * time.Millisecond}, 10*time.Millisecond)
	if _, err := slow.Suggest(context.Background(), parcel); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestGeohash(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{57.64911, 10.40744, "u4pruy"},
		{39.9042, 116.4074, "wx4g0b"},
	}
	for _, tt := range tests {
		if got := geohash(tt.lat, tt.lon, 6); got != tt.want {
			t.Errorf("geohash(%v,%v) = %s, want %s", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestLRUExpiryAndEviction(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry kept")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v %v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}
