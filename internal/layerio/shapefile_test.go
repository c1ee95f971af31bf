package layerio

import (
	"archive/zip"
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/plutoqz/ruoyi-f/internal/coord"
)

func gbk(t *testing.T, s string) string {
	t.Helper()
	out, err := simplifiedchinese.GBK.NewEncoder().String(s)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// 外环顺时针，洞逆时针
func cwSquare(x, y, s float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + s}, {X: x + s, Y: y + s}, {X: x + s, Y: y}, {X: x, Y: y}}
}

func ccwSquare(x, y, s float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x + s, Y: y}, {X: x + s, Y: y + s}, {X: x, Y: y + s}, {X: x, Y: y}}
}

func writeParcels(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "parcels.shp")
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetFields([]shp.Field{shp.StringField("NAME", 40), shp.NumberField("CODE", 8)}); err != nil {
		t.Fatal(err)
	}
	withHole := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		cwSquare(116.30, 39.90, 0.02),
		ccwSquare(116.305, 39.905, 0.005),
	}))
	w.Write(&withHole)
	w.WriteAttribute(0, 0, gbk(t, "图斑一"))
	w.WriteAttribute(0, 1, 1)
	twoParts := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		cwSquare(116.40, 39.90, 0.01),
		cwSquare(116.50, 39.90, 0.01),
	}))
	w.Write(&twoParts)
	w.WriteAttribute(1, 0, gbk(t, "图斑二"))
	w.WriteAttribute(1, 1, 2)
	w.Close()
	// go-shp v0.1.1 写出的属性文件名缺少扩展名前的点
	if _, err := os.Stat(filepath.Join(dir, "parcelsdbf")); err == nil {
		if err := os.Rename(filepath.Join(dir, "parcelsdbf"), filepath.Join(dir, "parcels.dbf")); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestReadShapefileGBKAndRings(t *testing.T) {
	path := writeParcels(t, t.TempDir())
	res, err := ReadFile(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Features != 2 || res.GeometryType != "Polygon" || res.Encoding != EncodingGB18030 || res.MissingDBF {
		t.Fatalf("result = %+v", res)
	}
	f0 := res.Collection.Features[0]
	if f0.Properties["NAME"] != "图斑一" || f0.Properties["CODE"] != "1" {
		t.Fatalf("properties = %v", f0.Properties)
	}
	pg, ok := f0.Geometry.(orb.Polygon)
	if !ok || len(pg) != 2 {
		t.Fatalf("geometry = %#v", f0.Geometry)
	}
	if pg[0].Orientation() != orb.CCW || pg[1].Orientation() != orb.CW {
		t.Fatal("rings not in right-hand order")
	}
	mp, ok := res.Collection.Features[1].Geometry.(orb.MultiPolygon)
	if !ok || len(mp) != 2 {
		t.Fatalf("geometry = %#v", res.Collection.Features[1].Geometry)
	}
}

func TestReadShapefileReprojects(t *testing.T) {
	path := writeParcels(t, t.TempDir())
	res, err := ReadFile(path, Options{CRS: "GCJ-02", Encoding: "gbk"})
	if err != nil {
		t.Fatal(err)
	}
	p := res.Collection.Features[0].Geometry.(orb.Polygon)[0][0]
	lng, lat := coord.GCJ02ToWGS84(116.30, 39.90)
	if math.Abs(p[0]-lng) > 1e-9 || math.Abs(p[1]-lat) > 1e-9 {
		t.Fatalf("first vertex = %v, want %v,%v", p, lng, lat)
	}
	if _, err := ReadFile(path, Options{CRS: "utm50"}); !errors.Is(err, ErrUnknownCRS) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadZip(t *testing.T) {
	dir := t.TempDir()
	writeParcels(t, dir)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		b, err := os.ReadFile(filepath.Join(dir, "parcels"+ext))
		if err != nil {
			t.Fatal(err)
		}
		w, _ := zw.Create("data/Parcels" + map[string]string{".shp": ".SHP", ".shx": ".SHX", ".dbf": ".DBF"}[ext])
		w.Write(b)
	}
	cpg, _ := zw.Create("data/Parcels.cpg")
	cpg.Write([]byte("GBK"))
	zw.Close()
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	res, err := ReadZip(zr, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Features != 2 || res.Collection.Features[1].Properties["NAME"] != "图斑二" {
		t.Fatalf("result = %+v", res)
	}
}

func TestReadZipWithoutShapefile(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("readme.txt")
	w.Write([]byte("x"))
	zw.Close()
	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if _, err := ReadZip(zr, Options{}); !errors.Is(err, ErrNoShapefile) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ReadFile("layer.kml", Options{}); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("err = %v", err)
	}
}

func TestPolygonsOrphanHoleBecomesPolygon(t *testing.T) {
	g := polygons([]int32{0}, ccwSquare(0, 0, 1))
	pg, ok := g.(orb.Polygon)
	if !ok || len(pg) != 1 {
		t.Fatalf("geometry = %#v", g)
	}
	if polygons(nil, nil) != nil {
		t.Fatal("empty polygon not nil")
	}
}

func TestNormalizeEncoding(t *testing.T) {
	tests := map[string]string{"UTF-8": EncodingUTF8, "gbk": EncodingGB18030, "936": EncodingGB18030, "": EncodingAuto, "latin1": EncodingAuto}
	for in, want := range tests {
		if got := normalizeEncoding(in); got != want {
			t.Errorf("normalizeEncoding(%q) = %q", in, got)
		}
	}
}

func TestReadShapefileWithoutDBF(t *testing.T) {
	dir := t.TempDir()
	path := writeParcels(t, dir)
	if err := os.Remove(filepath.Join(dir, "parcels.dbf")); err != nil {
		t.Fatal(err)
	}
	res, err := ReadFile(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.MissingDBF || res.Features != 2 || len(res.Collection.Features[0].Properties) != 0 {
		t.Fatalf("result = %+v", res)
	}
}
