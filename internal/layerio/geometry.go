package layerio

import (
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 文档注释：go-shp 几何转 orb 几何
// 约束：Z/M 分量丢弃；空几何（NullShape、零点）返回 nil。
func toGeometry(s shp.Shape) orb.Geometry {
	switch v := s.(type) {
	case *shp.Point:
		return orb.Point{v.X, v.Y}
	case *shp.PointZ:
		return orb.Point{v.X, v.Y}
	case *shp.PointM:
		return orb.Point{v.X, v.Y}
	case *shp.MultiPoint:
		return multiPoint(v.Points)
	case *shp.MultiPointZ:
		return multiPoint(v.Points)
	case *shp.MultiPointM:
		return multiPoint(v.Points)
	case *shp.PolyLine:
		return lines(v.Parts, v.Points)
	case *shp.PolyLineZ:
		return lines(v.Parts, v.Points)
	case *shp.PolyLineM:
		return lines(v.Parts, v.Points)
	case *shp.Polygon:
		return polygons(v.Parts, v.Points)
	case *shp.PolygonZ:
		return polygons(v.Parts, v.Points)
	case *shp.PolygonM:
		return polygons(v.Parts, v.Points)
	}
	return nil
}

func multiPoint(pts []shp.Point) orb.Geometry {
	if len(pts) == 0 {
		return nil
	}
	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// split：按 Parts 偏移把点序列切成若干段
func split(parts []int32, pts []shp.Point) [][]orb.Point {
	if len(pts) == 0 {
		return nil
	}
	if len(parts) == 0 {
		parts = []int32{0}
	}
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(pts)) || start >= end {
			continue
		}
		seg := make([]orb.Point, 0, end-start)
		for _, p := range pts[start:end] {
			seg = append(seg, orb.Point{p.X, p.Y})
		}
		out = append(out, seg)
	}
	return out
}

func lines(parts []int32, pts []shp.Point) orb.Geometry {
	segs := split(parts, pts)
	switch len(segs) {
	case 0:
		return nil
	case 1:
		return orb.LineString(segs[0])
	}
	ml := make(orb.MultiLineString, len(segs))
	for i, s := range segs {
		ml[i] = orb.LineString(s)
	}
	return ml
}

// 文档注释：多部件面转 Polygon / MultiPolygon
// 背景：Shapefile 外环顺时针、内环逆时针；每个顺时针环开启一个新面，逆时针环作为洞归入包含它的外环，
// 找不到外环的逆时针环按独立面处理。
// 约束：输出遵循 GeoJSON 右手法则（外环逆时针、洞顺时针）；不足 4 点的环丢弃，未闭合的环补闭合点。
func polygons(parts []int32, pts []shp.Point) orb.Geometry {
	var outers []orb.Polygon
	var holes []orb.Ring
	for _, seg := range split(parts, pts) {
		r := orb.Ring(seg)
		if len(r) > 0 && !r.Closed() {
			r = append(r, r[0])
		}
		if len(r) < 4 {
			continue
		}
		if r.Orientation() == orb.CW {
			r.Reverse()
			outers = append(outers, orb.Polygon{r})
			continue
		}
		holes = append(holes, r)
	}
	for _, h := range holes {
		placed := false
		for i := range outers {
			if ringInside(h, outers[i][0]) {
				h.Reverse()
				outers[i] = append(outers[i], h)
				placed = true
				break
			}
		}
		if !placed {
			outers = append(outers, orb.Polygon{h})
		}
	}
	switch len(outers) {
	case 0:
		return nil
	case 1:
		return outers[0]
	}
	return orb.MultiPolygon(outers)
}

func ringInside(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	return planar.RingContains(outer, inner[0])
}
