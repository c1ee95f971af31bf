package coord

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// 文档注释：改写任意 GeoJSON 值中的全部坐标（深拷贝）
// 背景：输入为 encoding/json 解码后的 map[string]any / []any 树，可为 FeatureCollection、Feature、裸 Geometry，
// 或仅携带 coordinates 的对象；GeometryCollection 逐个改写 geometries。
// 约束：原对象不被修改；坐标叶子为“前两项是数字的数组”，第三维及以后原样保留；非坐标结构原样拷贝。
func TransformGeoJSON(v any, fn Func) any {
	if v == nil || fn == nil {
		return v
	}
	out := deepCopy(v)
	obj, ok := out.(map[string]any)
	if !ok {
		return out
	}
	switch strings.ToLower(getStr(obj, "type")) {
	case "featurecollection":
		if arr, ok := obj["features"].([]any); ok {
			for _, it := range arr {
				if f, ok := it.(map[string]any); ok {
					rewriteGeometry(f["geometry"], fn)
				}
			}
		}
	case "feature":
		rewriteGeometry(obj["geometry"], fn)
	default:
		if g, ok := obj["geometry"].(map[string]any); ok {
			rewriteGeometry(g, fn)
		} else {
			rewriteGeometry(obj, fn)
		}
	}
	return out
}

// TransformGeoJSONBytes：对 JSON 文本执行 TransformGeoJSON
func TransformGeoJSONBytes(b []byte, fn Func) ([]byte, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return json.Marshal(TransformGeoJSON(v, fn))
}

func rewriteGeometry(g any, fn Func) {
	obj, ok := g.(map[string]any)
	if !ok {
		return
	}
	if c, ok := obj["coordinates"]; ok {
		obj["coordinates"] = rewriteCoords(c, fn)
	}
	if arr, ok := obj["geometries"].([]any); ok {
		for _, it := range arr {
			rewriteGeometry(it, fn)
		}
	}
}

func rewriteCoords(c any, fn Func) any {
	arr, ok := c.([]any)
	if !ok || len(arr) == 0 {
		return c
	}
	if len(arr) >= 2 {
		x, okx := toNumber(arr[0])
		y, oky := toNumber(arr[1])
		if okx && oky {
			nx, ny := fn(x, y)
			arr[0], arr[1] = nx, ny
			return arr
		}
	}
	if _, ok := arr[0].([]any); ok {
		for i := range arr {
			arr[i] = rewriteCoords(arr[i], fn)
		}
	}
	return arr
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = deepCopy(e)
		}
		return m
	case []any:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = deepCopy(e)
		}
		return a
	default:
		return v
	}
}

func getStr(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

// 文档注释：改写 orb FeatureCollection 的坐标（深拷贝）
// 约束：要素数量、顺序、ID 与属性保持不变；bbox 成员在改写后失效，因此被清空。
func TransformFeatureCollection(fc *geojson.FeatureCollection, fn Func) *geojson.FeatureCollection {
	if fc == nil || fn == nil {
		return fc
	}
	out := geojson.NewFeatureCollection()
	if fc.ExtraMembers != nil {
		out.ExtraMembers = fc.ExtraMembers.Clone()
	}
	for _, f := range fc.Features {
		out.Append(TransformFeature(f, fn))
	}
	return out
}

// TransformFeature：单要素版本；ID 与属性保留，bbox 不复制
func TransformFeature(f *geojson.Feature, fn Func) *geojson.Feature {
	if f == nil {
		return nil
	}
	nf := &geojson.Feature{
		ID:         f.ID,
		Type:       f.Type,
		Geometry:   TransformGeometry(f.Geometry, fn),
		Properties: f.Properties.Clone(),
	}
	if nf.Properties == nil {
		nf.Properties = geojson.Properties{}
	}
	return nf
}

// TransformGeometry：克隆后逐点改写
func TransformGeometry(g orb.Geometry, fn Func) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		x, y := fn(p[0], p[1])
		return orb.Point{x, y}
	})
}

// ErrNotGeoJSON：无法识别的 GeoJSON 结构
var ErrNotGeoJSON = errors.New("not a geojson feature, feature collection or geometry")

// 文档注释：将 Feature / FeatureCollection / 裸 Geometry 统一解析为 FeatureCollection
// 约束：裸 Geometry 包装为无属性的单要素集合；GeometryCollection 作为单个要素保留。
func ParseFeatureCollection(b []byte) (*geojson.FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, err
	}
	switch strings.ToLower(head.Type) {
	case "featurecollection":
		return geojson.UnmarshalFeatureCollection(b)
	case "feature":
		f, err := geojson.UnmarshalFeature(b)
		if err != nil {
			return nil, err
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	case "point", "multipoint", "linestring", "multilinestring", "polygon", "multipolygon", "geometrycollection":
		g, err := geojson.UnmarshalGeometry(b)
		if err != nil {
			return nil, err
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(g.Geometry()))
		return fc, nil
	}
	return nil, ErrNotGeoJSON
}
