package olmap

import (
	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/coord"
)

// 文档注释：GeoJSON 读写（dataProjection EPSG:4326，featureProjection EPSG:3857）
type GeoJSONFormat struct{}

// ReadFeatures：WGS84 要素集合 → 3857 要素；无几何的要素保留属性
func (GeoJSONFormat) ReadFeatures(fc *geojson.FeatureCollection) []*Feature {
	if fc == nil {
		return nil
	}
	out := make([]*Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		props := map[string]any{}
		for k, v := range f.Properties {
			props[k] = v
		}
		out = append(out, &Feature{
			ID:         f.ID,
			Geometry:   coord.TransformGeometry(f.Geometry, coord.LonLatToMercator),
			Properties: props,
		})
	}
	return out
}

// WriteFeatureObject：3857 要素 → WGS84 GeoJSON 要素
func (GeoJSONFormat) WriteFeatureObject(f *Feature) *geojson.Feature {
	gf := geojson.NewFeature(coord.TransformGeometry(f.Geometry, coord.MercatorToLonLat))
	gf.ID = f.ID
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return gf
}
