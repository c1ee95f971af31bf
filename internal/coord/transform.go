// 包 coord：WGS-84 / GCJ-02 / BD-09 / EPSG:3857 之间的坐标转换，以及 GeoJSON 坐标树改写
package coord

import (
	"math"
	"strings"
)

const (
	axis         = 6378245.0              // 长半轴
	eccentricity = 0.00669342162296594323 // 偏心率平方
	xPi          = math.Pi * 3000.0 / 180.0
)

// Func：坐标转换函数签名，输入输出均为 (lng, lat)
type Func func(lng, lat float64) (float64, float64)

// OutOfChina：判断是否超出中国大陆外包范围
// 约束：仅做矩形包络判断，不处理港澳台与海域的精细边界
func OutOfChina(lng, lat float64) bool {
	return lng < 72.004 || lng > 137.8347 || lat < 0.8293 || lat > 55.8271
}

// 文档注释：WGS84 → GCJ02
// 约束：范围外原样返回；输出顺序为 (lng, lat)
func WGS84ToGCJ02(lng, lat float64) (float64, float64) {
	if OutOfChina(lng, lat) {
		return lng, lat
	}
	dLng, dLat := delta(lng, lat)
	return lng + dLng, lat + dLat
}

// 文档注释：GCJ02 → WGS84
// 约束：以 2*gcj - f(gcj) 近似反算，非严格逆变换；中国范围内往返误差小于 1e-3 度。
// 下游罚款计算依赖该近似的结果，不要替换为迭代求逆。
func GCJ02ToWGS84(lng, lat float64) (float64, float64) {
	if OutOfChina(lng, lat) {
		return lng, lat
	}
	dLng, dLat := delta(lng, lat)
	mgLng := lng + dLng
	mgLat := lat + dLat
	return lng*2 - mgLng, lat*2 - mgLat
}

// GCJ02ToBD09：火星坐标 → 百度坐标
func GCJ02ToBD09(lng, lat float64) (float64, float64) {
	z := math.Sqrt(lng*lng+lat*lat) + 0.00002*math.Sin(lat*xPi)
	theta := math.Atan2(lat, lng) + 0.000003*math.Cos(lng*xPi)
	return z*math.Cos(theta) + 0.0065, z*math.Sin(theta) + 0.006
}

// BD09ToGCJ02：百度坐标 → 火星坐标
func BD09ToGCJ02(lng, lat float64) (float64, float64) {
	x := lng - 0.0065
	y := lat - 0.006
	z := math.Sqrt(x*x+y*y) - 0.00002*math.Sin(y*xPi)
	theta := math.Atan2(y, x) - 0.000003*math.Cos(x*xPi)
	return z * math.Cos(theta), z * math.Sin(theta)
}

// BD09ToWGS84：BD-09 → GCJ-02 → WGS84
func BD09ToWGS84(lng, lat float64) (float64, float64) {
	return GCJ02ToWGS84(BD09ToGCJ02(lng, lat))
}

// WGS84ToBD09：WGS84 → GCJ-02 → BD-09
func WGS84ToBD09(lng, lat float64) (float64, float64) {
	return GCJ02ToBD09(WGS84ToGCJ02(lng, lat))
}

func delta(lng, lat float64) (float64, float64) {
	dLat := transformLat(lng-105.0, lat-35.0)
	dLng := transformLng(lng-105.0, lat-35.0)
	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - eccentricity*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((axis * (1 - eccentricity)) / (magic * sqrtMagic) * math.Pi)
	dLng = (dLng * 180.0) / (axis / sqrtMagic * math.Cos(radLat) * math.Pi)
	return dLng, dLat
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLng(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}

// 坐标系名称
const (
	WGS84    = "wgs84"
	GCJ02    = "gcj02"
	BD09     = "bd09"
	EPSG3857 = "epsg3857"
)

// NormalizeName：统一坐标系名称写法（GCJ-02 / gcj02 / EPSG:4326 等）
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "_", "", ":", "", " ", "").Replace(s)
	switch s {
	case "", "wgs84", "epsg4326", "4326":
		return WGS84
	case "gcj02", "mars":
		return GCJ02
	case "bd09", "bd09ll", "baidu":
		return BD09
	case "epsg3857", "3857", "webmercator", "epsg900913":
		return EPSG3857
	}
	return s
}

// 文档注释：按名称组合转换函数
// 约束：统一经由 WGS84 中转；未知名称返回 false。同名返回恒等函数。
func ByName(from, to string) (Func, bool) {
	from, to = NormalizeName(from), NormalizeName(to)
	toWGS, ok1 := toWGS84[from]
	fromWGS, ok2 := fromWGS84[to]
	if !ok1 || !ok2 {
		return nil, false
	}
	if from == to {
		return identity, true
	}
	return func(lng, lat float64) (float64, float64) {
		return fromWGS(toWGS(lng, lat))
	}, true
}

func identity(lng, lat float64) (float64, float64) { return lng, lat }

var toWGS84 = map[string]Func{
	WGS84:    identity,
	GCJ02:    GCJ02ToWGS84,
	BD09:     BD09ToWGS84,
	EPSG3857: MercatorToLonLat,
}

var fromWGS84 = map[string]Func{
	WGS84:    identity,
	GCJ02:    WGS84ToGCJ02,
	BD09:     WGS84ToBD09,
	EPSG3857: LonLatToMercator,
}
