package coord

import "math"

// 球面墨卡托半径（EPSG:3857）
const mercatorRadius = 6378137.0

// 纬度截断，超出后投影发散
const maxMercatorLat = 85.0511287798066

// LonLatToMercator：经纬度 → EPSG:3857 米制坐标
func LonLatToMercator(lng, lat float64) (float64, float64) {
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	} else if lat < -maxMercatorLat {
		lat = -maxMercatorLat
	}
	x := mercatorRadius * lng * math.Pi / 180
	y := mercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// MercatorToLonLat：EPSG:3857 → 经纬度
func MercatorToLonLat(x, y float64) (float64, float64) {
	lng := x / mercatorRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/mercatorRadius)) - math.Pi/2) * 180 / math.Pi
	return lng, lat
}
