// 包 mapsdk：三家地图 SDK 的进程内无界面实现所共享的基础能力
// 背景：服务端会话与测试不具备浏览器环境，引擎以黑盒契约的方式在内存中复现
// 覆盖物管理、事件分发、绘制工具生命周期与视图适配；不涉及像素渲染与瓦片。
package mapsdk

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/plutoqz/ruoyi-f/internal/coord"
)

var (
	// ErrMapDestroyed：地图已销毁
	ErrMapDestroyed = errors.New("map destroyed")
	// ErrNoActiveTool：当前没有处于激活状态的绘制工具
	ErrNoActiveTool = errors.New("no active drawing tool")
	// ErrEmptyContainer：未指定容器
	ErrEmptyContainer = errors.New("empty map container")
)

// Viewport：逻辑视口像素尺寸，用于适配缩放级别计算
type Viewport struct {
	Width  float64
	Height float64
}

// DefaultViewport：未指定时的视口
var DefaultViewport = Viewport{Width: 1024, Height: 768}

// Padding：上、右、下、左内边距（像素）
type Padding [4]float64

const tileSize = 256.0

var worldMeters = 2 * math.Pi * 6378137.0

// 文档注释：按墨卡托范围计算适配视口的缩放级别与中心
// 约束：级别向下取整并截断到 [0, maxZoom]；范围退化为点时直接取 maxZoom。
func FitMercator(b orb.Bound, vp Viewport, pad Padding, maxZoom float64) (orb.Point, float64) {
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}
	center := b.Center()
	w := vp.Width - pad[1] - pad[3]
	h := vp.Height - pad[0] - pad[2]
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	spanX := b.Max[0] - b.Min[0]
	spanY := b.Max[1] - b.Min[1]
	z := maxZoom
	if spanX > 0 {
		z = math.Min(z, math.Log2(w*worldMeters/(tileSize*spanX)))
	}
	if spanY > 0 {
		z = math.Min(z, math.Log2(h*worldMeters/(tileSize*spanY)))
	}
	z = math.Floor(z)
	if z < 0 {
		z = 0
	}
	return center, z
}

// FitLonLat：经纬度范围版本，中心同样以经纬度返回
func FitLonLat(b orb.Bound, vp Viewport, pad Padding, maxZoom float64) (orb.Point, float64) {
	x1, y1 := coord.LonLatToMercator(b.Min[0], b.Min[1])
	x2, y2 := coord.LonLatToMercator(b.Max[0], b.Max[1])
	c, z := FitMercator(orb.Bound{Min: orb.Point{x1, y1}, Max: orb.Point{x2, y2}}, vp, pad, maxZoom)
	lng, lat := coord.MercatorToLonLat(c[0], c[1])
	return orb.Point{lng, lat}, z
}

// PathBound：点序列外包框
func PathBound(pts []orb.Point) orb.Bound {
	if len(pts) == 0 {
		return orb.Bound{}
	}
	return orb.MultiPoint(pts).Bound()
}

// 文档注释：点是否落在任一环内（偶奇规则）
// 约束：rings[0] 为外环，其余为洞；点在洞内视为不命中。
func PolygonContains(rings []orb.Ring, p orb.Point) bool {
	if len(rings) == 0 {
		return false
	}
	return planar.PolygonContains(orb.Polygon(rings), p)
}

// CloseRing：首尾不一致时补上首点
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	if r[0] != r[len(r)-1] {
		out := make(orb.Ring, len(r), len(r)+1)
		copy(out, r)
		return append(out, r[0])
	}
	return r
}
