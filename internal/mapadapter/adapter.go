// 包 mapadapter：三家地图 SDK 之上的统一能力接口
// 背景：调用方只接触 WGS84 GeoJSON 与统一结果对象；各实现私下完成到原生坐标系（GCJ-02 / EPSG:3857）的转换。
package mapadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/eventloop"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

var (
	ErrUnknownProvider    = errors.New("unknown map provider")
	ErrNotReady           = errors.New("map adapter not ready")
	ErrDestroyed          = errors.New("map adapter destroyed")
	ErrAlreadyInitialized = errors.New("map adapter already initialized")
	ErrEmptyGeoJSON       = errors.New("geojson is nil")
	ErrInvalidTheme       = errors.New("theme must be normal or satellite")
)

// MapView：视图状态，中心为 WGS84 [lng, lat]
type MapView struct {
	Center [2]float64 `json:"center"`
	Zoom   float64    `json:"zoom"`
}

// LayerOptions：图层参数；ID 为空时生成 UUID
type LayerOptions struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// LayerInfo：图层登记信息
type LayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Visible  bool   `json:"visible"`
	Features int    `json:"features"`
}

// SelectedFeature：框选命中的要素
type SelectedFeature struct {
	LayerID    string         `json:"layerId"`
	LayerName  string         `json:"layerName"`
	Properties map[string]any `json:"properties"`
}

// Popup：信息查询弹窗内容
type Popup struct {
	Title    string     `json:"title"`
	Lines    []string   `json:"lines"`
	Area     float64    `json:"area"`
	AreaUnit string     `json:"areaUnit"`
	Position [2]float64 `json:"position"`
	LayerID  string     `json:"layerId,omitempty"`
}

// State：适配器生命周期
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Failed
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// 文档注释：统一地图能力接口
// 约束：非并发安全，所有调用须在所属事件循环上执行；未知图层编号的操作为空操作；
// Destroy 与各 Disable 方法在任何状态下可重复调用。
type Adapter interface {
	Provider() sdkloader.Provider
	Init(ctx context.Context, v MapView) (Adapter, error)
	Destroy()
	MapView() *MapView
	State() State
	Err() error

	AddGeoJSONLayer(fc *geojson.FeatureCollection, o LayerOptions) (string, error)
	RemoveLayer(id string)
	ToggleLayerVisibility(id string, visible bool)
	Layers() []LayerInfo

	EnableBoxSelect(onSelect func([]SelectedFeature)) error
	DisableBoxSelect()
	EnableInfoQuery() error
	DisableInfoQuery()
	Popup() *Popup
	EnablePolygonDraw(onDrawEnd func(*geojson.FeatureCollection)) error
	DisablePolygonDraw()
}

// 文档注释：手势模拟
// 背景：无界面引擎没有真实鼠标；坐标一律为 WGS84，由实现换算到原生坐标后驱动引擎。
type Simulator interface {
	SimulateRectangle(a, b [2]float64) error
	SimulatePolygon(ring [][2]float64) error
	SimulateClick(p [2]float64) error
}

// Themer：支持底图主题切换的实现
type Themer interface {
	SetTheme(theme string) error
	Theme() string
}

// Options：构造参数
type Options struct {
	Credentials sdkloader.Credentials
	// Loader 为空时使用进程级加载器
	Loader *sdkloader.Loader
	// Loop 为空时自建循环，由调用方 Flush 推进
	Loop *eventloop.Loop
	// BaseMap 仅 openlayers 使用：tianditu | osm
	BaseMap  string
	Viewport mapsdk.Viewport
}

const (
	fillColor    = "#ED6A45"
	fillOpacity  = 0.6
	strokeColor  = "#fff"
	strokeWeight = 2.0
	fitPadding   = 60.0
	fitMaxZoom   = 17.0
	toolColor    = "#007bff"
	defaultTitle = "区域信息"
)

var fitPad = mapsdk.Padding{fitPadding, fitPadding, fitPadding, fitPadding}

// base：三家实现共享的状态机与依赖
type base struct {
	provider  sdkloader.Provider
	container string
	opts      Options
	loop      *eventloop.Loop
	state     State
	err       error
	log       *slog.Logger
}

func newBase(p sdkloader.Provider, container string, o Options) base {
	lp := o.Loop
	if lp == nil {
		lp = eventloop.New()
	}
	return base{
		provider:  p,
		container: container,
		opts:      o,
		loop:      lp,
		log:       logger.L().With("provider", string(p), "container", container),
	}
}

func (b *base) Provider() sdkloader.Provider { return b.provider }
func (b *base) State() State                 { return b.state }
func (b *base) Err() error                   { return b.err }

// Loop：所属事件循环
func (b *base) Loop() *eventloop.Loop { return b.loop }

// 文档注释：进入初始化并加载 SDK
// 约束：只能从 Uninitialized 或 Failed 进入；加载失败进入 Failed 并保留错误。
func (b *base) beginInit(ctx context.Context) error {
	switch b.state {
	case Initializing, Ready:
		return ErrAlreadyInitialized
	case Destroyed:
		return ErrDestroyed
	}
	b.state = Initializing
	b.err = nil
	ld := b.opts.Loader
	if ld == nil {
		ld = sdkloader.Default()
	}
	if err := ld.Load(ctx, b.provider, b.opts.Credentials); err != nil {
		return b.fail(err)
	}
	if b.state == Destroyed {
		return ErrDestroyed
	}
	return nil
}

func (b *base) fail(err error) error {
	if b.state != Destroyed {
		b.state = Failed
		b.err = err
	}
	b.log.Error("adapter_init_error", "err", err)
	b.count("init_error")
	return err
}

func (b *base) markReady() {
	b.state = Ready
	b.log.Info("adapter_ready")
	b.count("init")
}

func (b *base) ready() error {
	switch b.state {
	case Ready:
		return nil
	case Destroyed:
		return ErrDestroyed
	}
	return ErrNotReady
}

func (b *base) count(op string) {
	metrics.AdapterOpsTotal.WithLabelValues(string(b.provider), op).Inc()
}

// 回调中的 panic 不得破坏引擎事件分发
func (b *base) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("callback_panic", "callback", name, "panic", r)
		}
	}()
	fn()
}

func featureName(props map[string]any) string {
	if s, ok := props["name"].(string); ok && s != "" {
		return s
	}
	return defaultTitle
}

func cloneProps(p geojson.Properties) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func singleFeature(f *geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}
