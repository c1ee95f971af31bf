// 包 sdkloader：地图 SDK 一次性加载与进程级记忆
package sdkloader

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
)

// Provider：地图服务商标识
type Provider string

const (
	AMap       Provider = "amap"
	Tencent    Provider = "tencent"
	OpenLayers Provider = "openlayers"
)

// Credentials：服务商凭据，只在内存中流转，不落盘
type Credentials struct {
	Key          string
	SecurityCode string
}

const (
	amapPlugins  = "AMap.PlaceSearch,AMap.Geocoder,AMap.GeoJSON,AMap.MouseTool,AMap.GeometryUtil"
	qqLibraries  = "place,drawing,geometry"
	qqCallback   = "tencentMapInit"
	amapEndpoint = "https://webapi.amap.com/maps"
	qqEndpoint   = "https://map.qq.com/api/js"
)

// 文档注释：拼装服务商脚本地址
// 约束：第二个返回值为 false 表示该服务商为内置实现，无需网络拉取（openlayers）。
func ScriptURL(p Provider, c Credentials) (string, bool) {
	switch p {
	case AMap:
		q := url.Values{}
		q.Set("v", "2.0")
		q.Set("key", c.Key)
		q.Set("plugin", amapPlugins)
		if c.SecurityCode != "" {
			q.Set("jscode", c.SecurityCode)
		}
		return amapEndpoint + "?" + q.Encode(), true
	case Tencent:
		q := url.Values{}
		q.Set("v", "2.exp")
		q.Set("key", c.Key)
		q.Set("libraries", qqLibraries)
		q.Set("callback", qqCallback)
		return qqEndpoint + "?" + q.Encode(), true
	}
	return "", false
}

// 文档注释：SDK 加载器
// 背景：同一服务商的并发请求共享一次在途拉取；成功后记入标记表，后续调用直接返回。
// 约束：失败不记忆，下一次调用重新拉取；拉取使用独立超时，不受单个调用方 ctx 取消影响。
type Loader struct {
	fetcher Fetcher
	timeout time.Duration
	group   singleflight.Group
	mu      sync.RWMutex
	loaded  map[Provider]bool
}

// New：构造加载器；fetcher 为空时使用 HTTPFetcher
func New(f Fetcher, timeout time.Duration) *Loader {
	if f == nil {
		f = &HTTPFetcher{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Loader{fetcher: f, timeout: timeout, loaded: make(map[Provider]bool)}
}

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
)

// Default：进程级共享加载器
func Default() *Loader {
	defaultOnce.Do(func() { defaultLoader = New(nil, 0) })
	return defaultLoader
}

// SetDefault：替换进程级加载器（入口按配置构造）
func SetDefault(l *Loader) {
	defaultOnce.Do(func() {})
	defaultLoader = l
}

// Loaded：是否已成功加载
func (l *Loader) Loaded(p Provider) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded[p]
}

// Reset：清除成功标记（管理与测试用）
func (l *Loader) Reset(p Provider) {
	l.mu.Lock()
	delete(l.loaded, p)
	l.mu.Unlock()
}

// 文档注释：加载服务商 SDK
// 参数：ctx 仅控制本次等待；c 为凭据，Key 在日志中掩码。
// 返回：拉取失败时为 *ScriptLoadError，所有等待同一次拉取的调用方收到同一个错误。
// 约束：在途拉取与成功标记均只按服务商区分，不含凭据；并发调用方使用先到者的 Key，
// 加载成功后换 Key 不会重新拉取，需先 Reset。
func (l *Loader) Load(ctx context.Context, p Provider, c Credentials) error {
	if l.Loaded(p) {
		metrics.SDKLoadTotal.WithLabelValues(string(p), "cached").Inc()
		return nil
	}
	ch := l.group.DoChan(string(p), func() (any, error) {
		if l.Loaded(p) {
			return nil, nil
		}
		err := l.fetch(p, c)
		if err == nil {
			l.mu.Lock()
			l.loaded[p] = true
			l.mu.Unlock()
		}
		return nil, err
	})
	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) fetch(p Provider, c Credentials) error {
	u, remote := ScriptURL(p, c)
	if !remote {
		if p != OpenLayers {
			return &ScriptLoadError{Provider: p, Err: fmt.Errorf("unknown provider %q", p)}
		}
		logger.L().Debug("sdk_bundled", "provider", p)
		metrics.SDKLoadTotal.WithLabelValues(string(p), "ok").Inc()
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	t0 := time.Now()
	logger.L().Debug("sdk_fetch", "provider", p, "key", maskKey(c.Key))
	err := l.fetcher.Fetch(ctx, u)
	dur := time.Since(t0).Milliseconds()
	metrics.SDKFetchDurationMs.WithLabelValues(string(p)).Observe(float64(dur))
	if err != nil {
		metrics.SDKLoadTotal.WithLabelValues(string(p), "error").Inc()
		logger.L().Error("sdk_load_error", "provider", p, "url", redactURL(u), "err", err, "duration_ms", dur)
		return &ScriptLoadError{Provider: p, URL: redactURL(u), Err: err}
	}
	metrics.SDKLoadTotal.WithLabelValues(string(p), "ok").Inc()
	logger.L().Info("sdk_loaded", "provider", p, "duration_ms", dur)
	return nil
}

func maskKey(k string) string {
	if len(k) <= 6 {
		if k == "" {
			return ""
		}
		return "***"
	}
	return k[:3] + "***" + k[len(k)-3:]
}

// 地址中的 key/jscode 只保留掩码
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, k := range []string{"key", "jscode"} {
		if v := q.Get(k); v != "" {
			q.Set(k, maskKey(v))
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
