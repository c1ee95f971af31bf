package mapadapter

import (
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

var (
	_ Adapter   = (*AMapAdapter)(nil)
	_ Adapter   = (*TencentAdapter)(nil)
	_ Adapter   = (*OpenLayersAdapter)(nil)
	_ Simulator = (*AMapAdapter)(nil)
	_ Simulator = (*TencentAdapter)(nil)
	_ Simulator = (*OpenLayersAdapter)(nil)
	_ Themer    = (*OpenLayersAdapter)(nil)
)

// Providers：支持的提供方，顺序固定
func Providers() []sdkloader.Provider {
	return []sdkloader.Provider{sdkloader.AMap, sdkloader.Tencent, sdkloader.OpenLayers}
}

// 文档注释：按提供方名称构造未初始化的适配器
// 约束：名称大小写敏感；未知名称返回 ErrUnknownProvider，不做任何回退。
func New(provider sdkloader.Provider, container string, o Options) (Adapter, error) {
	switch provider {
	case sdkloader.AMap:
		return NewAMap(container, o), nil
	case sdkloader.Tencent:
		return NewTencent(container, o), nil
	case sdkloader.OpenLayers:
		return NewOpenLayers(container, o), nil
	}
	return nil, ErrUnknownProvider
}
