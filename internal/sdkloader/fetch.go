package sdkloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// 文档注释：SDK 脚本加载失败
// 背景：对初始化是致命错误；适配器据此进入 Failed 状态，与“尚未初始化”区分。
type ScriptLoadError struct {
	Provider Provider
	URL      string
	Err      error
}

func (e *ScriptLoadError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("load %s sdk: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("load %s sdk from %s: %v", e.Provider, e.URL, e.Err)
}

func (e *ScriptLoadError) Unwrap() error { return e.Err }

// Fetcher：拉取脚本资源的抽象，测试中替换为内存实现
type Fetcher interface {
	Fetch(ctx context.Context, url string) error
}

// 文档注释：基于 HTTP GET 的脚本拉取
// 约束：非 2xx 视为失败；响应体最多读取 8MB 后丢弃，只确认脚本可达。
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<20))
	return err
}
