// 包 amap：高德 Web 服务逆地理编码客户端，为处罚案件补充文字地址
package amap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
)

const defaultBase = "https://restapi.amap.com"

var ErrMissingKey = errors.New("missing amap server key")

// APIError：status 非 1 时的服务端错误
type APIError struct {
	Info     string
	Infocode string
}

func (e *APIError) Error() string { return "amap error: " + e.Info + " (" + e.Infocode + ")" }

// 文档注释：宽松字符串
// 背景：高德在字段无值时返回空数组 []（如直辖市的 city），有值时返回字符串。
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*f = flexString(strings.Join(arr, ""))
		return nil
	}
	*f = ""
	return nil
}

type regeoResponse struct {
	Status    string `json:"status"`
	Info      string `json:"info"`
	Infocode  string `json:"infocode"`
	Regeocode struct {
		FormattedAddress flexString `json:"formatted_address"`
		AddressComponent struct {
			Province flexString `json:"province"`
			City     flexString `json:"city"`
			District flexString `json:"district"`
			Township flexString `json:"township"`
			Adcode   flexString `json:"adcode"`
		} `json:"addressComponent"`
	} `json:"regeocode"`
}

// Address：逆地理编码结果
type Address struct {
	Formatted string `json:"formatted"`
	Province  string `json:"province"`
	City      string `json:"city"`
	District  string `json:"district"`
	Township  string `json:"township"`
	Adcode    string `json:"adcode"`
}

// Client：高德 REST 客户端
type Client struct {
	key  string
	base string
	hc   *http.Client
}

// New：hc 为空时使用 5s 超时的默认客户端
func New(key string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{key: key, base: defaultBase, hc: hc}
}

// WithBase：替换服务地址（测试或私有代理）
func (c *Client) WithBase(base string) *Client {
	c.base = strings.TrimRight(base, "/")
	return c
}

// Enabled：是否配置了服务端密钥
func (c *Client) Enabled() bool { return c != nil && c.key != "" }

// 文档注释：逆地理编码
// 参数：lng/lat 为 WGS84，请求前转换为 GCJ-02。
// 返回：status!="1" 时返回 *APIError；直辖市的 city 为空时以 province 补齐。
func (c *Client) Regeo(ctx context.Context, lng, lat float64) (*Address, error) {
	if !c.Enabled() {
		return nil, ErrMissingKey
	}
	glng, glat := coord.WGS84ToGCJ02(lng, lat)
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("location", strconv.FormatFloat(glng, 'f', 6, 64)+","+strconv.FormatFloat(glat, 'f', 6, 64))
	q.Set("extensions", "base")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v3/geocode/regeo?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	metrics.AMapRequestsTotal.Inc()
	resp, err := c.hc.Do(req)
	if err != nil {
		logger.L().Error("amap_http_error", "err", err)
		metrics.AMapFailTotal.Inc()
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.AMapFailTotal.Inc()
		return nil, fmt.Errorf("amap http status %d", resp.StatusCode)
	}
	var r regeoResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.L().Error("amap_decode_error", "err", err)
		metrics.AMapFailTotal.Inc()
		return nil, err
	}
	dur := time.Since(t0).Milliseconds()
	metrics.AMapDurationMs.Observe(float64(dur))
	logger.L().Debug("amap_regeo", "status", r.Status, "infocode", r.Infocode, "duration_ms", dur)
	if r.Status != "1" {
		metrics.AMapFailTotal.Inc()
		return nil, &APIError{Info: r.Info, Infocode: r.Infocode}
	}
	metrics.AMapSuccessTotal.Inc()
	ac := r.Regeocode.AddressComponent
	a := &Address{
		Formatted: string(r.Regeocode.FormattedAddress),
		Province:  string(ac.Province),
		City:      string(ac.City),
		District:  string(ac.District),
		Township:  string(ac.Township),
		Adcode:    string(ac.Adcode),
	}
	if a.City == "" {
		a.City = a.Province
	}
	return a, nil
}
