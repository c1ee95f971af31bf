// 包 region：基于 ip2region 离线库解析操作人 IP 所属地区，用于案件留痕
package region

import (
	"net"
	"strings"
	"sync"

	"github.com/lionsoul2014/ip2region/binding/golang/xdb"

	"github.com/plutoqz/ruoyi-f/internal/logger"
)

// Region：地区信息，未知字段为空串
type Region struct {
	Country  string `json:"country"`
	Area     string `json:"area,omitempty"`
	Province string `json:"province"`
	City     string `json:"city"`
	ISP      string `json:"isp,omitempty"`
}

// String：按 国家 省份 城市 拼接非空字段，省市同名时只保留一个
func (r Region) String() string {
	var parts []string
	for _, s := range []string{r.Country, r.Province, r.City} {
		if s != "" && (len(parts) == 0 || parts[len(parts)-1] != s) {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// 文档注释：ip2region 查询器
// 约束：只加载 IPv4 库；文件模式的 Searcher 共享文件句柄，查询串行化；nil 接收者视为未配置。
type Searcher struct {
	mu sync.Mutex
	v4 *xdb.Searcher
}

// Open：path 为空时返回 nil（未配置）
func Open(path string) (*Searcher, error) {
	if path == "" {
		return nil, nil
	}
	s, err := xdb.NewWithFileOnly(xdb.IPv4, path)
	if err != nil {
		return nil, err
	}
	logger.L().Info("ip2region_loaded", "path", path)
	return &Searcher{v4: s}, nil
}

// Lookup：查询 IPv4 文本；IPv6、非法地址或未配置时返回 false
func (s *Searcher) Lookup(ip string) (Region, bool) {
	if s == nil || s.v4 == nil {
		return Region{}, false
	}
	p := net.ParseIP(strings.TrimSpace(ip))
	if p == nil || p.To4() == nil {
		return Region{}, false
	}
	s.mu.Lock()
	raw, err := s.v4.SearchByStr(p.String())
	s.mu.Unlock()
	if err != nil || raw == "" {
		logger.L().Debug("ip2region_miss", "ip", ip, "err", err)
		return Region{}, false
	}
	return parseRegion(raw), true
}

// Close：释放文件句柄
func (s *Searcher) Close() {
	if s == nil || s.v4 == nil {
		return
	}
	s.mu.Lock()
	s.v4.Close()
	s.mu.Unlock()
}

// parseRegion：国家|区域|省份|城市|ISP，"0" 与 unknown 视为空
func parseRegion(s string) Region {
	parts := strings.Split(s, "|")
	at := func(i int) string {
		if i >= len(parts) {
			return ""
		}
		v := strings.TrimSpace(parts[i])
		if v == "0" || strings.EqualFold(v, "unknown") {
			return ""
		}
		return v
	}
	return Region{Country: at(0), Area: at(1), Province: at(2), City: at(3), ISP: at(4)}
}
