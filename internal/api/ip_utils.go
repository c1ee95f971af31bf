package api

import (
	"net"
	"net/http"
	"strings"
)

// 依次检查的代理头
var proxyHeaders = []string{
	"x-forwarded-for",
	"cf-connecting-ip",
	"x-real-ip",
	"x-client-ip",
	"x-edge-client-ip",
	"x-edgeone-ip",
}

// 文档注释：获取操作人 IP（写入案件记录并用于地区查询）
// 背景：多层代理环境下优先常见反向代理头，再看 Forwarded，最后回退远端地址。
// 约束：头部可被伪造，结果只作记录，不作鉴权依据。
func operatorIP(r *http.Request) string {
	h := r.Header
	for _, k := range proxyHeaders {
		if x := strings.TrimSpace(strings.Split(h.Get(k), ",")[0]); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\"[]")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
