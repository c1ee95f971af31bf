package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/logger"
)

// 文档注释：来源白名单（单 IP 与 CIDR，支持 IPv4/IPv6）
// 背景：内网部署时只允许执法终端网段访问；名单为空表示不启用。
// 约束：来源 IP 以 RemoteAddr 为准；指定 realIPHeader 时取该头首个有效 IP。
type Allowlist struct {
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

// NewAllowlist：entries 可混合单 IP 与 CIDR；任一条目无法解析时报错
func NewAllowlist(entries []string, realIPHeader string) (*Allowlist, error) {
	a := &Allowlist{ips: map[string]struct{}{}, realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case strings.Contains(e, "/"):
			_, n, err := net.ParseCIDR(e)
			if err != nil {
				return nil, fmt.Errorf("allowlist cidr %q: %w", e, err)
			}
			a.cidrs = append(a.cidrs, n)
		default:
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("allowlist ip %q: invalid", e)
			}
			a.ips[ip.String()] = struct{}{}
		}
	}
	return a, nil
}

// Empty：名单为空时中间件放行全部请求
func (a *Allowlist) Empty() bool {
	return a == nil || (len(a.ips) == 0 && len(a.cidrs) == 0)
}

func (a *Allowlist) Allowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *Allowlist) sourceIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			if ip := net.ParseIP(strings.TrimSpace(strings.Split(raw, ",")[0])); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

// AllowOnly：不在名单内的来源返回 403
func AllowOnly(a *Allowlist) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.Empty() {
			c.Next()
			return
		}
		ip := a.sourceIP(c.Request)
		if !a.Allowed(ip) {
			logger.L().Debug("allowlist_block", "ip", ip.String(), "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "source address not allowed"})
			return
		}
		c.Next()
	}
}
