package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func router(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextSubject)) })
	return r
}

func do(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(1000, 0)
	tb := NewTokenBucket(2)
	tb.now = func() time.Time { return now }
	tb.lastSec = now.Unix()
	if !tb.Allow() || !tb.Allow() || tb.Allow() {
		t.Fatal("bucket capacity not enforced")
	}
	now = now.Add(time.Second)
	if !tb.Allow() {
		t.Fatal("bucket not refilled")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	tb := NewTokenBucket(1)
	now := time.Unix(2000, 0)
	tb.now = func() time.Time { return now }
	tb.lastSec = now.Unix()
	r := router(RateLimit(tb))
	if w := do(r, ""); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	if w := do(r, ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	r := router(Auth("s3cret"))
	tok, err := IssueToken("s3cret", "inspector-7", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if w := do(r, "Bearer "+tok); w.Code != http.StatusOK || w.Body.String() != "inspector-7" {
		t.Fatalf("valid token = %d %q", w.Code, w.Body.String())
	}
	bad, _ := IssueToken("other", "x", time.Hour)
	expired, _ := IssueToken("s3cret", "x", -time.Minute)
	for _, h := range []string{"", "Token " + tok, "Bearer " + bad, "Bearer " + expired} {
		if w := do(r, h); w.Code != http.StatusUnauthorized {
			t.Errorf("%q = %d", h, w.Code)
		}
	}
	if w := do(router(Auth("")), ""); w.Code != http.StatusOK {
		t.Fatalf("open mode = %d", w.Code)
	}
}

func TestAllowlist(t *testing.T) {
	if _, err := NewAllowlist([]string{"10.0.0.0/33"}, ""); err == nil {
		t.Fatal("bad cidr accepted")
	}
	a, err := NewAllowlist([]string{"192.0.2.0/28", " 2001:db8::1 ", ""}, "X-Real-IP")
	if err != nil {
		t.Fatal(err)
	}
	r := router(AllowOnly(a))
	// httptest 默认来源为 192.0.2.1
	if w := do(r, ""); w.Code != http.StatusOK {
		t.Fatalf("in range = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("outside = %d", w.Code)
	}
	var empty *Allowlist
	if w := do(router(AllowOnly(empty)), ""); w.Code != http.StatusOK {
		t.Fatalf("empty list = %d", w.Code)
	}
}
