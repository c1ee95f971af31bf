package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"ADDR", "API_BASE", "PG_HOST", "DB_ENABLE", "RATE_LIMIT_QPS", "SESSION_IDLE_MINUTES", "OL_PROVIDER"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Addr != ":8080" || c.APIBase != "/api" || c.PG.Host != "localhost" || c.PG.Enable {
		t.Fatalf("config = %+v", c)
	}
	if c.RateLimitQPS != 200 || c.SessionIdle != 30*time.Minute || c.OLProvider != "tianditu" {
		t.Fatalf("config = %+v", c)
	}
}

func TestOverridesAndFallbacks(t *testing.T) {
	t.Setenv("API_BASE", "/v1/")
	t.Setenv("DB_ENABLE", "true")
	t.Setenv("RATE_LIMIT_QPS", "nope")
	t.Setenv("SDK_FETCH_TIMEOUT_MS", "250")
	t.Setenv("PG_USER", "gis")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "5433")
	t.Setenv("PG_DB", "cases")
	t.Setenv("PG_SSLMODE", "")
	t.Setenv("ALLOW_IPS", "10.0.0.0/8, ,127.0.0.1")
	c := FromEnv()
	if len(c.AllowList) != 2 || c.AllowList[1] != "127.0.0.1" {
		t.Fatalf("allow list = %q", c.AllowList)
	}
	if c.APIBase != "/v1" || !c.PG.Enable || c.RateLimitQPS != 200 || c.SDKFetchTimeout != 250*time.Millisecond {
		t.Fatalf("config = %+v", c)
	}
	if got := c.PG.DSN(); got != "postgres://gis:pw@db:5433/cases?sslmode=disable" {
		t.Fatalf("dsn = %s", got)
	}
}
