// 包 config：集中读取 .env 与环境变量，给出带默认值的运行配置
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Postgres：数据库连接参数
type Postgres struct {
	Enable   bool
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
}

// DSN：postgres:// 形式的连接串
func (p Postgres) DSN() string {
	dsn := "postgres://" + p.User
	if p.Password != "" {
		dsn += ":" + p.Password
	}
	return dsn + "@" + p.Host + ":" + p.Port + "/" + p.DB + "?sslmode=" + p.SSLMode
}

// Redis：缓存连接参数
type Redis struct {
	Enable bool
	Host   string
	Port   string
	Pass   string
	DB     int
}

func (r Redis) Addr() string { return r.Host + ":" + r.Port }

// Config：服务与命令行工具共用的配置
type Config struct {
	Addr      string
	APIBase   string
	LogLevel  string
	LogFormat string

	PG    Postgres
	Redis Redis

	AMapKey          string
	AMapSecurityCode string
	AMapServerKey    string
	TencentKey       string
	TiandituKey      string
	OLProvider       string
	SDKFetchTimeout  time.Duration

	OverpassURL     string
	OverpassTimeout time.Duration
	IP2RegionPath   string

	JWTSecret        string
	AllowList        []string
	RealIPHeader     string
	RateLimitEnabled bool
	RateLimitQPS     int

	SessionIdle     time.Duration
	PenaltyCacheTTL time.Duration

	TLSEnable bool
	TLSCert   string
	TLSKey    string
}

// 文档注释：加载配置
// 背景：先读取工作目录 .env 与 data/env/.env（已存在的环境变量不被覆盖），再按键读取并套用默认值。
// 约束：数值解析失败时静默回退默认值；文件缺失不报错。
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv()
}

// FromEnv：只读取当前环境变量，不加载文件
func FromEnv() Config {
	return Config{
		Addr:      str("ADDR", ":8080"),
		APIBase:   strings.TrimRight(str("API_BASE", "/api"), "/"),
		LogLevel:  str("LOG_LEVEL", "info"),
		LogFormat: str("LOG_FORMAT", "text"),
		PG: Postgres{
			Enable:   boolean("DB_ENABLE", false),
			Host:     str("PG_HOST", "localhost"),
			Port:     str("PG_PORT", "5432"),
			User:     str("PG_USER", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			DB:       str("PG_DB", "ruoyi"),
			SSLMode:  str("PG_SSLMODE", "disable"),
			MaxOpen:  integer("PG_MAX_OPEN_CONNS", 20),
			MaxIdle:  integer("PG_MAX_IDLE_CONNS", 10),
		},
		Redis: Redis{
			Enable: boolean("REDIS_ENABLE", false),
			Host:   str("REDIS_HOST", "127.0.0.1"),
			Port:   str("REDIS_PORT", "6379"),
			Pass:   os.Getenv("REDIS_PASS"),
			DB:     integer("REDIS_DB", 0),
		},
		AMapKey:          os.Getenv("AMAP_KEY"),
		AMapSecurityCode: os.Getenv("AMAP_SECURITY_CODE"),
		AMapServerKey:    os.Getenv("AMAP_SERVER_KEY"),
		TencentKey:       os.Getenv("TENCENT_KEY"),
		TiandituKey:      os.Getenv("TIANDITU_KEY"),
		OLProvider:       str("OL_PROVIDER", "tianditu"),
		SDKFetchTimeout:  time.Duration(integer("SDK_FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		OverpassURL:      str("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassTimeout:  time.Duration(integer("OVERPASS_TIMEOUT_S", 25)) * time.Second,
		IP2RegionPath:    os.Getenv("IP2REGION_PATH"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AllowList:        list("ALLOW_IPS"),
		RealIPHeader:     os.Getenv("REAL_IP_HEADER"),
		RateLimitEnabled: boolean("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:     integer("RATE_LIMIT_QPS", 200),
		SessionIdle:      time.Duration(integer("SESSION_IDLE_MINUTES", 30)) * time.Minute,
		PenaltyCacheTTL:  time.Duration(integer("PENALTY_CACHE_TTL_S", 600)) * time.Second,
		TLSEnable:        boolean("TLS_ENABLE", false),
		TLSCert:          str("TLS_CERT_PATH", filepath.Join("data", "tls", "server.crt")),
		TLSKey:           str("TLS_KEY_PATH", filepath.Join("data", "tls", "server.key")),
	}
}

func str(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func integer(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func boolean(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// list：逗号分隔，忽略空项
func list(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
