// 包 cache：基于 Redis 的评估结果缓存与短周期去重
// 约束：Redis 未配置（nil）时所有方法退化为直通，不阻断主流程。
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
	"github.com/plutoqz/ruoyi-f/internal/penalty"
)

// Cache：Redis 客户端与默认过期时间
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

// New：ttl 非正时取 10 分钟
func New(rc *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{rc: rc, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.rc != nil }

// 文档注释：处罚评估缓存键
// 背景：规则表随进程固定，同一事项与图斑信息的结果可复用。
// 约束：键为 penalty:<sha1(事项 + 图斑 JSON)>，Details 字段变化即换键。
func PenaltyKey(violationType string, d penalty.Details) string {
	b, _ := json.Marshal(struct {
		T string          `json:"t"`
		D penalty.Details `json:"d"`
	}{violationType, d})
	sum := sha1.Sum(b)
	return "penalty:" + hex.EncodeToString(sum[:])
}

// 文档注释：带缓存的处罚评估
// 返回：第二个值表示是否命中缓存；读写错误只记录日志。
func (c *Cache) Evaluate(ctx context.Context, violationType string, d penalty.Details) (penalty.Result, bool) {
	if !c.enabled() {
		return penalty.Evaluate(violationType, d), false
	}
	key := PenaltyKey(violationType, d)
	if s, err := c.rc.Get(ctx, key).Result(); err == nil && s != "" {
		var r penalty.Result
		if err := json.Unmarshal([]byte(s), &r); err == nil {
			metrics.RedisHitsTotal.Inc()
			return r, true
		}
	} else if err != nil && err != redis.Nil {
		logger.L().Warn("redis_get_error", "key", key, "err", err)
	}
	metrics.RedisMissesTotal.Inc()
	r := penalty.Evaluate(violationType, d)
	if r.RuleID == "" {
		return r, false
	}
	b, err := json.Marshal(r)
	if err == nil {
		if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
			logger.L().Warn("redis_set_error", "key", key, "err", err)
		}
	}
	return r, false
}
