package cache

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"
)

// 去重位图参数：2^16 位、4 次哈希
const (
	bloomBits   = 1 << 16
	bloomHashes = 4
)

// 文档注释：计算布隆过滤器位置
// 背景：FNV64a 加索引前缀生成 k 个位置，用于 GetBit/SetBit。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(h.Sum64() % uint64(m))
	}
	return pos
}

// 文档注释：短周期重复提交检测
// 背景：同一内容在窗口内重复提交（如连续点击“生成案件”）只处理第一次；位图按窗口分桶，过期自动清除。
// 返回：true 表示首次见到（已写入位图）；Redis 不可用或出错时返回 true 不阻断。
func (c *Cache) FirstSeen(ctx context.Context, scope string, data []byte, window time.Duration) (bool, error) {
	if !c.enabled() {
		return true, nil
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	bucket := time.Now().UnixNano() / int64(window)
	key := "dedupe:" + scope + ":" + strconv.FormatInt(bucket, 10)
	seen := true
	positions := bloomPositions(data, bloomBits, bloomHashes)
	for _, p := range positions {
		b, err := c.rc.GetBit(ctx, key, p).Result()
		if err != nil {
			return true, err
		}
		if b == 0 {
			seen = false
		}
	}
	if seen {
		return false, nil
	}
	pipe := c.rc.Pipeline()
	for _, p := range positions {
		pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, 2*window)
	_, err := pipe.Exec(ctx)
	return true, err
}
