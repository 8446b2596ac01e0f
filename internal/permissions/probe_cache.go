package permissions

import (
	"sync"
	"time"
)

const probeKeyAvailability = "availability"

// ProbeCache 可用性探测缓存
// 只缓存服务可达性探测结果,授权集合永远不缓存:
// 用户可能在应用外部随时变更授权,检查与执行之间不允许持有旧集合
type ProbeCache struct {
	cache *sync.Map
	ttl   time.Duration
}

// cacheEntry 缓存条目
type cacheEntry struct {
	value     bool
	expiresAt time.Time
}

// NewProbeCache 创建探测缓存
func NewProbeCache(ttl time.Duration) *ProbeCache {
	return &ProbeCache{
		cache: &sync.Map{},
		ttl:   ttl,
	}
}

// Get 获取缓存
func (c *ProbeCache) Get(key string) (bool, bool) {
	val, found := c.cache.Load(key)
	if !found {
		return false, false
	}

	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		// 已过期,删除
		c.cache.Delete(key)
		return false, false
	}

	return entry.value, true
}

// Set 设置缓存
func (c *ProbeCache) Set(key string, value bool) {
	entry := &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.cache.Store(key, entry)
}

// Clear 清空缓存
func (c *ProbeCache) Clear() {
	c.cache.Range(func(key, value interface{}) bool {
		c.cache.Delete(key)
		return true
	})
}
