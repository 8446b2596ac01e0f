package permissions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestProbeCache_SetGet 测试缓存读写
func TestProbeCache_SetGet(t *testing.T) {
	cache := NewProbeCache(time.Minute)

	_, found := cache.Get("availability")
	assert.False(t, found)

	cache.Set("availability", true)
	val, found := cache.Get("availability")
	assert.True(t, found)
	assert.True(t, val)

	cache.Set("availability", false)
	val, found = cache.Get("availability")
	assert.True(t, found)
	assert.False(t, val)
}

// TestProbeCache_Expiry 测试过期条目不可见
func TestProbeCache_Expiry(t *testing.T) {
	cache := NewProbeCache(10 * time.Millisecond)

	cache.Set("availability", true)
	time.Sleep(30 * time.Millisecond)

	_, found := cache.Get("availability")
	assert.False(t, found)
}

// TestProbeCache_Clear 测试清空缓存
func TestProbeCache_Clear(t *testing.T) {
	cache := NewProbeCache(time.Minute)

	cache.Set("availability", true)
	cache.Clear()

	_, found := cache.Get("availability")
	assert.False(t, found)
}
