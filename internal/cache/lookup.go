package cache

import "sync"

// Cache 是并发安全的内存键值缓存，用于短生命周期的查找表。
// Clear 直接替换底层 map，正在进行的 Get 只会看到旧快照或新快照之一。
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New 创建空缓存。
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

// Get 返回缓存值；未命中时 ok 为 false。
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set 写入或覆盖缓存值。
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[K]V)
	}
	c.entries[key] = value
	c.mu.Unlock()
}

// SetIfAbsent 仅在键不存在时写入，返回是否写入成功。
func (c *Cache[K, V]) SetIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[K]V)
	}
	if _, exists := c.entries[key]; exists {
		return false
	}
	c.entries[key] = value
	return true
}

// Delete 删除单个键。
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear 清空全部条目。
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]V)
	c.mu.Unlock()
}

// Len 返回条目数量。
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys 返回当前所有键（无序）。
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
