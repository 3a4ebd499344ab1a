package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const defaultMaxEntries = 256

type memoryItem struct {
	data     []byte
	expireAt time.Time
	lastUsed time.Time
}

// MemoryCache is an in-process cache with TTL expiry and LRU eviction.
// Values are stored as JSON so Get behaves identically to RedisCache.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	maxSize int
}

var _ Service = (*MemoryCache)(nil)

func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = defaultMaxEntries
	}
	return &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: maxSize,
	}
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	now := time.Now()
	c.items[key] = &memoryItem{data: data, expireAt: now.Add(ttl), lastUsed: now}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return ErrCacheMiss
	}
	if time.Now().After(item.expireAt) {
		delete(c.items, key)
		return ErrCacheMiss
	}
	item.lastUsed = time.Now()
	return json.Unmarshal(item.data, dest)
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

func (c *MemoryCache) Close() error { return nil }

// evictOldest drops the least recently used entry. Caller holds the lock.
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.lastUsed
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
