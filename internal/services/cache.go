package services

import (
	"sync"
	"time"
)

// CacheService is a small in-memory TTL cache, used to avoid hammering
// provider model-listing endpoints.
type CacheService struct {
	mu    sync.RWMutex
	items map[string]*cacheItem
}

type cacheItem struct {
	value      interface{}
	expiration time.Time
}

// NewCacheService creates a new cache service
func NewCacheService() *CacheService {
	cs := &CacheService{
		items: make(map[string]*cacheItem),
	}

	go cs.cleanupExpired()

	return cs
}

// Get retrieves a value from cache, or nil if absent or expired
func (cs *CacheService) Get(key string) interface{} {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	item, exists := cs.items[key]
	if !exists {
		return nil
	}

	if time.Now().After(item.expiration) {
		return nil
	}

	return item.value
}

// Set stores a value in cache with TTL
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.items[key] = &cacheItem{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
}

// Delete removes a value from cache
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.items, key)
}

// cleanupExpired periodically removes expired items
func (cs *CacheService) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cs.mu.Lock()
		now := time.Now()
		for key, item := range cs.items {
			if now.After(item.expiration) {
				delete(cs.items, key)
			}
		}
		cs.mu.Unlock()
	}
}
