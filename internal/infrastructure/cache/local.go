// Package cache provides the translation cache: a bounded in-process LRU
// tier in front of an optional shared Redis tier
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LocalCache is a thread-safe string cache with TTL and LRU eviction
type LocalCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	now     func() time.Time
}

type localCacheItem struct {
	key       string
	value     string
	expiresAt time.Time
}

// NewLocalCache creates a local cache holding at most maxSize entries
func NewLocalCache(maxSize int) *LocalCache {
	if maxSize <= 0 {
		maxSize = 1000 // Default size
	}

	return &LocalCache{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves an entry and marks it recently used
func (lc *LocalCache) Get(key string) (string, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	el, ok := lc.items[key]
	if !ok {
		return "", false
	}

	item := el.Value.(*localCacheItem)
	if !lc.now().Before(item.expiresAt) {
		lc.remove(el)
		return "", false
	}

	lc.lru.MoveToFront(el)
	return item.value, true
}

// Set stores an entry for ttl, evicting the least recently used entries
// beyond the size bound
func (lc *LocalCache) Set(key, value string, ttl time.Duration) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	expiresAt := lc.now().Add(ttl)

	if el, ok := lc.items[key]; ok {
		item := el.Value.(*localCacheItem)
		item.value = value
		item.expiresAt = expiresAt
		lc.lru.MoveToFront(el)
		return
	}

	lc.items[key] = lc.lru.PushFront(&localCacheItem{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})

	for lc.lru.Len() > lc.maxSize {
		lc.remove(lc.lru.Back())
	}
}

// Delete removes an entry
func (lc *LocalCache) Delete(key string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if el, ok := lc.items[key]; ok {
		lc.remove(el)
	}
}

// Size returns the current number of entries, expired ones included
func (lc *LocalCache) Size() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.lru.Len()
}

// CleanupExpired removes every expired entry and returns how many were removed
func (lc *LocalCache) CleanupExpired() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := lc.now()
	removed := 0
	for el := lc.lru.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*localCacheItem).expiresAt) {
			lc.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (lc *LocalCache) remove(el *list.Element) {
	lc.lru.Remove(el)
	delete(lc.items, el.Value.(*localCacheItem).key)
}
