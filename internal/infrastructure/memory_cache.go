package infrastructure

import (
	"context"
	"sync"
	"time"

	"dashgo/internal/domain"
)

// implements domain.SnapshotCache in process memory. Used when no cache
// directory is configured. Last writer wins; expired entries are dropped
// lazily on read.
type MemoryCache struct {
	data  map[string]domain.CacheEntry
	ttl   time.Duration
	mutex sync.RWMutex
}

// creates a new in-memory snapshot cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data: make(map[string]domain.CacheEntry),
		ttl:  ttl,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	c.mutex.RLock()
	entry, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, nil
	}

	if time.Since(entry.WrittenAt) >= c.ttl {
		c.mutex.Lock()
		delete(c.data, key)
		c.mutex.Unlock()
		return nil, nil
	}

	return &entry, nil
}

func (c *MemoryCache) Put(ctx context.Context, key string, snapshot *domain.MetricsSnapshot) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = domain.CacheEntry{
		Snapshot:  *snapshot,
		WrittenAt: time.Now(),
	}
	return nil
}
