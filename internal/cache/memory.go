// Package cache keeps the latest accepted detection for the HTTP API.
package cache

import (
	"context"
	"sync"

	"smartdate/internal/model"
)

// MemoryCache is a process-local latest-detection cache.
type MemoryCache struct {
	mu     sync.RWMutex
	latest *model.Record
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) SetLatest(_ context.Context, rec model.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &rec
	return nil
}

func (c *MemoryCache) Latest(_ context.Context) (model.Record, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return model.Record{}, false, nil
	}
	return *c.latest, true, nil
}

func (c *MemoryCache) Close() error {
	return nil
}
