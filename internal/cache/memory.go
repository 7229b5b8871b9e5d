package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value      []byte
	expiration time.Time
}

// MemoryCache implements Cache using an in-process map. It is the default
// backend for tests and single-instance deployments.
type MemoryCache struct {
	items  map[string]*memoryItem
	mutex  sync.RWMutex
	config *Config
	closed bool
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(config *Config) *MemoryCache {
	if config == nil {
		config = DefaultConfig()
	}
	return &MemoryCache{
		items:  make(map[string]*memoryItem),
		config: config,
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil, ErrCacheClosed
	}

	item, exists := c.items[c.config.Prefix+key]
	if !exists {
		return nil, ErrKeyNotFound
	}

	if time.Now().After(item.expiration) {
		delete(c.items, c.config.Prefix+key)
		return nil, ErrKeyNotFound
	}

	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

// Set stores a value in cache with expiration
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return ErrCacheClosed
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.items[c.config.Prefix+key] = &memoryItem{
		value:      valueCopy,
		expiration: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, c.config.Prefix+key)
	return nil
}

// Exists checks if a key exists in cache
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.items[c.config.Prefix+key]
	if !exists {
		return false, nil
	}
	return !time.Now().After(item.expiration), nil
}

// Close marks the cache closed and drops all items
func (c *MemoryCache) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = true
	c.items = make(map[string]*memoryItem)
	return nil
}
