package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is the generic key-value cache contract used across the engine.
// Every call site treats failures as non-fatal; callers log and move on.
type Cache interface {
	// Get retrieves a value from cache by key
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache by key
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close closes the cache connection
	Close() error
}

// Config holds configuration for cache instances
type Config struct {
	// Enabled indicates if caching is enabled
	Enabled bool `json:"enabled"`

	// TTL is the default time-to-live for cache entries
	TTL time.Duration `json:"ttl"`

	// Prefix is added to all cache keys
	Prefix string `json:"prefix"`

	// Backend specifies the cache backend (memory, redis)
	Backend Type `json:"backend"`

	// Redis configuration
	Redis RedisConfig `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string `json:"address"`

	// Password for Redis authentication
	Password string `json:"password"`

	// Database number
	Database int `json:"database"`

	// PoolSize is the maximum number of connections
	PoolSize int `json:"poolSize"`

	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int `json:"minIdleConns"`
}

// Common cache errors
var (
	// ErrKeyNotFound is returned when a key is not found in cache
	ErrKeyNotFound = errors.New("key not found")

	// ErrCacheUnavailable is returned when cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrCacheClosed is returned when the cache has been closed
	ErrCacheClosed = errors.New("cache closed")

	// ErrInvalidCacheType is returned when cache type is invalid
	ErrInvalidCacheType = errors.New("invalid cache type")
)

// DefaultConfig returns default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		TTL:     5 * time.Minute,
		Prefix:  "lumen:",
		Backend: TypeMemory,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			Database:     0,
			PoolSize:     10,
			MinIdleConns: 5,
		},
	}
}

// Type represents a cache backend type
type Type string

const (
	// TypeMemory represents in-memory cache
	TypeMemory Type = "memory"

	// TypeRedis represents Redis cache
	TypeRedis Type = "redis"
)

// IsValid checks if the cache type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeMemory, TypeRedis:
		return true
	default:
		return false
	}
}

// New creates a cache instance for the configured backend.
func New(config *Config) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch config.Backend {
	case TypeMemory:
		return NewMemoryCache(config), nil
	case TypeRedis:
		return NewRedisCache(config)
	default:
		return nil, ErrInvalidCacheType
	}
}
