// Package cache stores JSON-encoded values in Redis or in process memory.
//
// The package-level helpers delegate to the store selected by Connect
// (CACHE_DRIVER=redis|memory). Until Connect runs they use an in-memory
// store, so tests need no setup.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anfisaforfriends/anfisa/config"
	"github.com/anfisaforfriends/anfisa/pkg/metrics"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-level key/value backend with per-key TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Driver() string
}

var (
	mu      sync.RWMutex
	current Store = NewMemoryStore()
)

// Connect installs the store named by config.CacheDriver. When Redis is
// requested but unreachable the memory store stays in place and the ping
// error is returned so the caller can log it.
func Connect() error {
	if config.CacheDriver() != "redis" {
		Use(NewMemoryStore())
		return nil
	}

	rs, err := NewRedisStore(config.RedisAddr(), config.RedisPassword(), 0)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	Use(rs)
	return nil
}

// Use replaces the active store.
func Use(s Store) {
	mu.Lock()
	defer mu.Unlock()
	current = s
}

// Default returns the active store.
func Default() Store {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Get decodes the value under key into dest and reports whether it was found.
func Get(ctx context.Context, key string, dest any) bool {
	s := Default()
	raw, err := s.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheLookup(s.Driver(), false)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.RecordCacheLookup(s.Driver(), false)
		return false
	}
	metrics.RecordCacheLookup(s.Driver(), true)
	return true
}

// Set JSON-encodes value under key for ttl. A zero ttl never expires.
func Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return Default().Set(ctx, key, data, ttl)
}

// Forget removes keys.
func Forget(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return Default().Del(ctx, keys...)
}

// Remember returns the cached value under key, or computes it with fn and
// caches the result for ttl. Errors from fn are returned uncached.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var cached T
	if Get(ctx, key, &cached) {
		return cached, nil
	}

	v, err := fn()
	if err != nil {
		return v, err
	}
	_ = Set(ctx, key, v, ttl)
	return v, nil
}
