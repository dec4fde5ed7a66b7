package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is an in-process TTL cache for public content reads. A zero or
// negative TTL disables it.
type Cache struct {
	c       *gocache.Cache
	enabled bool
}

func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		return &Cache{c: gocache.New(gocache.NoExpiration, 0)}
	}
	return &Cache{c: gocache.New(defaultTTL, time.Minute), enabled: true}
}

func (m *Cache) Get(k string) (any, bool) {
	if !m.enabled {
		return nil, false
	}
	return m.c.Get(k)
}

func (m *Cache) Set(k string, v any) {
	if m.enabled {
		m.c.SetDefault(k, v)
	}
}

func (m *Cache) Delete(k string) { m.c.Delete(k) }

// DeletePrefix drops every key that starts with prefix.
func (m *Cache) DeletePrefix(prefix string) {
	for k := range m.c.Items() {
		if strings.HasPrefix(k, prefix) {
			m.c.Delete(k)
		}
	}
}

func (m *Cache) Flush() { m.c.Flush() }

// Load returns the cached value for key, or calls fn and caches its result.
// Errors are not cached.
func Load[T any](ctx context.Context, m *Cache, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := m.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	m.Set(key, v)
	return v, nil
}
