package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache.
type memoryClient struct {
	prefix string
	c      *gocache.Cache
	// mu hace atómico el get+replace de Touch respecto de Set/Delete.
	mu sync.Mutex
}

// NewMemory crea un cliente de cache en memoria.
func NewMemory(prefix string, defaultTTL time.Duration) Client {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &memoryClient{prefix: prefix, c: gocache.New(defaultTTL, time.Minute)}
}

func (m *memoryClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(prefixed(m.prefix, key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	m.mu.Lock()
	m.c.Set(prefixed(m.prefix, key), value, ttl)
	m.mu.Unlock()
	return nil
}

func (m *memoryClient) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	k := prefixed(m.prefix, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(k)
	if !ok {
		return ErrNotFound
	}
	return m.c.Replace(k, v, ttl)
}

func (m *memoryClient) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.c.Delete(prefixed(m.prefix, key))
	m.mu.Unlock()
	return nil
}

func (m *memoryClient) Ping(ctx context.Context) error { return nil }

func (m *memoryClient) Close() error {
	m.c.Flush()
	return nil
}
