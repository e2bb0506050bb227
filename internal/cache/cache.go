// Package cache holds short-lived facet results. Values are stored as
// JSON so the Redis and in-process stores behave the same way.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented TTL cache. Concurrent writers of the same key
// are allowed; the last write wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key is a structured cache key. It renders as
// "<prefix>:<name>:<namespace>:<hash of parts>".
type Key struct {
	Name      string
	Namespace string
	Parts     interface{}
}

// String hashes the key parts into a compact, collision-resistant key
func (k Key) String() string {
	data, err := json.Marshal(k.Parts)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", k.Parts))
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%x", k.Name, k.Namespace, hash[:16])
}

// Cache wraps a Store with typed JSON helpers
type Cache struct {
	store  Store
	prefix string
	ttl    time.Duration
	hook   func(name string, hit bool)
}

// New wraps store. A nil store disables caching.
func New(store Store, prefix string, ttl time.Duration) *Cache {
	return &Cache{store: store, prefix: prefix, ttl: ttl}
}

// OnLookup registers a callback invoked on every hit or miss
func (c *Cache) OnLookup(hook func(name string, hit bool)) {
	c.hook = hook
}

func (c *Cache) fullKey(k Key) string {
	if c.prefix == "" {
		return k.String()
	}
	return c.prefix + ":" + k.String()
}

// Get decodes the cached value for k into dst
func (c *Cache) Get(ctx context.Context, k Key, dst interface{}) (bool, error) {
	if c == nil || c.store == nil {
		return false, nil
	}
	raw, err := c.store.Get(ctx, c.fullKey(k))
	if errors.Is(err, ErrMiss) {
		c.record(k.Name, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", k.Name, err)
	}
	c.record(k.Name, true)
	return true, nil
}

// Set encodes v under k with the default TTL
func (c *Cache) Set(ctx context.Context, k Key, v interface{}) error {
	if c == nil || c.store == nil || c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", k.Name, err)
	}
	return c.store.Set(ctx, c.fullKey(k), raw, c.ttl)
}

// Delete removes k
func (c *Cache) Delete(ctx context.Context, k Key) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, c.fullKey(k))
}

func (c *Cache) record(name string, hit bool) {
	if c.hook != nil {
		c.hook(name, hit)
	}
}

// Remember returns the cached value for k, or calls load and caches its
// result. Cache failures degrade to calling load.
func Remember[T any](ctx context.Context, c *Cache, k Key, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if ok, err := c.Get(ctx, k, &cached); err == nil && ok {
		return cached, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = c.Set(ctx, k, v)
	return v, nil
}
