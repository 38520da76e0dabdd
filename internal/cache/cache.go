// Package cache is a bounded, expiring in-memory cache.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultSize = 256

// Cache wraps an expirable LRU with the context-first API the adapters use.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	size int
}

// WithSize bounds the number of entries.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// New creates a cache whose entries expire after ttl. A non-positive ttl
// keeps entries until they are evicted by size.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{size: defaultSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](o.size, nil, ttl)}
}

func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	return c.lru.Get(key)
}

func (c *Cache[K, V]) Set(_ context.Context, key K, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.lru.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Close drops every entry.
func (c *Cache[K, V]) Close() {
	c.lru.Purge()
}
