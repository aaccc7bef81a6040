// Package store provides in-memory caching of resolved playlist metadata.
package store

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RecordCache is a thread-safe, size-bounded cache whose entries expire after a TTL.
// Records describe remote state, so a bounded TTL keeps renamed users and tracks fresh.
type RecordCache[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewRecordCache creates a cache holding at most size records for ttl each.
// A non-positive size or ttl yields a cache that never stores anything.
func NewRecordCache[V any](size int, ttl time.Duration) *RecordCache[V] {
	if size <= 0 || ttl <= 0 {
		return &RecordCache[V]{}
	}

	return &RecordCache[V]{
		lru: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Get returns the cached record for id, if present and not expired.
func (c *RecordCache[V]) Get(id string) (V, bool) {
	if c.lru == nil {
		var zero V
		return zero, false
	}
	return c.lru.Get(id)
}

// Add stores a record. Empty ids are ignored.
func (c *RecordCache[V]) Add(id string, record V) {
	if c.lru == nil || id == "" {
		return
	}
	c.lru.Add(id, record)
}
