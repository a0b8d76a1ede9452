// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provider

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"axonflow/workforce/protocol"
)

// DefaultCacheTTL bounds how long a fetched record is served from cache.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a TTL-bounded in-memory cache owned by a single provider. It is
// never shared between providers; each provider instance holds its own.
type Cache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry

	nowFunc func() time.Time
}

// NewCache builds a cache with the given TTL. A non-positive TTL falls back
// to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		nowFunc: time.Now,
	}
}

// Get returns the cached value for key. An entry is fresh strictly under its
// TTL: one exactly TTL old is already expired. Expired entries are never
// returned; they are evicted on the spot and reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.nowFunc().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a Put may have refreshed it.
		if cur, ok := c.entries[key]; ok && !c.nowFunc().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Put stores value under key with the cache's TTL.
func (c *Cache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.nowFunc().Add(c.ttl),
	}
}

// Len returns the number of entries, counting expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// cacheKey builds a deterministic key from the query's identity: method,
// resource type, resource ID, and parameters in sorted-key order. Two queries
// with equal maps always map to the same key.
func cacheKey(q *protocol.Query) string {
	var b strings.Builder
	b.WriteString(string(q.Method))
	b.WriteByte('|')
	b.WriteString(q.ResourceType)
	b.WriteByte('|')
	b.WriteString(q.ResourceID)
	for _, k := range q.SortedParameterKeys() {
		fmt.Fprintf(&b, "|%s=%v", k, q.Parameters[k])
	}
	return b.String()
}
