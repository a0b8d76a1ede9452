// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/workforce/protocol"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("k", "v")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheExpiredEntryNeverReturned(t *testing.T) {
	c := NewCache(time.Minute)

	now := time.Now()
	c.nowFunc = func() time.Time { return now }
	c.Put("k", "v")

	// Still fresh just inside the TTL.
	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	// Past the TTL: miss, and the entry is evicted.
	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheEntryExactlyTTLOldIsExpired(t *testing.T) {
	c := NewCache(time.Minute)

	now := time.Now()
	c.nowFunc = func() time.Time { return now }
	c.Put("k", "v")

	// The lifetime bound is strict: age == TTL is already stale.
	now = now.Add(time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheDefaultTTL(t *testing.T) {
	c := NewCache(0)
	assert.Equal(t, DefaultCacheTTL, c.ttl)
}

func TestCachePurge(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCacheKeyDeterministic(t *testing.T) {
	q1 := &protocol.Query{
		Method:       protocol.MethodFetch,
		ResourceType: "profileData",
		ResourceID:   "id-1",
		Parameters:   map[string]interface{}{"depth": 2, "a": "x"},
	}
	q2 := &protocol.Query{
		Method:       protocol.MethodFetch,
		ResourceType: "profileData",
		ResourceID:   "id-1",
		Parameters:   map[string]interface{}{"a": "x", "depth": 2},
	}

	// Equal parameter maps yield equal keys regardless of insertion order.
	assert.Equal(t, cacheKey(q1), cacheKey(q2))

	q3 := &protocol.Query{
		Method:       protocol.MethodFetch,
		ResourceType: "profileData",
		ResourceID:   "id-2",
		Parameters:   map[string]interface{}{"a": "x", "depth": 2},
	}
	assert.NotEqual(t, cacheKey(q1), cacheKey(q3))

	q4 := &protocol.Query{Method: protocol.MethodSearch, ResourceType: "profileData", ResourceID: "id-1"}
	q5 := &protocol.Query{Method: protocol.MethodFetch, ResourceType: "profileData", ResourceID: "id-1"}
	assert.NotEqual(t, cacheKey(q4), cacheKey(q5))
}
