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

package protocol

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter bounds outbound protocol calls per server with a one-minute
// sliding window. When a Redis URL is configured the window is shared across
// instances; otherwise (or on Redis errors) it degrades to a local in-memory
// window. Redis failures fail open: an unreachable limiter never blocks
// calls.
type RateLimiter struct {
	rdb            *redis.Client
	limitPerMinute int

	mu      sync.Mutex
	local   map[string][]time.Time
	nowFunc func() time.Time
}

// NewRateLimiter creates a rate limiter. redisURL may be empty for a purely
// in-memory limiter; limitPerMinute <= 0 disables limiting entirely.
func NewRateLimiter(redisURL string, limitPerMinute int) (*RateLimiter, error) {
	l := &RateLimiter{
		limitPerMinute: limitPerMinute,
		local:          make(map[string][]time.Time),
		nowFunc:        time.Now,
	}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		l.rdb = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Printf("[RateLimit] Redis-backed rate limiting enabled: %d calls/min per server", limitPerMinute)
	}

	return l, nil
}

// Allow records one call for the key and returns an error iff the window is
// already at its limit.
func (l *RateLimiter) Allow(ctx context.Context, key string) error {
	if l == nil || l.limitPerMinute <= 0 {
		return nil
	}
	if l.rdb == nil {
		return l.allowLocal(key)
	}

	now := l.nowFunc()
	redisKey := fmt.Sprintf("protocol:ratelimit:%s", key)

	pipe := l.rdb.Pipeline()

	// Drop timestamps outside the sliding window, count what remains, then
	// record this call.
	minScore := now.Add(-time.Minute).UnixNano()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", minScore))
	pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, redisKey, 2*time.Minute)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		// Fail open on Redis errors; a broken limiter must not take the
		// data path down with it.
		log.Printf("[RateLimit] Redis check failed for %s: %v (failing open)", key, err)
		return nil
	}

	count := cmds[1].(*redis.IntCmd).Val()
	if count >= int64(l.limitPerMinute) {
		return fmt.Errorf("rate limit exceeded for %s: %d calls/minute (limit: %d)", key, count, l.limitPerMinute)
	}

	return nil
}

// allowLocal is the in-memory sliding window used without Redis. Like the
// Redis path, the call is recorded before the limit decision: rejected calls
// still consume window capacity.
func (l *RateLimiter) allowLocal(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	cutoff := now.Add(-time.Minute)

	window := l.local[key]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	count := len(kept)
	l.local[key] = append(kept, now)
	if count >= l.limitPerMinute {
		return fmt.Errorf("rate limit exceeded for %s: %d calls/minute (limit: %d)", key, count, l.limitPerMinute)
	}
	return nil
}

// Status returns the number of calls in the current window for a key.
func (l *RateLimiter) Status(ctx context.Context, key string) (int, error) {
	if l.rdb == nil {
		l.mu.Lock()
		defer l.mu.Unlock()

		cutoff := l.nowFunc().Add(-time.Minute)
		count := 0
		for _, ts := range l.local[key] {
			if ts.After(cutoff) {
				count++
			}
		}
		return count, nil
	}

	redisKey := fmt.Sprintf("protocol:ratelimit:%s", key)
	minScore := l.nowFunc().Add(-time.Minute).UnixNano()
	count, err := l.rdb.ZCount(ctx, redisKey, fmt.Sprintf("%d", minScore), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit status: %w", err)
	}
	return int(count), nil
}

// Close releases the Redis connection, if any.
func (l *RateLimiter) Close() error {
	if l.rdb != nil {
		return l.rdb.Close()
	}
	return nil
}
