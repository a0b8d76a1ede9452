// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordSuccess(t *testing.T) {
	m := NewMetrics("test")

	m.RecordSuccess("profileData", 100*time.Millisecond, 0.002)
	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.CallsTotal)
	assert.Equal(t, int64(1), snap.CallsOK)
	assert.InDelta(t, 100.0, snap.AvgLatencyMs, 0.001)
	assert.InDelta(t, 0.002, snap.TotalCost, 1e-9)

	// The second sample moves the average a tenth of the way toward it.
	m.RecordSuccess("profileData", 200*time.Millisecond, 0.002)
	snap = m.Snapshot()
	assert.InDelta(t, 0.1*200+0.9*100, snap.AvgLatencyMs, 0.001)
	assert.InDelta(t, 0.004, snap.TotalCost, 1e-9)
}

func TestMetricsRecordFailure(t *testing.T) {
	m := NewMetrics("test")

	m.RecordFailure("profileData", "dial tcp: connection refused")
	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.CallsTotal)
	assert.Equal(t, int64(1), snap.CallsFailed)
	assert.Equal(t, int64(0), snap.CallsOK)
	assert.Equal(t, "dial tcp: connection refused", snap.LastError)
	assert.False(t, snap.LastErrorTime.IsZero())
}

func TestMetricsCacheCounters(t *testing.T) {
	m := NewMetrics("test")

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)
	// Cache events do not count as calls.
	assert.Equal(t, int64(0), snap.CallsTotal)
}
