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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// emaSmoothingFactor weights the newest latency sample in the running
// average. With 0.1, one sample moves the average a tenth of the way toward
// its value.
const emaSmoothingFactor = 0.1

var (
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_provider_calls_total",
			Help: "Total provider calls by provider, resource type, and outcome",
		},
		[]string{"provider", "resource_type", "outcome"},
	)

	providerFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_provider_fallbacks_total",
			Help: "Calls answered from the local fallback source",
		},
		[]string{"provider", "resource_type"},
	)

	providerCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_provider_cache_events_total",
			Help: "Cache hits and misses by provider",
		},
		[]string{"provider", "event"},
	)

	providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workforce_provider_call_duration_seconds",
			Help:    "Latency of live protocol calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "resource_type"},
	)
)

func init() {
	prometheus.MustRegister(providerCallsTotal)
	prometheus.MustRegister(providerFallbacksTotal)
	prometheus.MustRegister(providerCacheEvents)
	prometheus.MustRegister(providerCallDuration)
}

// Metrics tracks per-provider call statistics. Each provider owns exactly one
// Metrics value; nothing here is shared across providers.
type Metrics struct {
	provider string

	mu            sync.Mutex
	callsTotal    int64
	callsOK       int64
	callsFailed   int64
	avgLatencyMs  float64
	totalCost     float64
	cacheHits     int64
	cacheMisses   int64
	lastError     string
	lastErrorTime time.Time
}

// NewMetrics builds a Metrics tagged with the owning provider's name.
func NewMetrics(provider string) *Metrics {
	return &Metrics{provider: provider}
}

// RecordSuccess folds one successful live call into the counters. Latency is
// smoothed with an exponential moving average rather than stored per call.
func (m *Metrics) RecordSuccess(resourceType string, latency time.Duration, cost float64) {
	providerCallsTotal.WithLabelValues(m.provider, resourceType, "success").Inc()
	providerCallDuration.WithLabelValues(m.provider, resourceType).Observe(latency.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.callsTotal++
	m.callsOK++
	m.totalCost += cost

	ms := float64(latency.Milliseconds())
	if m.avgLatencyMs == 0 {
		m.avgLatencyMs = ms
	} else {
		m.avgLatencyMs = emaSmoothingFactor*ms + (1-emaSmoothingFactor)*m.avgLatencyMs
	}
}

// RecordFailure folds one failed live call into the counters and remembers
// the error message for diagnostics.
func (m *Metrics) RecordFailure(resourceType, errMessage string) {
	providerCallsTotal.WithLabelValues(m.provider, resourceType, "failure").Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.callsTotal++
	m.callsFailed++
	m.lastError = errMessage
	m.lastErrorTime = time.Now().UTC()
}

// RecordFallback counts a call answered from the local fallback source.
func (m *Metrics) RecordFallback(resourceType string) {
	providerFallbacksTotal.WithLabelValues(m.provider, resourceType).Inc()
}

// RecordCacheHit counts a cache hit.
func (m *Metrics) RecordCacheHit() {
	providerCacheEvents.WithLabelValues(m.provider, "hit").Inc()
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

// RecordCacheMiss counts a cache miss.
func (m *Metrics) RecordCacheMiss() {
	providerCacheEvents.WithLabelValues(m.provider, "miss").Inc()
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time copy of a provider's counters, safe to
// serialize for status endpoints.
type MetricsSnapshot struct {
	Provider      string    `json:"provider"`
	CallsTotal    int64     `json:"calls_total"`
	CallsOK       int64     `json:"calls_ok"`
	CallsFailed   int64     `json:"calls_failed"`
	AvgLatencyMs  float64   `json:"avg_latency_ms"`
	TotalCost     float64   `json:"total_cost"`
	CacheHits     int64     `json:"cache_hits"`
	CacheMisses   int64     `json:"cache_misses"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorTime time.Time `json:"last_error_time,omitempty"`
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Provider:      m.provider,
		CallsTotal:    m.callsTotal,
		CallsOK:       m.callsOK,
		CallsFailed:   m.callsFailed,
		AvgLatencyMs:  m.avgLatencyMs,
		TotalCost:     m.totalCost,
		CacheHits:     m.cacheHits,
		CacheMisses:   m.cacheMisses,
		LastError:     m.lastError,
		LastErrorTime: m.lastErrorTime,
	}
}
