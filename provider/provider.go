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
	"context"
	"time"

	"axonflow/workforce/protocol"
	"axonflow/workforce/shared/logger"
)

// Health status values reported by providers.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// HealthStatus aggregates the health of a provider's underlying servers.
type HealthStatus struct {
	Status    string          `json:"status"`
	Servers   map[string]bool `json:"servers"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Provider is the domain-facing data access surface handed to workers.
// GetResource is total: it always returns a usable record, degrading through
// cache and fallback rather than surfacing transport failures.
type Provider interface {
	GetResource(ctx context.Context, resourceType, id string, params map[string]interface{}) *Record
	Search(ctx context.Context, resourceType, query string, filters map[string]interface{}) []*Record
	HealthCheck(ctx context.Context) HealthStatus
}

// ProtocolProvider answers domain queries through registered protocol
// clients, with a per-instance TTL cache in front and a static fallback
// behind. The cache is owned by this instance and never shared.
type ProtocolProvider struct {
	name     string
	registry *protocol.CapabilityRegistry
	cache    *Cache
	metrics  *Metrics
	fallback *StaticProvider
	log      *logger.Logger
}

// ProtocolProviderOption customizes a ProtocolProvider.
type ProtocolProviderOption func(*ProtocolProvider)

// WithCacheTTL overrides the cache TTL.
func WithCacheTTL(ttl time.Duration) ProtocolProviderOption {
	return func(p *ProtocolProvider) {
		p.cache = NewCache(ttl)
	}
}

// WithFallback replaces the default static fallback source.
func WithFallback(fallback *StaticProvider) ProtocolProviderOption {
	return func(p *ProtocolProvider) {
		p.fallback = fallback
	}
}

// NewProtocolProvider builds a provider over the given registry.
func NewProtocolProvider(name string, registry *protocol.CapabilityRegistry, opts ...ProtocolProviderOption) *ProtocolProvider {
	p := &ProtocolProvider{
		name:     name,
		registry: registry,
		cache:    NewCache(DefaultCacheTTL),
		metrics:  NewMetrics(name),
		fallback: NewStaticProvider("static"),
		log:      logger.New("provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider's identifier.
func (p *ProtocolProvider) Name() string { return p.name }

// Metrics returns the provider's counters for status reporting.
func (p *ProtocolProvider) Metrics() MetricsSnapshot { return p.metrics.Snapshot() }

// GetResource resolves one record. Resolution order: fresh cache entry, then
// the best capable live server, then the static fallback. Every live failure
// is counted; none reaches the caller.
func (p *ProtocolProvider) GetResource(ctx context.Context, resourceType, id string, params map[string]interface{}) *Record {
	q := protocol.NewQuery(protocol.MethodFetch, resourceType, id, params, nil)

	key := cacheKey(q)
	if cached, ok := p.cache.Get(key); ok {
		p.metrics.RecordCacheHit()
		if rec, ok := cached.(*Record); ok {
			p.log.Debug("", q.RequestID, "Cache hit", map[string]interface{}{
				"resource_type": resourceType,
				"resource_id":   id,
			})
			out := rec.Clone()
			out.Provenance = ProvenanceCache
			return out
		}
	}
	p.metrics.RecordCacheMiss()

	if rec := p.fetchLive(ctx, q); rec != nil {
		p.cache.Put(key, rec)
		return rec.Clone()
	}

	p.metrics.RecordFallback(resourceType)
	return p.fallback.GetResource(ctx, resourceType, id, params)
}

// Search resolves a list of records for a query string. Results are cached
// under the same keying scheme as single fetches. Live failures degrade to
// the fallback dataset, which may legitimately return an empty list.
func (p *ProtocolProvider) Search(ctx context.Context, resourceType, query string, filters map[string]interface{}) []*Record {
	params := map[string]interface{}{"q": query}
	q := protocol.NewQuery(protocol.MethodSearch, resourceType, "", params, filters)

	key := cacheKey(q)
	if cached, ok := p.cache.Get(key); ok {
		p.metrics.RecordCacheHit()
		if recs, ok := cached.([]*Record); ok {
			out := make([]*Record, len(recs))
			for i, r := range recs {
				out[i] = r.Clone()
				out[i].Provenance = ProvenanceCache
			}
			return out
		}
	}
	p.metrics.RecordCacheMiss()

	if recs := p.searchLive(ctx, q); recs != nil {
		p.cache.Put(key, recs)
		out := make([]*Record, len(recs))
		for i, r := range recs {
			out[i] = r.Clone()
		}
		return out
	}

	p.metrics.RecordFallback(resourceType)
	return p.fallback.Search(ctx, resourceType, query, filters)
}

// HealthCheck is healthy only when every registered client reports healthy.
// Anything less, including an empty registry, is degraded.
func (p *ProtocolProvider) HealthCheck(ctx context.Context) HealthStatus {
	clients := p.registry.All()

	status := HealthStatus{
		Status:    HealthHealthy,
		Servers:   make(map[string]bool, len(clients)),
		CheckedAt: time.Now().UTC(),
	}
	if len(clients) == 0 {
		status.Status = HealthDegraded
		return status
	}

	for _, c := range clients {
		healthy := c.HealthCheck(ctx)
		status.Servers[c.Descriptor().Name] = healthy
		if !healthy {
			status.Status = HealthDegraded
		}
	}
	return status
}

// fetchLive tries capable servers in selection order and returns the first
// converted record, or nil when every attempt fails.
func (p *ProtocolProvider) fetchLive(ctx context.Context, q *protocol.Query) *Record {
	clients := p.registry.SelectAll(q.ResourceType, q.Method)
	if len(clients) == 0 {
		p.metrics.RecordFailure(q.ResourceType, "no capable server")
		return nil
	}

	for _, client := range clients {
		start := time.Now()
		resp := client.Execute(ctx, q)
		if !resp.IsSuccess() {
			p.metrics.RecordFailure(q.ResourceType, resp.ErrorMessage)
			p.log.Warn("", q.RequestID, "Live fetch failed", map[string]interface{}{
				"server":        client.Descriptor().Name,
				"resource_type": q.ResourceType,
				"error_code":    resp.ErrorCode,
			})
			continue
		}

		rec, err := recordFromPayload(q.ResourceType, q.ResourceID, resp.SourceServerID, resp.Payload)
		if err != nil {
			p.metrics.RecordFailure(q.ResourceType, err.Error())
			p.log.Warn("", q.RequestID, "Payload conversion failed", map[string]interface{}{
				"server": client.Descriptor().Name,
				"error":  err.Error(),
			})
			continue
		}

		p.metrics.RecordSuccess(q.ResourceType, time.Since(start), costOf(client, q))
		return rec
	}
	return nil
}

// searchLive mirrors fetchLive for list-shaped results.
func (p *ProtocolProvider) searchLive(ctx context.Context, q *protocol.Query) []*Record {
	clients := p.registry.SelectAll(q.ResourceType, q.Method)
	if len(clients) == 0 {
		p.metrics.RecordFailure(q.ResourceType, "no capable server")
		return nil
	}

	for _, client := range clients {
		start := time.Now()
		resp := client.Execute(ctx, q)
		if !resp.IsSuccess() {
			p.metrics.RecordFailure(q.ResourceType, resp.ErrorMessage)
			continue
		}

		recs, err := recordsFromPayload(q.ResourceType, resp.SourceServerID, resp.Payload)
		if err != nil {
			p.metrics.RecordFailure(q.ResourceType, err.Error())
			continue
		}

		p.metrics.RecordSuccess(q.ResourceType, time.Since(start), costOf(client, q))
		return recs
	}
	return nil
}

func costOf(client protocol.Client, q *protocol.Query) float64 {
	if cap, ok := client.Descriptor().CapabilityFor(q.ResourceType, q.Method); ok {
		return cap.CostPerCall
	}
	return 0
}
