// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/workforce/protocol"
)

// fakeClient scripts protocol responses for provider tests.
type fakeClient struct {
	desc    *protocol.ServerDescriptor
	healthy bool
	payload interface{}
	fail    bool
	calls   int
}

func (f *fakeClient) Execute(ctx context.Context, q *protocol.Query) *protocol.Response {
	f.calls++
	if f.fail {
		return &protocol.Response{
			RequestID:    q.RequestID,
			Status:       protocol.StatusError,
			ErrorCode:    protocol.ErrCodeTransport,
			ErrorMessage: "dial tcp: connection refused",
		}
	}
	return &protocol.Response{
		RequestID:      q.RequestID,
		Status:         protocol.StatusSuccess,
		Payload:        f.payload,
		SourceServerID: f.desc.Name,
	}
}

func (f *fakeClient) Connect(ctx context.Context) error    { return nil }
func (f *fakeClient) Disconnect(ctx context.Context) error { return nil }
func (f *fakeClient) HealthCheck(ctx context.Context) bool { return f.healthy }
func (f *fakeClient) Descriptor() *protocol.ServerDescriptor {
	return f.desc
}

func newFakeClient(name string, resourceTypes []string, payload interface{}) *fakeClient {
	return &fakeClient{
		healthy: true,
		payload: payload,
		desc: &protocol.ServerDescriptor{
			Name:      name,
			Endpoints: map[string]string{protocol.TransportHTTP: "http://" + name},
			Capabilities: []protocol.Capability{
				{
					ResourceTypes: resourceTypes,
					Methods:       []string{"fetch", "search"},
					QualityScore:  0.9,
					CostPerCall:   0.002,
				},
			},
		},
	}
}

func newTestProvider(t *testing.T, clients ...protocol.Client) *ProtocolProvider {
	t.Helper()
	reg := protocol.NewCapabilityRegistry()
	for _, c := range clients {
		require.NoError(t, reg.Register(c))
	}
	return NewProtocolProvider("business-data", reg)
}

func TestGetResourceLive(t *testing.T) {
	client := newFakeClient("crm", []string{"profileData"}, map[string]interface{}{"name": "Dana"})
	p := newTestProvider(t, client)

	rec := p.GetResource(context.Background(), "profileData", "id-1", nil)
	require.NotNil(t, rec)
	assert.Equal(t, ProvenanceLive, rec.Provenance)
	assert.Equal(t, "crm", rec.Source)
	assert.Equal(t, "Dana", rec.Fields["name"])

	snap := p.Metrics()
	assert.Equal(t, int64(1), snap.CallsOK)
	assert.Equal(t, int64(1), snap.CacheMisses)
	assert.InDelta(t, 0.002, snap.TotalCost, 1e-9)
}

func TestGetResourceSecondCallHitsCache(t *testing.T) {
	client := newFakeClient("crm", []string{"profileData"}, map[string]interface{}{"name": "Dana"})
	p := newTestProvider(t, client)

	first := p.GetResource(context.Background(), "profileData", "id-1", map[string]interface{}{"depth": 1})
	assert.Equal(t, ProvenanceLive, first.Provenance)

	second := p.GetResource(context.Background(), "profileData", "id-1", map[string]interface{}{"depth": 1})
	assert.Equal(t, ProvenanceCache, second.Provenance)
	assert.Equal(t, "Dana", second.Fields["name"])
	assert.Equal(t, 1, client.calls)

	// Different parameters are a different cache entry.
	third := p.GetResource(context.Background(), "profileData", "id-1", map[string]interface{}{"depth": 2})
	assert.Equal(t, ProvenanceLive, third.Provenance)
	assert.Equal(t, 2, client.calls)
}

func TestGetResourceFallbackWhenServerUnreachable(t *testing.T) {
	client := newFakeClient("crm", []string{"profileData"}, nil)
	client.fail = true
	p := newTestProvider(t, client)

	rec := p.GetResource(context.Background(), "profileData", "id-1", map[string]interface{}{})
	require.NotNil(t, rec)
	assert.Equal(t, ProvenanceFallback, rec.Provenance)
	assert.Equal(t, "id-1", rec.ID)

	snap := p.Metrics()
	assert.Equal(t, int64(1), snap.CallsFailed)
	assert.Equal(t, "dial tcp: connection refused", snap.LastError)
}

func TestGetResourceFallbackWhenNoCapableServer(t *testing.T) {
	client := newFakeClient("crm", []string{"profileData"}, map[string]interface{}{"name": "Dana"})
	p := newTestProvider(t, client)

	rec := p.GetResource(context.Background(), "weatherData", "fra", nil)
	require.NotNil(t, rec)
	assert.Equal(t, ProvenanceFallback, rec.Provenance)

	snap := p.Metrics()
	assert.Equal(t, int64(1), snap.CallsFailed)
	assert.Equal(t, "no capable server", snap.LastError)
}

func TestGetResourceTriesNextServerOnFailure(t *testing.T) {
	broken := newFakeClient("broken", []string{"profileData"}, nil)
	broken.fail = true
	broken.desc.Capabilities[0].QualityScore = 0.95

	working := newFakeClient("working", []string{"profileData"}, map[string]interface{}{"name": "Dana"})
	working.desc.Capabilities[0].QualityScore = 0.80

	p := newTestProvider(t, broken, working)

	rec := p.GetResource(context.Background(), "profileData", "id-1", nil)
	require.NotNil(t, rec)
	assert.Equal(t, ProvenanceLive, rec.Provenance)
	assert.Equal(t, "working", rec.Source)
	assert.Equal(t, 1, broken.calls)

	snap := p.Metrics()
	assert.Equal(t, int64(1), snap.CallsFailed)
	assert.Equal(t, int64(1), snap.CallsOK)
}

func TestGetResourceMalformedPayloadFallsBack(t *testing.T) {
	client := newFakeClient("crm", []string{"profileData"}, "not-an-object")
	p := newTestProvider(t, client)

	rec := p.GetResource(context.Background(), "profileData", "id-1", nil)
	require.NotNil(t, rec)
	assert.Equal(t, ProvenanceFallback, rec.Provenance)

	snap := p.Metrics()
	assert.Equal(t, int64(1), snap.CallsFailed)
	assert.Contains(t, snap.LastError, "payload is not an object")
}

func TestGetResourceCachedRecordsAreIsolated(t *testing.T) {
	client := newFakeClient("crm", []string{"profileData"}, map[string]interface{}{"name": "Dana"})
	p := newTestProvider(t, client)

	first := p.GetResource(context.Background(), "profileData", "id-1", nil)
	first.Fields["name"] = "mutated"

	second := p.GetResource(context.Background(), "profileData", "id-1", nil)
	assert.Equal(t, "Dana", second.Fields["name"])
}

func TestSearchLiveAndCached(t *testing.T) {
	payload := []interface{}{
		map[string]interface{}{"id": "c1", "name": "Acme"},
		map[string]interface{}{"id": "c2", "name": "Blue Harbor"},
	}
	client := newFakeClient("crm", []string{"companyData"}, payload)
	p := newTestProvider(t, client)

	recs := p.Search(context.Background(), "companyData", "a", nil)
	require.Len(t, recs, 2)
	assert.Equal(t, ProvenanceLive, recs[0].Provenance)
	assert.Equal(t, "c1", recs[0].ID)

	again := p.Search(context.Background(), "companyData", "a", nil)
	require.Len(t, again, 2)
	assert.Equal(t, ProvenanceCache, again[0].Provenance)
	assert.Equal(t, 1, client.calls)
}

func TestSearchFallsBackToStaticDataset(t *testing.T) {
	client := newFakeClient("crm", []string{"companyData"}, nil)
	client.fail = true

	fallback := NewStaticProvider("static")
	fallback.Seed("companyData", "c1", map[string]interface{}{"name": "Acme Industrial"})

	reg := protocol.NewCapabilityRegistry()
	require.NoError(t, reg.Register(client))
	p := NewProtocolProvider("business-data", reg, WithFallback(fallback))

	recs := p.Search(context.Background(), "companyData", "acme", nil)
	require.Len(t, recs, 1)
	assert.Equal(t, ProvenanceFallback, recs[0].Provenance)
}

func TestHealthCheckAggregation(t *testing.T) {
	healthy := newFakeClient("a", []string{"profileData"}, nil)
	sick := newFakeClient("b", []string{"marketData"}, nil)
	sick.healthy = false

	p := newTestProvider(t, healthy, sick)
	status := p.HealthCheck(context.Background())
	assert.Equal(t, HealthDegraded, status.Status)
	assert.True(t, status.Servers["a"])
	assert.False(t, status.Servers["b"])

	allWell := newTestProvider(t, newFakeClient("a", []string{"profileData"}, nil))
	assert.Equal(t, HealthHealthy, allWell.HealthCheck(context.Background()).Status)

	empty := newTestProvider(t)
	assert.Equal(t, HealthDegraded, empty.HealthCheck(context.Background()).Status)
}

func TestCacheExpiryTriggersLiveRefetch(t *testing.T) {
	client := newFakeClient("crm", []string{"profileData"}, map[string]interface{}{"name": "Dana"})
	reg := protocol.NewCapabilityRegistry()
	require.NoError(t, reg.Register(client))
	p := NewProtocolProvider("business-data", reg, WithCacheTTL(time.Minute))

	now := time.Now()
	p.cache.nowFunc = func() time.Time { return now }

	p.GetResource(context.Background(), "profileData", "id-1", nil)
	assert.Equal(t, 1, client.calls)

	now = now.Add(2 * time.Minute)
	rec := p.GetResource(context.Background(), "profileData", "id-1", nil)
	assert.Equal(t, ProvenanceLive, rec.Provenance)
	assert.Equal(t, 2, client.calls)
}
