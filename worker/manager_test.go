// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/workforce/provider"
)

// memStore records upserts in memory and can be scripted to fail.
type memStore struct {
	mu       sync.Mutex
	upserts  []WorkerRecord
	inactive []string
	fail     bool
	done     chan struct{}
}

func newMemStore() *memStore {
	return &memStore{done: make(chan struct{}, 16)}
}

func (s *memStore) Upsert(ctx context.Context, rec WorkerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store unavailable")
	}
	s.upserts = append(s.upserts, rec)
	s.done <- struct{}{}
	return nil
}

func (s *memStore) ListActive(ctx context.Context) ([]WorkerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WorkerRecord(nil), s.upserts...), nil
}

func (s *memStore) Deactivate(ctx context.Context, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inactive = append(s.inactive, workerID)
	return nil
}

func (s *memStore) Close() error { return nil }

// panickyWorker trips the health sweep's panic capture.
type panickyWorker struct{}

func (panickyWorker) ID() string   { return "panicky" }
func (panickyWorker) Kind() string { return "panicky" }
func (panickyWorker) Tier() Tier   { return TierBase }
func (panickyWorker) ProcessTask(ctx context.Context, input map[string]interface{}) TaskResult {
	return failure("unused")
}
func (panickyWorker) HealthCheck(ctx context.Context) error {
	panic("health check exploded")
}

func TestCreateWorkerExplicitIDIsIdempotent(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{})

	w1, err := m.CreateWorker(context.Background(), "researcher", "r-1", false)
	require.NoError(t, err)

	w2, err := m.CreateWorker(context.Background(), "researcher", "r-1", false)
	require.NoError(t, err)

	assert.Same(t, w1, w2)
	assert.Equal(t, 1, m.Len())
}

func TestCreateWorkerGeneratesIDs(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{})

	w1, err := m.CreateWorker(context.Background(), "analyst", "", false)
	require.NoError(t, err)
	w2, err := m.CreateWorker(context.Background(), "analyst", "", false)
	require.NoError(t, err)

	assert.NotEqual(t, w1.ID(), w2.ID())
	assert.Equal(t, 2, m.Len())
}

func TestCreateWorkerUnknownKind(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{})
	_, err := m.CreateWorker(context.Background(), "auditor", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown worker kind")
}

func TestCreateWorkerUsesStaticProviderWithoutRegistry(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{})

	_, err := m.CreateWorker(context.Background(), "researcher", "r-1", true)
	require.NoError(t, err)

	records := m.Records()
	require.Len(t, records, 1)
	assert.False(t, records[0].ProtocolEnabled)
	assert.Contains(t, records[0].ProviderRef, "static")
}

func TestCreateWorkerUsesSharedFallbackDataset(t *testing.T) {
	fallback := provider.NewStaticProvider("offline-crm")
	fallback.Seed("profileData", "lead-1", map[string]interface{}{
		"name":      "Dana Reeves",
		"seniority": "vp",
	})

	m := NewLifecycleManager(ManagerConfig{Fallback: fallback})

	w, err := m.CreateWorker(context.Background(), "researcher", "r-1", false)
	require.NoError(t, err)

	records := m.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "offline-crm", records[0].ProviderRef)

	result := w.ProcessTask(context.Background(), map[string]interface{}{"lead_id": "lead-1"})
	require.True(t, result.Success)

	profile, ok := result.Result["profile"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Dana Reeves", profile["name"])
	assert.NotContains(t, profile, "synthesized")
}

func TestCreateAllWorkersPartialSuccess(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{})

	created := m.CreateAllWorkers(context.Background(), false)
	assert.Len(t, created, 3)
	for _, kind := range Kinds() {
		w, ok := created[kind]
		require.True(t, ok, "kind %s missing", kind)
		assert.Equal(t, kind, w.ID())
	}

	// Repeating is idempotent thanks to kind-keyed ids.
	again := m.CreateAllWorkers(context.Background(), false)
	assert.Len(t, again, 3)
	assert.Equal(t, 3, m.Len())
}

func TestCreateWorkerMirrorsRecord(t *testing.T) {
	store := newMemStore()
	m := NewLifecycleManager(ManagerConfig{Store: store})

	_, err := m.CreateWorker(context.Background(), "researcher", "r-1", false)
	require.NoError(t, err)

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("mirror never reached the store")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.upserts, 1)
	assert.Equal(t, "r-1", store.upserts[0].WorkerID)
	assert.True(t, store.upserts[0].Active)
}

func TestMirrorFailureDoesNotFailCreation(t *testing.T) {
	store := newMemStore()
	store.fail = true
	m := NewLifecycleManager(ManagerConfig{Store: store})

	w, err := m.CreateWorker(context.Background(), "researcher", "r-1", false)
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.Equal(t, 1, m.Len())
}

func TestHealthCheckAllHealthy(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{})
	m.CreateAllWorkers(context.Background(), false)

	report := m.HealthCheckAll(context.Background())
	assert.Equal(t, HealthHealthy, report.Status)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Healthy)
	assert.Equal(t, 0, report.Unhealthy)
	for _, status := range report.Workers {
		assert.Equal(t, "ok", status)
	}

	assert.Same(t, report, m.LastReport())
}

func TestHealthCheckAllCapturesPanic(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{})
	m.CreateAllWorkers(context.Background(), false)

	// Inject a worker whose health check panics.
	m.mu.Lock()
	m.workers["panicky"] = &managedWorker{
		worker:   panickyWorker{},
		record:   WorkerRecord{WorkerID: "panicky"},
		provider: provider.NewStaticProvider("static"),
	}
	m.mu.Unlock()

	report := m.HealthCheckAll(context.Background())
	assert.Equal(t, HealthUnhealthy, report.Status)
	assert.Equal(t, 1, report.Unhealthy)
	assert.Contains(t, report.Workers["panicky"], "health check panicked")
}

func TestShutdownIsIdempotent(t *testing.T) {
	store := newMemStore()
	m := NewLifecycleManager(ManagerConfig{Store: store})
	m.CreateAllWorkers(context.Background(), false)

	m.Shutdown(context.Background())
	assert.Equal(t, 0, m.Len())

	store.mu.Lock()
	deactivated := len(store.inactive)
	store.mu.Unlock()
	assert.Equal(t, 3, deactivated)

	// Second shutdown is a no-op, and creation is refused afterwards.
	m.Shutdown(context.Background())
	_, err := m.CreateWorker(context.Background(), "researcher", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shut down")
}

func TestHealthLoopIsCancellable(t *testing.T) {
	m := NewLifecycleManager(ManagerConfig{HealthInterval: 10 * time.Millisecond})
	m.CreateAllWorkers(context.Background(), false)

	ctx, cancel := context.WithCancel(context.Background())
	m.StartHealthLoop(ctx)

	require.Eventually(t, func() bool {
		return m.LastReport() != nil
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
}
