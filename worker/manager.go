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

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"axonflow/workforce/protocol"
	"axonflow/workforce/provider"
	"axonflow/workforce/shared/logger"
)

// Aggregate health values reported by HealthCheckAll.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// ManagerConfig wires the lifecycle manager's collaborators. Everything is
// passed explicitly; there is no process-global manager.
type ManagerConfig struct {
	// Registry supplies protocol clients for protocol-backed providers. May
	// be nil or empty, in which case every worker gets a static provider.
	Registry *protocol.CapabilityRegistry

	// Store mirrors worker records externally. May be nil to disable
	// mirroring entirely.
	Store Store

	// Fallback is the shared static provider behind every worker: the last
	// resort for protocol-backed providers and the direct source for
	// workers created without protocol access. Seed it before creating
	// workers; nil means an empty per-worker dataset that synthesizes
	// records on demand.
	Fallback *provider.StaticProvider

	// CacheTTL is applied to each worker's own provider cache.
	CacheTTL time.Duration

	// HealthInterval drives the background health loop.
	HealthInterval time.Duration
}

type managedWorker struct {
	worker   Worker
	record   WorkerRecord
	provider provider.Provider
}

// HealthReport aggregates one health sweep across all managed workers.
type HealthReport struct {
	Status    string            `json:"status"`
	Total     int               `json:"total"`
	Healthy   int               `json:"healthy"`
	Unhealthy int               `json:"unhealthy"`
	Workers   map[string]string `json:"workers"`   // worker id -> "ok" or error text
	Providers map[string]string `json:"providers"` // worker id -> provider status
	CheckedAt time.Time         `json:"checked_at"`
}

// LifecycleManager creates workers, binds each to its own data provider,
// tracks them in an in-process registry, and mirrors records best-effort to
// the external store.
type LifecycleManager struct {
	cfg ManagerConfig
	log *logger.Logger

	mu       sync.RWMutex
	workers  map[string]*managedWorker
	shutdown bool

	loopOnce   sync.Once
	loopCancel context.CancelFunc

	reportMu   sync.RWMutex
	lastReport *HealthReport
}

// NewLifecycleManager builds a manager; no workers exist until CreateWorker
// or CreateAllWorkers runs.
func NewLifecycleManager(cfg ManagerConfig) *LifecycleManager {
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 30 * time.Second
	}
	return &LifecycleManager{
		cfg:     cfg,
		log:     logger.New("lifecycle"),
		workers: make(map[string]*managedWorker),
	}
}

// CreateWorker instantiates one worker of the given kind. A supplied id makes
// the call idempotent: an existing worker under that id is returned as-is.
// The record mirror runs asynchronously and never fails creation.
func (m *LifecycleManager) CreateWorker(ctx context.Context, kind, id string, enableProtocol bool) (Worker, error) {
	spec, err := LookupKind(kind)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, fmt.Errorf("lifecycle manager is shut down")
	}
	if id != "" {
		if existing, ok := m.workers[id]; ok {
			m.mu.Unlock()
			return existing.worker, nil
		}
	} else {
		id = uuid.NewString()
	}

	prov, providerRef, protocolBacked := m.buildProvider(id, enableProtocol)
	w := spec.New(id, prov)

	record := WorkerRecord{
		WorkerID:        id,
		Kind:            spec.Kind,
		DisplayName:     spec.DisplayName,
		Tier:            spec.Tier,
		ProviderRef:     providerRef,
		ProtocolEnabled: protocolBacked,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}
	m.workers[id] = &managedWorker{worker: w, record: record, provider: prov}
	m.mu.Unlock()

	m.log.Info("", id, "Worker created", map[string]interface{}{
		"kind":         spec.Kind,
		"tier":         string(spec.Tier),
		"provider_ref": providerRef,
	})

	go m.mirror(record)
	return w, nil
}

// CreateAllWorkers creates one worker per registered kind, keyed by kind.
// Creation is not atomic: failures are logged and the rest proceed, so a
// partial map is an accepted outcome.
func (m *LifecycleManager) CreateAllWorkers(ctx context.Context, enableProtocol bool) map[string]Worker {
	created := make(map[string]Worker)
	for _, kind := range Kinds() {
		w, err := m.CreateWorker(ctx, kind, kind, enableProtocol)
		if err != nil {
			m.log.Error("", kind, "Worker creation failed", map[string]interface{}{
				"kind":  kind,
				"error": err.Error(),
			})
			continue
		}
		created[kind] = w
	}
	return created
}

// Get returns a managed worker by id.
func (m *LifecycleManager) Get(id string) (Worker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mw, ok := m.workers[id]
	if !ok {
		return nil, false
	}
	return mw.worker, true
}

// Records returns a copy of every managed record.
func (m *LifecycleManager) Records() []WorkerRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]WorkerRecord, 0, len(m.workers))
	for _, mw := range m.workers {
		records = append(records, mw.record)
	}
	return records
}

// Len returns the number of managed workers.
func (m *LifecycleManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// HealthCheckAll sweeps every worker. A panicking worker is counted
// unhealthy with the panic text captured; nothing is assumed healthy. The
// registry lock is released before any check runs.
func (m *LifecycleManager) HealthCheckAll(ctx context.Context) *HealthReport {
	m.mu.RLock()
	snapshot := make(map[string]*managedWorker, len(m.workers))
	for id, mw := range m.workers {
		snapshot[id] = mw
	}
	m.mu.RUnlock()

	report := &HealthReport{
		Status:    HealthHealthy,
		Total:     len(snapshot),
		Workers:   make(map[string]string, len(snapshot)),
		Providers: make(map[string]string, len(snapshot)),
		CheckedAt: time.Now().UTC(),
	}

	for id, mw := range snapshot {
		if err := checkWorker(ctx, mw.worker); err != nil {
			report.Unhealthy++
			report.Workers[id] = err.Error()
			report.Status = HealthUnhealthy
		} else {
			report.Healthy++
			report.Workers[id] = "ok"
		}

		providerStatus := mw.provider.HealthCheck(ctx).Status
		report.Providers[id] = providerStatus
		if providerStatus != provider.HealthHealthy && report.Status == HealthHealthy {
			report.Status = HealthDegraded
		}
	}

	m.reportMu.Lock()
	m.lastReport = report
	m.reportMu.Unlock()
	return report
}

// LastReport returns the most recent health sweep, if any.
func (m *LifecycleManager) LastReport() *HealthReport {
	m.reportMu.RLock()
	defer m.reportMu.RUnlock()
	return m.lastReport
}

// StartHealthLoop runs periodic sweeps until the context is cancelled. Safe
// to call once; later calls are no-ops.
func (m *LifecycleManager) StartHealthLoop(ctx context.Context) {
	m.loopOnce.Do(func() {
		loopCtx, cancel := context.WithCancel(ctx)
		m.loopCancel = cancel

		go func() {
			ticker := time.NewTicker(m.cfg.HealthInterval)
			defer ticker.Stop()
			for {
				select {
				case <-loopCtx.Done():
					return
				case <-ticker.C:
					m.HealthCheckAll(loopCtx)
				}
			}
		}()
	})
}

// Shutdown deactivates records, disconnects protocol clients, and clears the
// registry. Idempotent.
func (m *LifecycleManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	records := make([]WorkerRecord, 0, len(m.workers))
	for _, mw := range m.workers {
		records = append(records, mw.record)
	}
	m.workers = make(map[string]*managedWorker)
	m.mu.Unlock()

	if m.loopCancel != nil {
		m.loopCancel()
	}

	if m.cfg.Store != nil {
		for _, rec := range records {
			if err := m.cfg.Store.Deactivate(ctx, rec.WorkerID); err != nil {
				m.log.Warn("", rec.WorkerID, "Record deactivation failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	if m.cfg.Registry != nil {
		for _, client := range m.cfg.Registry.All() {
			if err := client.Disconnect(ctx); err != nil {
				m.log.Warn("", "", "Client disconnect failed", map[string]interface{}{
					"server": client.Descriptor().Name,
					"error":  err.Error(),
				})
			}
		}
	}

	m.log.Info("", "", "Lifecycle manager shut down", map[string]interface{}{
		"workers_released": len(records),
	})
}

// buildProvider picks the provider backing a new worker. Protocol-backed only
// when requested and at least one client is registered; otherwise the shared
// fallback dataset, or an empty static one when none is configured. Each
// protocol provider gets its own instance; caches are never shared.
func (m *LifecycleManager) buildProvider(workerID string, enableProtocol bool) (provider.Provider, string, bool) {
	if enableProtocol && m.cfg.Registry != nil && m.cfg.Registry.Len() > 0 {
		name := "protocol-" + workerID
		opts := []provider.ProtocolProviderOption{provider.WithCacheTTL(m.cfg.CacheTTL)}
		if m.cfg.Fallback != nil {
			opts = append(opts, provider.WithFallback(m.cfg.Fallback))
		}
		p := provider.NewProtocolProvider(name, m.cfg.Registry, opts...)
		return p, name, true
	}
	if m.cfg.Fallback != nil {
		return m.cfg.Fallback, m.cfg.Fallback.Name(), false
	}
	return provider.NewStaticProvider("static-" + workerID), "static-" + workerID, false
}

// mirror pushes one record to the external store with bounded retry. The
// final failure is counted and logged, never propagated.
func (m *LifecycleManager) mirror(rec WorkerRecord) {
	if m.cfg.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := withRetry(ctx, mirrorRetryAttempts, 200*time.Millisecond, func() error {
		return m.cfg.Store.Upsert(ctx, rec)
	})
	if err != nil {
		storeMirrorFailures.WithLabelValues("upsert").Inc()
		m.log.Error("", rec.WorkerID, "Worker record mirror failed", map[string]interface{}{
			"kind":  rec.Kind,
			"error": err.Error(),
		})
	}
}

// checkWorker runs one health check, converting a panic into an error.
func checkWorker(ctx context.Context, w Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health check panicked: %v", r)
		}
	}()
	return w.HealthCheck(ctx)
}
